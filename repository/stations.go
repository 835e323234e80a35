package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
)

const (
	keyStationsAll              = "licences2.find_all"
	opStationByID               = "licences2.by_id"
	opStationsByDevice          = "licences2.by_device"
	opStationByDeviceAndProduct = "licences2.by_device_and_product"
)

// StationLicenses is the repository for the trading-station license pool.
// The verification path only ever reads it; rows are issued and revoked
// through the admin surface.
type StationLicenses struct {
	*Entity[licensing.StationLicense]
}

// NewStationLicenses builds the station-license repository.
func NewStationLicenses(db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer) *StationLicenses {
	r := &StationLicenses{
		Entity: newEntity[licensing.StationLicense](db, cacheSvc, keys, Metadata{
			Name:      "licences2",
			PK:        "idLicence",
			Updatable: []string{"MT4ID", "idProduct", "idShop"},
		}),
	}

	r.listKeys = func() []string {
		return []string{keys.SerializeKey(keyStationsAll)}
	}
	r.rowKeys = func(l *licensing.StationLicense) []string {
		return []string{
			keys.SerializeKey(opStationByID, l.ID),
			keys.SerializeKey(opStationsByDevice, l.DeviceID),
			keys.SerializeKey(opStationByDeviceAndProduct, l.DeviceID, l.ProductID),
		}
	}
	r.idKeys = func(id int64) []string {
		return []string{keys.SerializeKey(opStationByID, id)}
	}
	r.staleKeys = func(ctx context.Context, id int64) []string {
		l, err := r.FindByID(ctx, id)
		if err != nil || l == nil {
			return nil
		}
		return []string{
			keys.SerializeKey(opStationsByDevice, l.DeviceID),
			keys.SerializeKey(opStationByDeviceAndProduct, l.DeviceID, l.ProductID),
		}
	}
	return r
}

// FindByDevice returns every pool row issued to a device.
func (r *StationLicenses) FindByDevice(ctx context.Context, deviceID string) ([]licensing.StationLicense, error) {
	key := r.keys.SerializeKey(opStationsByDevice, deviceID)
	return r.many(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("MT4ID"), deviceID)
	})
}

// FindByDeviceAndProduct returns a pool row for the (device, product) pair,
// or nil. Existence of any row, not its content, makes the device eligible.
func (r *StationLicenses) FindByDeviceAndProduct(ctx context.Context, deviceID string, productID int64) (*licensing.StationLicense, error) {
	key := r.keys.SerializeKey(opStationByDeviceAndProduct, deviceID, productID)
	return r.one(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("MT4ID"), deviceID).
			Where("? = ?", bun.Ident("idProduct"), productID).
			OrderExpr("? ASC", bun.Ident("idLicence"))
	})
}
