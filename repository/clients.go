package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
)

const (
	keyClientsAll        = "clients.find_all"
	opClientByID         = "clients.by_id"
	opClientByDevice     = "clients.by_device_id"
	opClientWithLicenses = "clients.with_licences"
)

// Clients is the repository for licensing.Client rows.
type Clients struct {
	*Entity[licensing.Client]
}

// NewClients builds the client repository and wires its invalidation lists.
func NewClients(db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer) *Clients {
	r := &Clients{
		Entity: newEntity[licensing.Client](db, cacheSvc, keys, Metadata{
			Name:      "clients",
			PK:        "idClient",
			Updatable: []string{"MT4ID", "Nombre", "Broker", "Tests", "idShop"},
		}),
	}

	r.listKeys = func() []string {
		return append([]string{keys.SerializeKey(keyClientsAll)}, statsKeys(keys)...)
	}
	r.rowKeys = func(c *licensing.Client) []string {
		return []string{
			keys.SerializeKey(opClientByID, c.ID),
			keys.SerializeKey(opClientByDevice, c.DeviceID),
			keys.SerializeKey(opClientWithLicenses, c.ID),
		}
	}
	r.idKeys = func(id int64) []string {
		return []string{
			keys.SerializeKey(opClientByID, id),
			keys.SerializeKey(opClientWithLicenses, id),
		}
	}
	// An update may change the device id, so the current row names the
	// device lookup that goes stale.
	r.staleKeys = func(ctx context.Context, id int64) []string {
		c, err := r.FindByID(ctx, id)
		if err != nil || c == nil {
			return nil
		}
		return []string{keys.SerializeKey(opClientByDevice, c.DeviceID)}
	}
	return r
}

// FindByDeviceID looks a client up by its natural key, the device id the
// terminal reports. Returns nil when the device has never been seen.
func (r *Clients) FindByDeviceID(ctx context.Context, deviceID string) (*licensing.Client, error) {
	key := r.keys.SerializeKey(opClientByDevice, deviceID)
	return r.one(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("MT4ID"), deviceID)
	})
}

// ClientWithLicenses is the admin dashboard's join view of a client and its
// standard-family licenses.
type ClientWithLicenses struct {
	Client   licensing.Client    `json:"client"`
	Licenses []licensing.License `json:"licenses"`
}

// FindWithLicenses returns the client joined with its licenses, or nil when
// the client does not exist. The cache key for this view is part of the
// license repository's invalidation list as well: license writes clear it.
func (r *Clients) FindWithLicenses(ctx context.Context, id int64) (*ClientWithLicenses, error) {
	key := r.keys.SerializeKey(opClientWithLicenses, id)
	return cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (*ClientWithLicenses, error) {
		client := new(licensing.Client)
		err := r.db.NewSelect().Model(client).Where("? = ?", bun.Ident("idClient"), id).Limit(1).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select clients: %w", err)
		}

		var licenses []licensing.License
		if err := r.db.NewSelect().Model(&licenses).Where("? = ?", bun.Ident("idClient"), id).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select licences: %w", err)
		}
		return &ClientWithLicenses{Client: *client, Licenses: licenses}, nil
	})
}
