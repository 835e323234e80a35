package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
)

const (
	keyLicensesAll              = "licences.find_all"
	opLicenseByID               = "licences.by_id"
	opLicensesByClient          = "licences.by_client"
	opLicenseByClientAndProduct = "licences.by_client_and_product"
)

// Licenses is the repository for the standard license family.
type Licenses struct {
	*Entity[licensing.License]
}

// NewLicenses builds the license repository. Its invalidation list reaches
// across entities: a license write also clears the owning client's
// with-licences view.
func NewLicenses(db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer) *Licenses {
	r := &Licenses{
		Entity: newEntity[licensing.License](db, cacheSvc, keys, Metadata{
			Name:      "licences",
			PK:        "idLicence",
			Updatable: []string{"idClient", "idProduct", "expiration", "idShop"},
		}),
	}

	r.listKeys = func() []string {
		return append([]string{keys.SerializeKey(keyLicensesAll)}, statsKeys(keys)...)
	}
	r.rowKeys = func(l *licensing.License) []string {
		return []string{
			keys.SerializeKey(opLicenseByID, l.ID),
			keys.SerializeKey(opLicensesByClient, l.ClientID),
			keys.SerializeKey(opLicenseByClientAndProduct, l.ClientID, l.ProductID),
			keys.SerializeKey(opClientWithLicenses, l.ClientID),
		}
	}
	r.idKeys = func(id int64) []string {
		return []string{keys.SerializeKey(opLicenseByID, id)}
	}
	// The current row knows which client's views go stale.
	r.staleKeys = func(ctx context.Context, id int64) []string {
		l, err := r.FindByID(ctx, id)
		if err != nil || l == nil {
			return nil
		}
		return []string{
			keys.SerializeKey(opLicensesByClient, l.ClientID),
			keys.SerializeKey(opLicenseByClientAndProduct, l.ClientID, l.ProductID),
			keys.SerializeKey(opClientWithLicenses, l.ClientID),
		}
	}
	return r
}

// FindByClient returns every license issued to a client.
func (r *Licenses) FindByClient(ctx context.Context, clientID int64) ([]licensing.License, error) {
	key := r.keys.SerializeKey(opLicensesByClient, clientID)
	return r.many(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("idClient"), clientID)
	})
}

// FindByClientAndProduct returns the effective license for a (client,
// product) pair, or nil when none has been issued. The resolver relies on at
// most one such row; the query picks the first deterministically.
func (r *Licenses) FindByClientAndProduct(ctx context.Context, clientID, productID int64) (*licensing.License, error) {
	key := r.keys.SerializeKey(opLicenseByClientAndProduct, clientID, productID)
	return r.one(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("idClient"), clientID).
			Where("? = ?", bun.Ident("idProduct"), productID).
			OrderExpr("? ASC", bun.Ident("idLicence"))
	})
}
