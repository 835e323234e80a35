package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
)

const (
	keyProductsAll  = "products.find_all"
	opProductByID   = "products.by_id"
	opProductByCode = "products.by_code"
)

// Products is the repository for licensing.Product rows.
type Products struct {
	*Entity[licensing.Product]
}

// NewProducts builds the product repository and wires its invalidation lists.
func NewProducts(db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer) *Products {
	r := &Products{
		Entity: newEntity[licensing.Product](db, cacheSvc, keys, Metadata{
			Name:      "products",
			PK:        "idProduct",
			Updatable: []string{"Product", "Code", "version", "DemoDays", "link", "comentario", "idShop"},
		}),
	}

	r.listKeys = func() []string {
		return append([]string{keys.SerializeKey(keyProductsAll)}, statsKeys(keys)...)
	}
	r.rowKeys = func(p *licensing.Product) []string {
		return []string{
			keys.SerializeKey(opProductByID, p.ID),
			keys.SerializeKey(opProductByCode, p.Code),
		}
	}
	r.idKeys = func(id int64) []string {
		return []string{keys.SerializeKey(opProductByID, id)}
	}
	r.staleKeys = func(ctx context.Context, id int64) []string {
		p, err := r.FindByID(ctx, id)
		if err != nil || p == nil {
			return nil
		}
		return []string{keys.SerializeKey(opProductByCode, p.Code)}
	}
	return r
}

// FindByCode looks a product up by its natural key. Returns nil for codes
// that have never been provisioned.
func (r *Products) FindByCode(ctx context.Context, code string) (*licensing.Product, error) {
	key := r.keys.SerializeKey(opProductByCode, code)
	return r.one(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("Code"), code)
	})
}
