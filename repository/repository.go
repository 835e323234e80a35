package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
)

// ErrNotUpdatable reports a sparse patch that names a column outside the
// entity's whitelist. The admin surface maps it to a client error.
var ErrNotUpdatable = errors.New("column not updatable")

// Metadata describes the table an Entity repository is bound to.
type Metadata struct {
	// Name is the cache namespace, e.g. "clients".
	Name string
	// PK is the primary key column, e.g. "idClient".
	PK string
	// Updatable whitelists the columns a sparse patch may touch. The primary
	// key is never updatable.
	Updatable []string
}

// Entity is the generic cache-aside repository. The per-entity constructors
// in this package instantiate it and wire the invalidation hooks; nothing
// outside the package builds one directly.
type Entity[T any] struct {
	db    bun.IDB
	meta  Metadata
	cache cache.CacheService
	keys  cache.KeySerializer

	updatable map[string]bool

	// Invalidation wiring, fixed at construction.
	//
	// listKeys are cleared on every committed write (the entity's find-all
	// key plus any cross-entity keys such as the statistics entries).
	// rowKeys name the lookups a concrete row answers (by-id, natural key).
	// idKeys name the lookups derivable from the id alone. staleKeys may
	// consult the database before a write to find keys only the current row
	// contents can name (e.g. the device-id lookup of a client about to be
	// mutated).
	listKeys  func() []string
	rowKeys   func(*T) []string
	idKeys    func(id int64) []string
	staleKeys func(ctx context.Context, id int64) []string
}

func newEntity[T any](db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer, meta Metadata) *Entity[T] {
	updatable := make(map[string]bool, len(meta.Updatable))
	for _, col := range meta.Updatable {
		updatable[col] = true
	}
	return &Entity[T]{
		db:        db,
		meta:      meta,
		cache:     cacheSvc,
		keys:      keys,
		updatable: updatable,
	}
}

// FindAll returns every row, cache-aside under the entity's list key.
func (r *Entity[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.many(ctx, r.keys.SerializeKey(r.meta.Name+".find_all"), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

// FindByID returns the row with the given primary key, or nil when absent.
func (r *Entity[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	key := r.keys.SerializeKey(r.meta.Name+".by_id", id)
	return r.one(ctx, key, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(r.meta.PK), id)
	})
}

// Create inserts the row, fills its assigned id, and invalidates the list key
// plus every lookup key the new row could now resolve to.
func (r *Entity[T]) Create(ctx context.Context, row *T) (*T, error) {
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.meta.Name, err)
	}

	keys := r.listKeys()
	if r.rowKeys != nil {
		keys = append(keys, r.rowKeys(row)...)
	}
	r.invalidate(ctx, keys)
	return row, nil
}

// Update applies a sparse patch to the row with the given id. Only
// whitelisted columns may appear in the patch; an empty patch performs no
// write and reports false. Returns true when a row was affected, after
// invalidating the entity's enumerated keys for both the pre-write and the
// post-write row: a rename must clear the lookup under the old value and any
// cached absence under the new one.
func (r *Entity[T]) Update(ctx context.Context, id int64, patch map[string]any) (bool, error) {
	cols := make([]string, 0, len(patch))
	for col := range patch {
		if !r.updatable[col] {
			return false, fmt.Errorf("update %s: %w: %q", r.meta.Name, ErrNotUpdatable, col)
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return false, nil
	}
	sort.Strings(cols)

	// Collect the stale keys before the row changes underneath us.
	stale := r.writeSet(ctx, id)

	q := r.db.NewUpdate().Model((*T)(nil)).Where("? = ?", bun.Ident(r.meta.PK), id)
	for _, col := range cols {
		q = q.Set("? = ?", bun.Ident(col), patch[col])
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", r.meta.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: %w", r.meta.Name, err)
	}
	if affected == 0 {
		return false, nil
	}

	// The patched row answers lookups under its new values now; a cached
	// negative under one of them would otherwise survive until the TTL.
	if r.rowKeys != nil {
		if row, err := r.current(ctx, id); err == nil && row != nil {
			stale = append(stale, r.rowKeys(row)...)
		}
	}

	r.invalidate(ctx, stale)
	return true, nil
}

// Delete removes the row with the given id. Returns true when a row was
// deleted, after invalidating the pre-write row's keys. There is no
// post-write row: a cached negative under the deleted row's lookups is
// correct once the row is gone.
func (r *Entity[T]) Delete(ctx context.Context, id int64) (bool, error) {
	stale := r.writeSet(ctx, id)

	res, err := r.db.NewDelete().Model((*T)(nil)).Where("? = ?", bun.Ident(r.meta.PK), id).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.meta.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.meta.Name, err)
	}
	if affected == 0 {
		return false, nil
	}

	r.invalidate(ctx, stale)
	return true, nil
}

// current reads the row straight from the database, bypassing the cache.
// Update uses it to enumerate the post-write lookup keys.
func (r *Entity[T]) current(ctx context.Context, id int64) (*T, error) {
	row := new(T)
	err := r.db.NewSelect().Model(row).Where("? = ?", bun.Ident(r.meta.PK), id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", r.meta.Name, err)
	}
	return row, nil
}

// one runs a cache-aside single-row read. Absence is a normal nil result.
func (r *Entity[T]) one(ctx context.Context, key string, apply func(*bun.SelectQuery) *bun.SelectQuery) (*T, error) {
	return cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (*T, error) {
		row := new(T)
		err := apply(r.db.NewSelect().Model(row)).Limit(1).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select %s: %w", r.meta.Name, err)
		}
		return row, nil
	})
}

// many runs a cache-aside multi-row read.
func (r *Entity[T]) many(ctx context.Context, key string, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]T, error) {
	return cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := apply(r.db.NewSelect().Model(&rows)).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select %s: %w", r.meta.Name, err)
		}
		return rows, nil
	})
}

// writeSet enumerates every key a mutation of the given id must clear.
func (r *Entity[T]) writeSet(ctx context.Context, id int64) []string {
	keys := r.listKeys()
	if r.idKeys != nil {
		keys = append(keys, r.idKeys(id)...)
	}
	if r.staleKeys != nil {
		keys = append(keys, r.staleKeys(ctx, id)...)
	}
	return keys
}

func (r *Entity[T]) invalidate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	// Both backends report invalidation as infallible; the signature carries
	// an error for remote caches.
	_ = r.cache.Invalidate(ctx, dedupe(keys)...)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
