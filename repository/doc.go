// Package repository implements the cache-aside persistence layer.
//
// One generic type, Entity[T], carries the shared mechanics: reads are
// wrapped with cache.GetOrFetch under keys built by the KeySerializer, writes
// go straight to the database and then invalidate an explicit, per-entity
// list of cache keys. The legacy service duplicated this wiring per entity
// and the invalidation lists drifted apart; here each entity constructor
// (NewClients, NewProducts, NewLicenses, NewStationLicenses) declares its
// keys once, as plain function composition at construction time.
//
// Read operations never treat an absent row as an error: FindByID and the
// natural-key finders return (nil, nil) on no match. Write operations report
// affected-row booleans; a sparse Update with an empty patch performs no SQL
// at all.
package repository
