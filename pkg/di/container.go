// Package di wires the application graph. There are no global singletons:
// everything is constructed here, once, and handed to whoever needs it.
package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/internal/config"
	"github.com/goliatone/go-license-server/internal/httpapi"
	"github.com/goliatone/go-license-server/internal/store"
	"github.com/goliatone/go-license-server/repository"
	"github.com/goliatone/go-license-server/verify"
)

// Container holds the constructed application components.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	db            *bun.DB
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer

	clients  *repository.Clients
	products *repository.Products
	licenses *repository.Licenses
	stations *repository.StationLicenses
	stats    *repository.Stats

	resolver *verify.Resolver
}

// New builds the container: store, cache backend, repositories, resolver.
// It also runs the schema bootstrap.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	cacheService, err := cache.NewCacheService(cfg.Cache.ToCache())
	if err != nil {
		db.Close()
		return nil, err
	}
	keySerializer := cache.NewDefaultKeySerializer()

	c := &Container{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		cacheService:  cacheService,
		keySerializer: keySerializer,
	}

	c.clients = repository.NewClients(db, cacheService, keySerializer)
	c.products = repository.NewProducts(db, cacheService, keySerializer)
	c.licenses = repository.NewLicenses(db, cacheService, keySerializer)
	c.stations = repository.NewStationLicenses(db, cacheService, keySerializer)
	c.stats = repository.NewStats(db, cacheService, keySerializer)

	c.resolver = verify.NewResolver(c.clients, c.products, c.licenses, c.stations, logger)
	return c, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.db.Close()
}

// DB returns the bun database handle.
func (c *Container) DB() *bun.DB { return c.db }

// CacheService returns the shared cache service instance.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the shared key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Clients returns the client repository.
func (c *Container) Clients() *repository.Clients { return c.clients }

// Products returns the product repository.
func (c *Container) Products() *repository.Products { return c.products }

// Licenses returns the standard-family license repository.
func (c *Container) Licenses() *repository.Licenses { return c.licenses }

// Stations returns the trading-station pool repository.
func (c *Container) Stations() *repository.StationLicenses { return c.stations }

// Stats returns the statistics reader.
func (c *Container) Stats() *repository.Stats { return c.stats }

// Resolver returns the verification resolver.
func (c *Container) Resolver() *verify.Resolver { return c.resolver }

// Router assembles the HTTP surface over the container's components.
func (c *Container) Router() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Resolver: c.resolver,
		Clients:  c.clients,
		Products: c.products,
		Licenses: c.licenses,
		Stations: c.stations,
		Stats:    c.stats,
		Cache:    c.cacheService,
		Logger:   c.logger,
	})
}
