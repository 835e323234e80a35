package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/repository"
	"github.com/goliatone/go-license-server/verify"
)

// Deps carries everything the router mounts.
type Deps struct {
	Resolver *verify.Resolver
	Clients  *repository.Clients
	Products *repository.Products
	Licenses *repository.Licenses
	Stations *repository.StationLicenses
	Stats    *repository.Stats
	Cache    cache.CacheService
	Logger   *slog.Logger
}

// NewRouter assembles the full HTTP surface: the legacy verification
// endpoint at its historical path, and the JSON admin API under /api.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Legacy endpoint; the .aspx path is what the deployed terminals call.
	r.Get("/expireOff.aspx", NewVerifyHandler(d.Resolver, d.Logger).Handle)

	r.Route("/api", func(api chi.Router) {
		clients := newResource("client", d.Clients.Entity, d.Logger)
		api.Mount("/clients", clients.routes(func(cr chi.Router) {
			cr.Get("/device/{deviceID}", clientByDevice(d.Clients, d.Logger))
			cr.Get("/{id}/licences", clientWithLicenses(d.Clients, d.Logger))
		}))

		products := newResource("product", d.Products.Entity, d.Logger)
		api.Mount("/products", products.routes(func(pr chi.Router) {
			pr.Get("/code/{code}", productByCode(d.Products, d.Logger))
		}))

		licenses := newResource("licence", d.Licenses.Entity, d.Logger)
		api.Mount("/licences", licenses.routes(nil))

		stations := newResource("licence2", d.Stations.Entity, d.Logger)
		api.Mount("/licences2", stations.routes(func(sr chi.Router) {
			sr.Get("/device/{deviceID}", stationsByDevice(d.Stations, d.Logger))
		}))

		api.Mount("/statistics", NewStatsHandler(d.Stats, d.Logger).Routes())
		api.Mount("/cache", NewCacheHandler(d.Cache, d.Logger).Routes())
	})

	return r
}

func clientByDevice(repo *repository.Clients, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, err := repo.FindByDeviceID(r.Context(), chi.URLParam(r, "deviceID"))
		if err != nil {
			logger.ErrorContext(r.Context(), "client by device failed", slog.Any("error", err))
			render.Render(w, r, errInternal())
			return
		}
		if client == nil {
			render.Render(w, r, errNotFound("client not found"))
			return
		}
		render.JSON(w, r, client)
	}
}

func clientWithLicenses(repo *repository.Clients, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		view, err := repo.FindWithLicenses(r.Context(), id)
		if err != nil {
			logger.ErrorContext(r.Context(), "client with licences failed", slog.Any("error", err))
			render.Render(w, r, errInternal())
			return
		}
		if view == nil {
			render.Render(w, r, errNotFound("client not found"))
			return
		}
		render.JSON(w, r, view)
	}
}

func productByCode(repo *repository.Products, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := repo.FindByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			logger.ErrorContext(r.Context(), "product by code failed", slog.Any("error", err))
			render.Render(w, r, errInternal())
			return
		}
		if product == nil {
			render.Render(w, r, errNotFound("product not found"))
			return
		}
		render.JSON(w, r, product)
	}
}

func stationsByDevice(repo *repository.StationLicenses, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.FindByDevice(r.Context(), chi.URLParam(r, "deviceID"))
		if err != nil {
			logger.ErrorContext(r.Context(), "licences2 by device failed", slog.Any("error", err))
			render.Render(w, r, errInternal())
			return
		}
		render.JSON(w, r, rows)
	}
}
