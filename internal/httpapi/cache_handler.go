package httpapi

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/goliatone/go-license-server/cache"
)

// CacheHandler exposes the in-process cache for operators: inspect the live
// keys, flush everything. Entries are strictly redundant with the database,
// so a flush costs one refetch per key at worst.
type CacheHandler struct {
	cache  cache.CacheService
	logger *slog.Logger
}

// NewCacheHandler builds the handler.
func NewCacheHandler(cacheSvc cache.CacheService, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{cache: cacheSvc, logger: logger.With(slog.String("handler", "cache"))}
}

// Routes mounts the cache admin endpoints.
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.stats)
	r.Delete("/", h.flush)
	return r
}

func (h *CacheHandler) stats(w http.ResponseWriter, r *http.Request) {
	keys := h.cache.Keys(r.Context())
	sort.Strings(keys)
	render.JSON(w, r, map[string]any{
		"keys":        keys,
		"total_items": len(keys),
	})
}

func (h *CacheHandler) flush(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Flush(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "flush failed", slog.Any("error", err))
		render.Render(w, r, errInternal())
		return
	}
	h.logger.InfoContext(r.Context(), "cache flushed")
	render.JSON(w, r, map[string]string{"message": "cache cleared"})
}
