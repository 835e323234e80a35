package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/goliatone/go-license-server/repository"
)

// StatsHandler serves the cached dashboard statistics.
type StatsHandler struct {
	stats  *repository.Stats
	logger *slog.Logger
}

// NewStatsHandler builds the handler.
func NewStatsHandler(stats *repository.Stats, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger.With(slog.String("handler", "stats"))}
}

// Routes mounts the statistics endpoints.
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/overview", h.overview)
	r.Get("/products", h.products)
	r.Get("/monthly", h.monthly)
	return r
}

func (h *StatsHandler) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "overview failed", slog.Any("error", err))
		render.Render(w, r, errInternal())
		return
	}
	render.JSON(w, r, stats)
}

func (h *StatsHandler) products(w http.ResponseWriter, r *http.Request) {
	usage, err := h.stats.ProductsUsage(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "products usage failed", slog.Any("error", err))
		render.Render(w, r, errInternal())
		return
	}
	render.JSON(w, r, usage)
}

func (h *StatsHandler) monthly(w http.ResponseWriter, r *http.Request) {
	monthly, err := h.stats.Monthly(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "monthly failed", slog.Any("error", err))
		render.Render(w, r, errInternal())
		return
	}
	render.JSON(w, r, monthly)
}
