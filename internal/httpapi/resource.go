package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/goliatone/go-license-server/repository"
)

// resource serves the uniform CRUD surface every entity repository offers.
// Entity-specific routes (natural-key lookups, joins) are mounted on top by
// the router.
type resource[T any] struct {
	name   string
	repo   *repository.Entity[T]
	logger *slog.Logger
}

func newResource[T any](name string, repo *repository.Entity[T], logger *slog.Logger) *resource[T] {
	return &resource[T]{
		name:   name,
		repo:   repo,
		logger: logger.With(slog.String("handler", name)),
	}
}

// routes mounts the CRUD handlers plus any entity-specific extras.
func (h *resource[T]) routes(extra func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	if extra != nil {
		extra(r)
	}
	return r
}

func (h *resource[T]) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.FindAll(r.Context())
	if err != nil {
		h.fail(r, "list", err)
		render.Render(w, r, errInternal())
		return
	}
	if rows == nil {
		rows = []T{}
	}
	render.JSON(w, r, rows)
}

func (h *resource[T]) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	row, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		h.fail(r, "get", err)
		render.Render(w, r, errInternal())
		return
	}
	if row == nil {
		render.Render(w, r, errNotFound(h.name+" not found"))
		return
	}
	render.JSON(w, r, row)
}

func (h *resource[T]) create(w http.ResponseWriter, r *http.Request) {
	row := new(T)
	if err := render.DecodeJSON(r.Body, row); err != nil {
		render.Render(w, r, errInvalidRequest("invalid JSON body"))
		return
	}
	created, err := h.repo.Create(r.Context(), row)
	if err != nil {
		h.fail(r, "create", err)
		render.Render(w, r, errInternal())
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

func (h *resource[T]) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch map[string]any
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		render.Render(w, r, errInvalidRequest("invalid JSON body"))
		return
	}

	updated, err := h.repo.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotUpdatable) {
			render.Render(w, r, errInvalidRequest(err.Error()))
			return
		}
		h.fail(r, "update", err)
		render.Render(w, r, errInternal())
		return
	}
	if !updated {
		render.Render(w, r, errNotFound(h.name+" not found"))
		return
	}
	render.JSON(w, r, map[string]string{"message": h.name + " updated"})
}

func (h *resource[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.fail(r, "delete", err)
		render.Render(w, r, errInternal())
		return
	}
	if !deleted {
		render.Render(w, r, errNotFound(h.name+" not found"))
		return
	}
	render.JSON(w, r, map[string]string{"message": h.name + " deleted"})
}

func (h *resource[T]) fail(r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
}

// pathID parses the {id} route parameter, answering 400 itself on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		render.Render(w, r, errInvalidRequest("invalid id"))
		return 0, false
	}
	return id, true
}
