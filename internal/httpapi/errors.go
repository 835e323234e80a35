package httpapi

import (
	"net/http"

	"github.com/go-chi/render"
)

// errResponse is the JSON error payload of the admin surface.
type errResponse struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// Render implements render.Renderer.
func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func errInvalidRequest(msg string) render.Renderer {
	return &errResponse{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_REQUEST", Message: msg}
}

func errNotFound(msg string) render.Renderer {
	return &errResponse{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: msg}
}

func errInternal() render.Renderer {
	return &errResponse{StatusCode: http.StatusInternalServerError, ErrorCode: "INTERNAL", Message: "internal server error"}
}
