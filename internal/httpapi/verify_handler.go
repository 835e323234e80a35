package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-license-server/verify"
)

// blankBody is the uniform failure response of the legacy endpoint. A single
// newline, nothing else: the caller must not be able to tell a missing
// parameter from an unlicensed device or a database outage.
const blankBody = "\n"

// VerifyHandler serves the legacy verification endpoint.
type VerifyHandler struct {
	resolver *verify.Resolver
	logger   *slog.Logger
}

// NewVerifyHandler builds the handler.
func NewVerifyHandler(resolver *verify.Resolver, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{
		resolver: resolver,
		logger:   logger.With(slog.String("handler", "verify")),
	}
}

// Handle answers GET /expireOff.aspx. The status is always 200; callers
// distinguish outcomes solely by body shape.
func (h *VerifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := verify.Request{
		ProductCode: q.Get("product"),
		DeviceID:    q.Get("mt4"),
		DeviceName:  q.Get("name"),
		BrokerName:  q.Get("broker"),
		TestFlag:    q.Get("check"),
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	grant, err := h.resolver.Verify(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrMissingParameter), errors.Is(err, verify.ErrNotLicensed):
			h.logger.DebugContext(r.Context(), "verification refused",
				slog.String("device_id", req.DeviceID),
				slog.String("product", req.ProductCode),
				slog.String("reason", err.Error()))
		default:
			// Server-side only; the caller still gets the blank body.
			h.logger.ErrorContext(r.Context(), "verification failed",
				slog.String("device_id", req.DeviceID),
				slog.String("product", req.ProductCode),
				slog.Any("error", err))
		}
		io.WriteString(w, blankBody)
		return
	}

	io.WriteString(w, grant.Body())
}
