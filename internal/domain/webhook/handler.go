package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
)

const maxBodySize = 1 << 20

// Handler handles inbound processor callbacks
type Handler struct {
	service *Service
}

// NewHandler creates webhook handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Handle receives a processor callback
// POST /webhooks/{provider}
// The raw body bytes are passed through untouched; HMAC schemes are
// byte-sensitive and re-serialization would break them.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		response.BadRequest(w, "Could not read request body")
		return
	}

	err = h.service.Ingest(r.Context(), providerName, r.Header, body, middleware.GetClientIP(r))
	switch {
	case errors.Is(err, ErrSignatureInvalid):
		response.Unauthorized(w, "Invalid signature")
	case errors.Is(err, provider.ErrUnknownProvider):
		response.NotFound(w, "Unknown provider")
	case err != nil:
		response.InternalError(w)
	default:
		response.OK(w, map[string]string{"status": "received"})
	}
}
