// Package handler exposes the caller's daily quota.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"askdata/internal/quota/models"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/httputil"
	"askdata/pkg/requestcontext"
)

type Service interface {
	Peek(ctx context.Context, identity domain.Identity) (models.Decision, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/quota", h.HandleStatus)
}

type StatusResponse struct {
	Identity        string `json:"identity_kind"`
	Remaining       int    `json:"remaining"`
	Used            int    `json:"used"`
	Limit           int    `json:"limit,omitempty"`
	Unbounded       bool   `json:"unbounded"`
	NeedsCredential bool   `json:"needs_credential"`
}

// HandleStatus handles GET /api/quota. It never consumes quota.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := requestcontext.Identity(ctx)
	if identity.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller could not be identified"))
		return
	}
	d, err := h.service.Peek(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "quota lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"identity", identity.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Identity:        string(identity.Kind),
		Remaining:       d.Remaining,
		Used:            d.Used,
		Limit:           d.Limit,
		Unbounded:       d.Unbounded,
		NeedsCredential: d.NeedsCredential,
	})
}
