package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"askdata/internal/credential/service"
	"askdata/pkg/domain"
	"askdata/pkg/platform/httputil"
	authmw "askdata/pkg/platform/middleware/auth"
	"askdata/pkg/requestcontext"
)

// Service manages personal credentials.
type Service interface {
	Register(ctx context.Context, identity domain.Identity, apiKey string) (service.Status, error)
	Remove(ctx context.Context, identity domain.Identity) error
	Status(ctx context.Context, identity domain.Identity) (service.Status, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential endpoints. All of them require an account.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAccount(h.logger))
		r.Get("/api/credential", h.HandleStatus)
		r.Put("/api/credential", h.HandleRegister)
		r.Delete("/api/credential", h.HandleRemove)
	})
}

// RegisterRequest is the HTTP request body for PUT /api/credential.
// The key is validated by the service so the raw value is never logged here.
type RegisterRequest struct {
	APIKey string `json:"api_key"`
}

type StatusResponse struct {
	Registered bool   `json:"registered"`
	Hint       string `json:"hint,omitempty"`
}

// HandleStatus handles GET /api/credential.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.service.Status(ctx, requestcontext.Identity(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Registered: st.Registered, Hint: st.Hint})
}

// HandleRegister handles PUT /api/credential.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	identity := requestcontext.Identity(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	st, err := h.service.Register(ctx, identity, req.APIKey)
	if err != nil {
		h.logger.WarnContext(ctx, "credential registration failed",
			"request_id", requestID,
			"identity", identity.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential registration completed",
		"request_id", requestID,
		"identity", identity.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Registered: st.Registered, Hint: st.Hint})
}

// HandleRemove handles DELETE /api/credential.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := requestcontext.Identity(ctx)
	if err := h.service.Remove(ctx, identity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "credential removal completed",
		"request_id", requestcontext.RequestID(ctx),
		"identity", identity.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}
