package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"askdata/internal/resolution/models"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/httputil"
	"askdata/pkg/requestcontext"
)

// Service resolves questions.
type Service interface {
	Resolve(ctx context.Context, req models.Request) (*models.Result, error)
}

// Handler wires the query endpoint to the resolution service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the query endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/query", h.HandleQuery)
}

// HandleQuery handles POST /api/query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	identity := requestcontext.Identity(ctx)
	if identity.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller could not be identified"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Resolve(ctx, models.Request{Query: req.Query, Identity: identity})
	if err != nil {
		h.logger.ErrorContext(ctx, "query resolution failed",
			"request_id", requestID,
			"identity", identity.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "query answered",
		"request_id", requestID,
		"identity", identity.String(),
		"query_hash", result.QueryHash,
		"outcome", string(result.Outcome),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, statusFor(result.Outcome), FromResult(result))
}

func statusFor(o models.Outcome) int {
	switch o {
	case models.OutcomeQuotaExceeded:
		return http.StatusTooManyRequests
	case models.OutcomeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}
