package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"askdata/internal/cache/models"
	"askdata/internal/cache/service"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/httputil"
	"askdata/pkg/requestcontext"
)

// Service records votes on cached answers.
type Service interface {
	RecordFeedback(ctx context.Context, key string, feedback models.Feedback) (*service.FeedbackResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/feedback", h.HandleFeedback)
}

// FeedbackRequest is the HTTP request body for POST /api/feedback.
type FeedbackRequest struct {
	QueryHash string `json:"query_hash"`
	Feedback  string `json:"feedback"`
}

func (r *FeedbackRequest) Normalize() {
	r.QueryHash = strings.ToLower(strings.TrimSpace(r.QueryHash))
	r.Feedback = strings.ToLower(strings.TrimSpace(r.Feedback))
}

func (r *FeedbackRequest) Validate() error {
	if r.QueryHash == "" {
		return dErrors.New(dErrors.CodeValidation, "query_hash is required")
	}
	if _, err := models.ParseFeedback(r.Feedback); err != nil {
		return dErrors.New(dErrors.CodeValidation, "feedback must be positive or negative")
	}
	return nil
}

type FeedbackResponse struct {
	Success     bool   `json:"success"`
	QueryHash   string `json:"query_hash"`
	Invalidated bool   `json:"invalidated"`
	Positive    int    `json:"positive"`
	Negative    int    `json:"negative"`
}

// HandleFeedback handles POST /api/feedback.
func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[FeedbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.RecordFeedback(ctx, req.QueryHash, models.Feedback(req.Feedback))
	if err != nil {
		h.logger.WarnContext(ctx, "feedback rejected",
			"request_id", requestID,
			"query_hash", req.QueryHash,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "feedback recorded",
		"request_id", requestID,
		"query_hash", res.Key,
		"feedback", req.Feedback,
		"invalidated", res.Invalidated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FeedbackResponse{
		Success:     true,
		QueryHash:   res.Key,
		Invalidated: res.Invalidated,
		Positive:    res.Positive,
		Negative:    res.Negative,
	})
}
