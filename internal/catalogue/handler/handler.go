// Package handler exposes the indicator catalogue over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"askdata/internal/catalogue"
	"askdata/internal/catalogue/models"
	"askdata/internal/matcher"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/httputil"
	"askdata/pkg/requestcontext"
)

const maxRelatedLimit = 20

// Catalogue is the read side of the indicator catalogue.
type Catalogue interface {
	Lookup(code string) (catalogue.Entry, bool)
	Indicators() []models.Indicator
}

// Searcher ranks indicators against free text.
type Searcher interface {
	Search(query string, indicators []models.Indicator) []models.Indicator
}

type Handler struct {
	catalogue Catalogue
	searcher  Searcher
	logger    *slog.Logger
}

func New(cat Catalogue, searcher Searcher, logger *slog.Logger) *Handler {
	return &Handler{catalogue: cat, searcher: searcher, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/indicators", h.HandleList)
	r.Get("/api/indicator/{code}", h.HandleGet)
	r.Get("/api/indicator/{code}/related", h.HandleRelated)
}

// HandleList handles GET /api/indicators[?search=...].
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	inds := h.catalogue.Indicators()
	if search != "" {
		inds = h.searcher.Search(search, inds)
	}
	out := make([]IndicatorResponse, len(inds))
	for i, ind := range inds {
		out[i] = toIndicatorResponse(ind)
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Count: len(out), Indicators: out})
}

// HandleGet handles GET /api/indicator/{code}[?start=YYYY&end=YYYY].
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	years, err := parseRange(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	data := entry.Series.Filter(years)
	if data == nil {
		data = models.AnnualSeries{}
	}
	h.logger.DebugContext(ctx, "indicator served",
		"request_id", requestcontext.RequestID(ctx),
		"indicator_code", entry.Indicator.Code,
		"points", len(data),
	)
	httputil.WriteJSON(w, http.StatusOK, DetailResponse{
		IndicatorResponse: toIndicatorResponse(entry.Indicator),
		Methodology:       entry.Indicator.Methodology,
		Frequency:         string(entry.Frequency),
		Data:              []models.Point(data),
	})
}

// HandleRelated handles GET /api/indicator/{code}/related[?limit=n].
func (h *Handler) HandleRelated(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	limit := matcher.DefaultRelatedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRelatedLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 20"))
			return
		}
		limit = n
	}
	names := matcher.Related(entry.Indicator, h.catalogue.Indicators(), limit)
	if names == nil {
		names = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, RelatedResponse{Code: entry.Indicator.Code, Related: names})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (catalogue.Entry, bool) {
	code := chi.URLParam(r, "code")
	entry, ok := h.catalogue.Lookup(code)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown indicator code"))
		return catalogue.Entry{}, false
	}
	return entry, true
}

func parseRange(r *http.Request) (models.YearRange, error) {
	var yr models.YearRange
	for _, p := range []struct {
		name string
		dst  *int
	}{{"start", &yr.Start}, {"end", &yr.End}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return models.YearRange{}, dErrors.New(dErrors.CodeValidation, p.name+" must be a year")
		}
		*p.dst = n
	}
	if yr.Start != 0 && yr.End != 0 && yr.Start > yr.End {
		return models.YearRange{}, dErrors.New(dErrors.CodeValidation, "start must not be after end")
	}
	return yr, nil
}
