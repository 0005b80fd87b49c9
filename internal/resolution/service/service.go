// Package service resolves a question to one catalogue series.
//
// Resolution runs a fixed cascade: a trusted cache entry, then the quota
// check, then the direct phrase map, the interpreter and finally the
// keyword matcher. The first tier that yields a non-empty series wins.
// Running out of tiers is a normal outcome, reported as unresolved, or as
// unavailable when the interpreter failed for reasons other than a bad
// reply.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cachemodels "askdata/internal/cache/models"
	"askdata/internal/catalogue"
	catmodels "askdata/internal/catalogue/models"
	"askdata/internal/events"
	"askdata/internal/interpreter"
	"askdata/internal/matcher"
	"askdata/internal/resolution/metrics"
	"askdata/internal/resolution/models"
	"askdata/internal/resolution/ports"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/circuit"
	"askdata/pkg/requestcontext"
)

const tracerName = "askdata/resolution"

// Type aliases for shared interfaces.
type (
	Interpreter = ports.Interpreter
	Cache       = ports.Cache
	Quota       = ports.Quota
	Credentials = ports.Credentials
	Publisher   = ports.Publisher
)

type Service struct {
	catalogue   *catalogue.Catalogue
	matcher     *matcher.Matcher
	interpreter Interpreter
	breaker     *circuit.Breaker
	cache       Cache
	quota       Quota
	credentials Credentials
	publisher   Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer

	direct         []Phrase
	synonyms       map[string][]string
	prefilterLines int
	relatedLimit   int
}

type Option func(*Service)

func WithMatcher(m *matcher.Matcher) Option {
	return func(s *Service) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithInterpreter enables the interpreter tier.
func WithInterpreter(i Interpreter) Option {
	return func(s *Service) {
		s.interpreter = i
	}
}

// WithBreaker skips the interpreter tier while b is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithQuota(q Quota) Option {
	return func(s *Service) {
		s.quota = q
	}
}

func WithCredentials(c Credentials) Option {
	return func(s *Service) {
		s.credentials = c
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithDirectMap replaces the phrase table of the direct tier.
func WithDirectMap(table []Phrase) Option {
	return func(s *Service) {
		s.direct = table
	}
}

// WithSynonyms replaces the synonym expansions.
func WithSynonyms(synonyms map[string][]string) Option {
	return func(s *Service) {
		s.synonyms = synonyms
	}
}

// WithPrefilterLines bounds the candidate list offered to the interpreter.
func WithPrefilterLines(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.prefilterLines = n
		}
	}
}

// WithRelatedLimit bounds the related indicator names of a result.
func WithRelatedLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.relatedLimit = n
		}
	}
}

func New(cat *catalogue.Catalogue, opts ...Option) (*Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalogue is required")
	}
	svc := &Service{
		catalogue:      cat,
		matcher:        matcher.New(),
		logger:         slog.Default(),
		tracer:         otel.Tracer(tracerName),
		direct:         DefaultDirectMap(),
		synonyms:       DefaultSynonyms(),
		prefilterLines: matcher.DefaultPrefilterLines,
		relatedLimit:   matcher.DefaultRelatedLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// resolution is the outcome of the tiers, before quota and cache details
// are attached.
type resolution struct {
	entry       catalogue.Entry
	tier        models.Tier
	series      catmodels.AnnualSeries
	matchType   models.MatchType
	proxy       string
	calculation *models.Calculation
	explanation *interpreter.Explanation
}

// Resolve answers one question. Unresolved, unavailable and quota-exceeded
// answers are results, not errors; errors are reserved for invalid input
// and infrastructure failures.
func (s *Service) Resolve(ctx context.Context, req models.Request) (*models.Result, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query is required")
	}
	key := cachemodels.Key(query)

	ctx, span := s.tracer.Start(ctx, "resolution.Resolve", trace.WithAttributes(attribute.String("query_hash", key)))
	defer span.End()

	if cached := s.lookupCache(ctx, query, key); cached != nil {
		if err := s.attachRemaining(ctx, req.Identity, cached); err != nil {
			return nil, err
		}
		s.finish(ctx, cached, req.Identity, start)
		span.SetAttributes(attribute.String("tier", string(models.TierCache)))
		return cached, nil
	}

	remaining := -1
	if s.quota != nil {
		decision, err := s.quota.CheckAndIncrement(ctx, req.Identity)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			result := &models.Result{
				Outcome:         models.OutcomeQuotaExceeded,
				Message:         quotaMessage(req.Identity),
				QueryHash:       key,
				NeedsCredential: decision.NeedsCredential,
			}
			s.metrics.ObserveResolution(string(result.Outcome), "", time.Since(start))
			return result, nil
		}
		remaining = decision.Remaining
	}

	res, unavailable := s.cascade(ctx, query, req.Identity)

	var result *models.Result
	switch {
	case res != nil:
		result = s.buildResult(res, key)
		s.storeCache(ctx, query, result)
	case unavailable:
		result = &models.Result{Outcome: models.OutcomeUnavailable, Message: messageUnavailable, QueryHash: key}
	default:
		result = &models.Result{Outcome: models.OutcomeUnresolved, Message: messageUnresolved, QueryHash: key}
	}
	result.Remaining = remaining

	span.SetAttributes(attribute.String("outcome", string(result.Outcome)), attribute.String("tier", string(result.Tier)))
	s.finish(ctx, result, req.Identity, start)
	return result, nil
}

// cascade runs tiers 1 to 3. The flag reports that the interpreter was
// skipped or failed for a reason other than a malformed reply.
func (s *Service) cascade(ctx context.Context, query string, identity domain.Identity) (*resolution, bool) {
	if res := s.resolveDirect(query); res != nil {
		return res, false
	}

	res, unavailable := s.resolveInterpreted(ctx, query, identity)
	if res != nil {
		s.explain(ctx, query, identity, res)
		return res, false
	}

	if res := s.resolveMatched(query); res != nil {
		return res, false
	}
	return nil, unavailable
}

func (s *Service) resolveDirect(query string) *resolution {
	hit, ok := matchDirect(query, s.direct)
	if !ok || !hit.simple {
		return nil
	}
	entry, ok := s.catalogue.Lookup(hit.phrase.Code)
	if !ok {
		return nil
	}
	return s.fromText(query, entry, models.TierDirect)
}

func (s *Service) resolveMatched(query string) *resolution {
	terms := enrichedTerms(query, s.synonyms)
	if len(terms) == 0 {
		return nil
	}
	ranked := s.matcher.Rank(strings.Join(terms, " "), s.catalogue.Indicators())
	if len(ranked) == 0 {
		return nil
	}
	entry, ok := s.catalogue.Lookup(ranked[0].Indicator.Code)
	if !ok {
		return nil
	}
	return s.fromText(query, entry, models.TierMatcher)
}

// fromText applies the year range and calculation found in the query text.
func (s *Service) fromText(query string, entry catalogue.Entry, tier models.Tier) *resolution {
	series := entry.Series.Filter(ExtractYears(query))
	if len(series) == 0 {
		return nil
	}
	res := &resolution{entry: entry, tier: tier, series: series, matchType: models.MatchExact}
	if kind, ok := DetectCalculation(query); ok {
		c := Calculate(kind, series)
		res.calculation = &c
	}
	return res
}

func (s *Service) resolveInterpreted(ctx context.Context, query string, identity domain.Identity) (*resolution, bool) {
	if s.interpreter == nil {
		return nil, false
	}
	if s.breaker != nil && !s.breaker.Allow() {
		s.metrics.IncrementInterpreterSkipped()
		s.logger.InfoContext(ctx, "interpreter skipped, circuit open", "breaker", s.breaker.Name())
		return nil, true
	}

	terms := enrichedTerms(query, s.synonyms)
	apiKey := s.apiKey(ctx, identity)
	proposal, err := s.interpreter.Interpret(ctx, interpreter.Request{
		Query:      query,
		Candidates: matcher.Prefilter(terms, s.catalogue.Indicators(), matcher.EssentialCodes(), s.prefilterLines),
		Hints:      expand(query, s.synonyms),
		APIKey:     apiKey,
	})
	if err != nil {
		category := interpreter.CategoryOf(err)
		s.logger.WarnContext(ctx, "interpreter failed", "category", string(category), "error", err)
		switch {
		case category == interpreter.CategoryMalformed:
			s.recordInterpreterSuccess(ctx)
			return nil, false
		case apiKey != "" && keyBound(category):
			// A rejected or spent personal key says nothing about the upstream.
			s.logger.InfoContext(ctx, "personal credential failure not counted against circuit",
				"identity", identity.String(), "category", string(category))
		default:
			s.recordInterpreterFailure(ctx)
		}
		return nil, true
	}
	s.recordInterpreterSuccess(ctx)

	if !proposal.Success {
		return nil, false
	}
	entry, ok := s.catalogue.Lookup(proposal.IndicatorCode)
	if !ok {
		s.logger.InfoContext(ctx, "interpreter proposed an unknown indicator", "indicator_code", proposal.IndicatorCode)
		return nil, false
	}

	var years catmodels.YearRange
	if proposal.StartYear != nil {
		years.Start = *proposal.StartYear
	}
	if proposal.EndYear != nil {
		years.End = *proposal.EndYear
	}
	series := entry.Series.Filter(years)
	if len(series) == 0 {
		return nil, false
	}

	res := &resolution{
		entry:     entry,
		tier:      models.TierInterpreter,
		series:    series,
		matchType: models.MatchExact,
	}
	if proposal.MatchType == interpreter.MatchProxy {
		res.matchType = models.MatchProxy
		res.proxy = proposal.ProxyExplanation
	}
	if kind, ok := models.ParseCalculation(proposal.Calculation); ok {
		c := Calculate(kind, series)
		res.calculation = &c
	}
	return res, false
}

// explain asks for the narrative of an interpreted resolution. Failures
// leave the deterministic message in place.
func (s *Service) explain(ctx context.Context, query string, identity domain.Identity, res *resolution) {
	req := interpreter.ExplainRequest{
		Query:         query,
		IndicatorName: res.entry.Indicator.Name,
		Unit:          res.entry.Indicator.Unit,
		Series:        res.series,
		APIKey:        s.apiKey(ctx, identity),
	}
	if res.calculation != nil {
		req.Calculation = string(res.calculation.Kind)
		req.Result = res.calculation.Result
	}
	exp, err := s.interpreter.Explain(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "explanation failed, using template",
			"indicator_code", res.entry.Indicator.Code, "error", err)
		return
	}
	res.explanation = &exp
}

func (s *Service) buildResult(res *resolution, key string) *models.Result {
	ind := res.entry.Indicator
	result := &models.Result{
		Outcome:          models.OutcomeResolved,
		Tier:             res.tier,
		QueryHash:        key,
		IndicatorCode:    ind.Code,
		IndicatorName:    ind.Name,
		Unit:             ind.Unit,
		Source:           ind.Provider,
		SourceLink:       ind.SourceLink,
		MatchType:        res.matchType,
		ProxyExplanation: res.proxy,
		Data:             res.series,
		Calculation:      res.calculation,
	}

	result.Message = describe(ind.Name, ind.Unit, res.series, res.calculation, res.proxy)
	if res.explanation != nil && strings.TrimSpace(res.explanation.Message) != "" {
		result.Message = strings.TrimSpace(res.explanation.Message)
	}

	if res.explanation != nil {
		result.Related = s.knownNames(res.explanation.Related, ind.Name)
	}
	if len(result.Related) == 0 {
		result.Related = matcher.Related(ind, s.catalogue.Indicators(), s.relatedLimit)
	}
	return result
}

// knownNames keeps the names that exist in the catalogue, in catalogue
// spelling, excluding the resolved indicator itself.
func (s *Service) knownNames(names []string, self string) []string {
	index := s.catalogue.NameIndex()
	var out []string
	seen := make(map[string]struct{})
	for _, n := range names {
		code, ok := index[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			continue
		}
		entry, _ := s.catalogue.Lookup(code)
		name := entry.Indicator.Name
		if name == self {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == s.relatedLimit {
			break
		}
	}
	return out
}

// lookupCache returns the trusted cached result for query, or nil. Cache
// failures are logged and treated as misses.
func (s *Service) lookupCache(ctx context.Context, query, key string) *models.Result {
	if s.cache == nil {
		return nil
	}
	entry, err := s.cache.Lookup(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "cache lookup failed", "query_hash", key, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	result, err := decodeAnswer(entry.Key, entry.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "cached answer unreadable", "query_hash", key, "error", err)
		return nil
	}
	return result
}

func (s *Service) storeCache(ctx context.Context, query string, result *models.Result) {
	if s.cache == nil {
		return
	}
	payload, err := encodeAnswer(result)
	if err == nil {
		_, err = s.cache.Upsert(ctx, query, payload)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "answer not cached", "query_hash", result.QueryHash, "error", err)
	}
}

// attachRemaining reports the caller's quota on a cache hit without
// consuming it.
func (s *Service) attachRemaining(ctx context.Context, identity domain.Identity, result *models.Result) error {
	result.Remaining = -1
	if s.quota == nil {
		return nil
	}
	decision, err := s.quota.Peek(ctx, identity)
	if err != nil {
		return err
	}
	result.Remaining = decision.Remaining
	return nil
}

func (s *Service) apiKey(ctx context.Context, identity domain.Identity) string {
	if s.credentials == nil {
		return ""
	}
	key, err := s.credentials.APIKey(ctx, identity)
	if err != nil {
		s.logger.WarnContext(ctx, "personal credential unavailable, using server key", "identity", identity.String(), "error", err)
		return ""
	}
	return key
}

// keyBound reports whether a failure category belongs to the API key used
// rather than to the upstream service.
func keyBound(category interpreter.Category) bool {
	return category == interpreter.CategoryAuthentication || category == interpreter.CategoryQuotaExhausted
}

func (s *Service) recordInterpreterFailure(ctx context.Context) {
	if s.breaker == nil {
		return
	}
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "interpreter circuit opened", "breaker", s.breaker.Name())
	}
}

func (s *Service) recordInterpreterSuccess(ctx context.Context) {
	if s.breaker == nil {
		return
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "interpreter circuit closed", "breaker", s.breaker.Name())
	}
}

func (s *Service) finish(ctx context.Context, result *models.Result, identity domain.Identity, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.ObserveResolution(string(result.Outcome), string(result.Tier), elapsed)

	attrs := []any{
		"query_hash", result.QueryHash,
		"outcome", string(result.Outcome),
		"duration_ms", elapsed.Milliseconds(),
	}
	if result.Resolved() {
		attrs = append(attrs, "tier", string(result.Tier), "indicator_code", result.IndicatorCode)
	}
	s.logger.InfoContext(ctx, "query handled", attrs...)

	eventType := events.TypeQueryResolved
	switch result.Outcome {
	case models.OutcomeUnresolved:
		eventType = events.TypeQueryUnresolved
	case models.OutcomeUnavailable:
		eventType = events.TypeQueryUnavailable
	}
	event := events.Event{
		Type:     eventType,
		Key:      result.QueryHash,
		Identity: identity.String(),
		Attributes: map[string]string{
			"tier":           string(result.Tier),
			"indicator_code": result.IndicatorCode,
			"cached":         strconv.FormatBool(result.Cached),
		},
		Timestamp: requestcontext.Now(ctx),
	}
	if err := events.Emit(ctx, s.publisher, event); err != nil {
		s.logger.WarnContext(ctx, "query event not published", "query_hash", result.QueryHash, "error", err)
	}
}
