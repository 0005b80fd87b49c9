package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"askdata/internal/interpreter/metrics"
)

const (
	DefaultEndpoint       = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultPrimaryModel   = "gemini-2.5-flash"
	DefaultSecondaryModel = "gemini-2.5-flash-lite"

	maxReplyBytes = 1 << 20
	tracerName    = "askdata/interpreter"
)

// Config holds the client settings. Zero values take defaults.
type Config struct {
	APIKey         string
	Endpoint       string
	PrimaryModel   string
	SecondaryModel string
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrent  int64
	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
	Temperature       float64
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.PrimaryModel == "" {
		c.PrimaryModel = DefaultPrimaryModel
	}
	if c.SecondaryModel == "" {
		c.SecondaryModel = DefaultSecondaryModel
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 20 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 8 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	return c
}

// Client calls the Gemini generateContent API.
type Client struct {
	cfg     Config
	http    *http.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(int(cfg.RequestsPerSecond), 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interpret runs the first pass.
func (c *Client) Interpret(ctx context.Context, req Request) (Proposal, error) {
	ctx, span := c.tracer.Start(ctx, "interpreter.Interpret",
		trace.WithAttributes(attribute.Int("interpreter.candidates", len(req.Candidates))))
	defer span.End()

	text, model, err := c.generate(ctx, buildInterpretPrompt(req), req.APIKey)
	if err != nil {
		recordSpanError(span, err)
		return Proposal{}, err
	}
	p, err := parseProposal(text, model)
	if err != nil {
		recordSpanError(span, err)
		return Proposal{}, err
	}
	span.SetAttributes(attribute.Bool("interpreter.success", p.Success), attribute.String("interpreter.code", p.IndicatorCode))
	return p, nil
}

// Explain runs the second pass over a resolved series.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (Explanation, error) {
	ctx, span := c.tracer.Start(ctx, "interpreter.Explain")
	defer span.End()

	text, model, err := c.generate(ctx, buildExplainPrompt(req), req.APIKey)
	if err != nil {
		recordSpanError(span, err)
		return Explanation{}, err
	}
	e, err := parseExplanation(text, model)
	if err != nil {
		recordSpanError(span, err)
		return Explanation{}, err
	}
	return e, nil
}

// generate returns the reply text and the model that produced it.
func (c *Client) generate(ctx context.Context, prompt, apiKey string) (string, string, error) {
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	if apiKey == "" {
		return "", c.cfg.PrimaryModel, newUpstreamError(CategoryAuthentication, c.cfg.PrimaryModel, 0, "no API key configured", nil)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", c.cfg.PrimaryModel, newUpstreamError(CategoryTransient, c.cfg.PrimaryModel, 0, "no interpreter slot", err)
	}
	c.metrics.AddInFlight(1)
	defer func() {
		c.sem.Release(1)
		c.metrics.AddInFlight(-1)
	}()

	// op runs sequentially, so model needs no locking.
	var (
		model      = c.cfg.PrimaryModel
		downgraded bool
		text       string
	)

	op := func() error {
		m := model
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(newUpstreamError(CategoryTransient, m, 0, "pacing interrupted", err))
			}
		}
		out, err := c.call(ctx, m, prompt, apiKey)
		if err == nil {
			text = out
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var ue *UpstreamError
		if !errors.As(err, &ue) || !ue.Retryable() {
			return backoff.Permanent(err)
		}
		if ue.Category == CategoryRateLimited && !downgraded && c.cfg.SecondaryModel != m {
			model, downgraded = c.cfg.SecondaryModel, true
			c.metrics.IncrementDowngrade()
			c.logger.WarnContext(ctx, "interpreter rate limited, using secondary model",
				"from", m, "to", c.cfg.SecondaryModel)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.MaxInterval = c.cfg.MaxBackoff
	policy.MaxElapsedTime = 0
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, bounded, func(err error, wait time.Duration) {
		c.logger.InfoContext(ctx, "retrying interpreter call", "error", err, "wait_ms", wait.Milliseconds())
	})
	if err != nil {
		if ctx.Err() != nil && !errors.As(err, new(*UpstreamError)) {
			err = newUpstreamError(CategoryTransient, model, 0, "call cancelled", ctx.Err())
		}
		return "", model, err
	}
	return text, model, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// call performs one attempt.
func (c *Client) call(ctx context.Context, model, prompt, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()
	start := time.Now()

	text, err := c.do(ctx, model, prompt, apiKey)
	result := "ok"
	if err != nil {
		result = string(CategoryOf(err))
	}
	c.metrics.ObserveAttempt(model, result, time.Since(start))
	return text, err
}

func (c *Client) do(ctx context.Context, model, prompt, apiKey string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", Temperature: c.cfg.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode interpreter request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(c.cfg.Endpoint, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build interpreter request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", newUpstreamError(CategoryTransient, model, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", newUpstreamError(CategoryTransient, model, resp.StatusCode, "reading reply failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classify(model, resp.StatusCode, raw)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", newUpstreamError(CategoryMalformed, model, resp.StatusCode, "reply envelope does not decode", err)
	}
	if gr.Error != nil {
		return "", classify(model, gr.Error.Code, raw)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", newUpstreamError(CategoryMalformed, model, resp.StatusCode, "reply has no candidates", nil)
	}
	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// Verify checks that apiKey is accepted by reading the primary model's
// metadata, which costs no generation allowance. A rejected key is a
// CategoryAuthentication error.
func (c *Client) Verify(ctx context.Context, apiKey string) error {
	ctx, span := c.tracer.Start(ctx, "interpreter.verify",
		trace.WithAttributes(attribute.String("model", c.cfg.PrimaryModel)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.PrimaryModel)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		uerr := newUpstreamError(CategoryTransient, c.cfg.PrimaryModel, 0, "verify request failed", err)
		recordSpanError(span, uerr)
		return uerr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return newUpstreamError(CategoryTransient, c.cfg.PrimaryModel, resp.StatusCode, "reading verify reply failed", err)
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	uerr := classify(c.cfg.PrimaryModel, resp.StatusCode, raw)
	recordSpanError(span, uerr)
	return uerr
}

// classify maps an error reply onto the failure taxonomy. A 429 that
// reports a zero allowance or a per-day quota is exhaustion, not a rate
// limit.
func classify(model string, status int, body []byte) *UpstreamError {
	var envelope struct {
		Error apiError `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)
	msg := envelope.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	lower := strings.ToLower(string(body))

	switch {
	case status == http.StatusTooManyRequests || envelope.Error.Status == "RESOURCE_EXHAUSTED":
		if strings.Contains(lower, "limit: 0") || strings.Contains(lower, "perday") || strings.Contains(lower, "per_day") {
			return newUpstreamError(CategoryQuotaExhausted, model, status, msg, nil)
		}
		return newUpstreamError(CategoryRateLimited, model, status, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newUpstreamError(CategoryAuthentication, model, status, msg, nil)
	case status == http.StatusBadRequest && strings.Contains(lower, "api key"):
		return newUpstreamError(CategoryAuthentication, model, status, msg, nil)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return newUpstreamError(CategoryTransient, model, status, msg, nil)
	default:
		return newUpstreamError(CategoryMalformed, model, status, msg, nil)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(CategoryOf(err)))
}
