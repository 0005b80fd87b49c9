package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdata/internal/catalogue/models"
	"askdata/internal/interpreter/metrics"
)

// fakeGemini records which models were called and answers with the reply
// chosen by respond.
type fakeGemini struct {
	mu      sync.Mutex
	models  []string
	keys    []string
	respond func(model string, n int) (int, string)
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimSuffix(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], ":generateContent")
	f.mu.Lock()
	f.models = append(f.models, model)
	f.keys = append(f.keys, r.Header.Get("x-goog-api-key"))
	n := len(f.models)
	f.mu.Unlock()

	status, body := f.respond(model, n)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeGemini) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.models...)
}

func (f *fakeGemini) apiKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func textReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func errorReply(code int, status, message string) string {
	return fmt.Sprintf(`{"error":{"code":%d,"status":%q,"message":%q}}`, code, status, message)
}

func newTestClient(t *testing.T, fake *fakeGemini, cfg Config) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL + "/v1beta/models"
	if cfg.APIKey == "" {
		cfg.APIKey = "server-key"
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Millisecond
	}
	cfg.MaxBackoff = 5 * time.Millisecond
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, WithHTTPClient(srv.Client()), WithMetrics(m), WithLogger(logger)), m
}

func TestInterpret_DecodesFencedReply(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusOK, textReply("```json\n{\"success\": true, \"indicator_code\": \"FP.CPI.TOTL.ZG\", \"start_year\": 2018, \"end_year\": 2023}\n```")
	}}
	c, _ := newTestClient(t, fake, Config{})

	p, err := c.Interpret(context.Background(), Request{Query: "Taux d'inflation 2018-2023", Candidates: []string{"FP.CPI.TOTL.ZG|Inflation|"}})
	require.NoError(t, err)
	assert.True(t, p.Success)
	assert.Equal(t, "FP.CPI.TOTL.ZG", p.IndicatorCode)
	assert.Equal(t, MatchExact, p.MatchType)
	require.NotNil(t, p.StartYear)
	assert.Equal(t, 2018, *p.StartYear)
	assert.Equal(t, []string{DefaultPrimaryModel}, fake.calls())
}

func TestInterpret_PerCallKeyOverridesServerKey(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusOK, textReply(`{"success": false, "message": "Je ne sais pas."}`)
	}}
	c, _ := newTestClient(t, fake, Config{})

	p, err := c.Interpret(context.Background(), Request{Query: "chats", APIKey: "personal-key"})
	require.NoError(t, err)
	assert.False(t, p.Success)
	assert.Equal(t, []string{"personal-key"}, fake.apiKeys())
}

func TestInterpret_RateLimitDowngradesModel(t *testing.T) {
	fake := &fakeGemini{respond: func(model string, _ int) (int, string) {
		if model == DefaultPrimaryModel {
			return http.StatusTooManyRequests, errorReply(429, "RESOURCE_EXHAUSTED", "Quota exceeded for requests per minute")
		}
		return http.StatusOK, textReply(`{"success": true, "indicator_code": "SP.POP.TOTL"}`)
	}}
	c, m := newTestClient(t, fake, Config{MaxAttempts: 3})

	p, err := c.Interpret(context.Background(), Request{Query: "population"})
	require.NoError(t, err)
	assert.Equal(t, "SP.POP.TOTL", p.IndicatorCode)
	assert.Equal(t, []string{DefaultPrimaryModel, DefaultSecondaryModel}, fake.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downgrades))
}

func TestInterpret_QuotaExhaustionIsNotRetried(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusTooManyRequests, errorReply(429, "RESOURCE_EXHAUSTED",
			"Quota exceeded for metric: generate_content_free_tier_requests, limit: 0")
	}}
	c, _ := newTestClient(t, fake, Config{MaxAttempts: 5})

	_, err := c.Interpret(context.Background(), Request{Query: "pib"})
	require.Error(t, err)
	assert.Equal(t, CategoryQuotaExhausted, CategoryOf(err))
	assert.Len(t, fake.calls(), 1)
}

func TestInterpret_TransientFailuresAreBounded(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusServiceUnavailable, errorReply(503, "UNAVAILABLE", "overloaded")
	}}
	c, _ := newTestClient(t, fake, Config{MaxAttempts: 3})

	_, err := c.Interpret(context.Background(), Request{Query: "pib"})
	require.Error(t, err)
	assert.Equal(t, CategoryTransient, CategoryOf(err))
	assert.True(t, IsRetryable(err))
	assert.Len(t, fake.calls(), 3)
}

func TestInterpret_RecoversAfterTransientFailure(t *testing.T) {
	fake := &fakeGemini{respond: func(_ string, n int) (int, string) {
		if n == 1 {
			return http.StatusInternalServerError, errorReply(500, "INTERNAL", "boom")
		}
		return http.StatusOK, textReply(`{"success": true, "indicator_code": "SP.POP.TOTL"}`)
	}}
	c, _ := newTestClient(t, fake, Config{MaxAttempts: 3})

	p, err := c.Interpret(context.Background(), Request{Query: "population"})
	require.NoError(t, err)
	assert.Equal(t, "SP.POP.TOTL", p.IndicatorCode)
	assert.Equal(t, []string{DefaultPrimaryModel, DefaultPrimaryModel}, fake.calls())
}

func TestInterpret_MalformedReply(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusOK, textReply("Voici l'indicateur: SP.POP.TOTL")
	}}
	c, _ := newTestClient(t, fake, Config{MaxAttempts: 3})

	_, err := c.Interpret(context.Background(), Request{Query: "population"})
	require.Error(t, err)
	assert.Equal(t, CategoryMalformed, CategoryOf(err))
	assert.Len(t, fake.calls(), 1, "malformed output is not retried")
}

func TestInterpret_AuthenticationFailure(t *testing.T) {
	fake := &fakeGemini{respond: func(string, int) (int, string) {
		return http.StatusBadRequest, errorReply(400, "INVALID_ARGUMENT", "API key not valid. Please pass a valid API key.")
	}}
	c, _ := newTestClient(t, fake, Config{MaxAttempts: 3})

	_, err := c.Interpret(context.Background(), Request{Query: "population"})
	assert.Equal(t, CategoryAuthentication, CategoryOf(err))
	assert.Len(t, fake.calls(), 1)
}

func TestInterpret_NoKeyConfigured(t *testing.T) {
	c := New(Config{})
	_, err := c.Interpret(context.Background(), Request{Query: "pib"})
	assert.Equal(t, CategoryAuthentication, CategoryOf(err))
}

func TestInterpret_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		// Reading the body lets the server notice the client going away.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := New(Config{
		APIKey:         "k",
		Endpoint:       srv.URL,
		MaxAttempts:    1,
		AttemptTimeout: 20 * time.Millisecond,
	}, WithHTTPClient(srv.Client()))

	start := time.Now()
	_, err := c.Interpret(context.Background(), Request{Query: "pib"})
	require.Error(t, err)
	assert.Equal(t, CategoryTransient, CategoryOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestInterpret_ConcurrencyIsCapped(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = io.WriteString(w, textReply(`{"success": false}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "k", Endpoint: srv.URL, MaxConcurrent: 2}, WithHTTPClient(srv.Client()))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Interpret(context.Background(), Request{Query: "pib"})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExplain(t *testing.T) {
	prompts := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompts <- req.Contents[0].Parts[0].Text
		_, _ = io.WriteString(w, textReply(`{"message": "La population augmente.", "related_indicators": ["Croissance de la population (% annuel)", " "]}`))
	}))
	t.Cleanup(srv.Close)
	c := New(Config{APIKey: "k", Endpoint: srv.URL}, WithHTTPClient(srv.Client()))

	result := 2.5
	e, err := c.Explain(context.Background(), ExplainRequest{
		Query:         "population 2019-2020",
		IndicatorName: "Population, total",
		Series:        models.AnnualSeries{{Year: 2019, Value: 100}, {Year: 2020, Value: 102.5}},
		Calculation:   "variation",
		Result:        &result,
	})
	require.NoError(t, err)
	assert.Equal(t, "La population augmente.", e.Message)
	assert.Equal(t, []string{"Croissance de la population (% annuel)"}, e.Related)
	prompt := <-prompts
	assert.Contains(t, prompt, "2020: 102.5")
	assert.Contains(t, prompt, "CALCUL variation: 2.50")
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  bool
		category Category
	}{
		{name: "accepted key", status: http.StatusOK, body: `{"name":"models/gemini-2.5-flash"}`},
		{name: "invalid key", status: http.StatusBadRequest, body: errorReply(400, "INVALID_ARGUMENT", "API key not valid. Please pass a valid API key."), wantErr: true, category: CategoryAuthentication},
		{name: "forbidden key", status: http.StatusForbidden, body: errorReply(403, "PERMISSION_DENIED", "denied"), wantErr: true, category: CategoryAuthentication},
		{name: "upstream down", status: http.StatusServiceUnavailable, body: errorReply(503, "UNAVAILABLE", "overloaded"), wantErr: true, category: CategoryTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(chan [3]string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen <- [3]string{r.Method, r.URL.Path, r.Header.Get("x-goog-api-key")}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			c := New(Config{Endpoint: srv.URL + "/v1beta/models"}, WithHTTPClient(srv.Client()))
			err := c.Verify(context.Background(), "personal-key-0123456789")

			got := <-seen
			assert.Equal(t, http.MethodGet, got[0])
			assert.Equal(t, "/v1beta/models/"+DefaultPrimaryModel, got[1])
			assert.Equal(t, "personal-key-0123456789", got[2])
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}
