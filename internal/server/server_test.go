// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/sciqa/internal/archive"
	"github.com/pdiddy/sciqa/internal/logging"
	"github.com/pdiddy/sciqa/internal/metrics"
	"github.com/pdiddy/sciqa/internal/model"
	"github.com/pdiddy/sciqa/internal/qa"
	"github.com/pdiddy/sciqa/pkg/types"
)

// --- Mocks ---

type mockAnswerer struct {
	result  qa.Result
	err     error
	delay   time.Duration
	lastQ   types.Query
	lastCtx context.Context
}

func (m *mockAnswerer) Answer(ctx context.Context, q types.Query) (qa.Result, error) {
	m.lastQ = q
	m.lastCtx = ctx
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return qa.Result{}, fmt.Errorf("openai: %w: %w", model.ErrUnavailable, ctx.Err())
		}
	}
	if m.err != nil {
		return qa.Result{}, m.err
	}
	res := m.result
	res.RequestID = logging.RequestID(ctx)
	return res, nil
}

type mockArchive struct {
	entries  map[string]archive.Entry
	lastOpts archive.QueryOptions
	err      error
}

func (m *mockArchive) Get(_ context.Context, id string) (archive.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return archive.Entry{}, archive.ErrNotFound
	}
	return e, nil
}

func (m *mockArchive) Search(_ context.Context, opts archive.QueryOptions) ([]archive.Entry, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	var out []archive.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func sampleAnswer() types.Answer {
	return types.Answer{
		Background:     "Light scatters.",
		Reasoning:      "Shorter wavelengths scatter more.",
		Answer:         "Rayleigh scattering.",
		Confidence:     0.9,
		Citations:      []types.Citation{},
		FurtherReading: []string{},
	}
}

func defaultConfig() types.ServerConfig {
	return types.ServerConfig{
		Addr:           ":0",
		RequestTimeout: 5 * time.Second,
		AllowOrigin:    "*",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		MaxQuestionLen: 50,
	}
}

func newTestServer(t *testing.T, a Answerer, arch Archive) http.Handler {
	t.Helper()
	cfg := defaultConfig()
	h := NewHandler(a, arch, "openai>anthropic", cfg, zap.NewNop())
	return NewServeMux(h, NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxy), metrics.New(), cfg.AllowOrigin)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// --- Tests ---

func TestHealth(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, nil)
	rec := do(h, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "openai>anthropic", resp.Model)
	assert.False(t, resp.Timestamp.IsZero())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestQuery_ReturnsTypedAnswer(t *testing.T) {
	a := &mockAnswerer{result: qa.Result{Answer: sampleAnswer()}}
	h := newTestServer(t, a, nil)

	rec := do(h, http.MethodPost, "/query", `{"question":"  Why is the sky blue? ","domain":"Physics"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"background", "reasoning", "answer", "confidence", "citations", "further_reading"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, []any{}, body["citations"])
	assert.Equal(t, "Why is the sky blue?", a.lastQ.Question)
	assert.Equal(t, "Physics", a.lastQ.Domain)

	_, hasDeadline := a.lastCtx.Deadline()
	assert.True(t, hasDeadline, "request timeout should apply")
}

func TestAPIQuery_WrapsResult(t *testing.T) {
	a := &mockAnswerer{result: qa.Result{Answer: sampleAnswer(), Cached: true, AnswerID: "7f0c2a8e-answer"}}
	h := newTestServer(t, a, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"Q"}`))
	req.Header.Set("X-Request-ID", "client-id-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "client-id-1", resp.RequestID)
	assert.Equal(t, "client-id-1", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "7f0c2a8e-answer", resp.AnswerID, "archive lookups use the server-assigned id")
	assert.True(t, resp.Cached)
	assert.Equal(t, "Rayleigh scattering.", resp.Result.Answer)
}

func TestQuery_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question":`},
		{"missing question", `{"domain":"Physics"}`},
		{"blank question", `{"question":"   "}`},
		{"too long", `{"question":"` + strings.Repeat("x", 51) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAnswerer{result: qa.Result{Answer: sampleAnswer()}}
			h := newTestServer(t, a, nil)

			rec := do(h, http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(ErrCatValidation), decodeError(t, rec).Code)
			assert.Empty(t, a.lastQ.Question, "answerer must not be called")
		})
	}
}

func TestQuery_LengthCountsRunes(t *testing.T) {
	a := &mockAnswerer{result: qa.Result{Answer: sampleAnswer()}}
	h := newTestServer(t, a, nil)

	rec := do(h, http.MethodPost, "/query", `{"question":"`+strings.Repeat("é", 50)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCategory
	}{
		{"model unavailable", fmt.Errorf("answering question: %w", model.ErrUnavailable), http.StatusBadGateway, ErrCatModelUnavailable},
		{"deadline", fmt.Errorf("x: %w: %w", model.ErrUnavailable, context.DeadlineExceeded), http.StatusGatewayTimeout, ErrCatTimeout},
		{"empty question", qa.ErrEmptyQuestion, http.StatusBadRequest, ErrCatValidation},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &mockAnswerer{err: tt.err}, nil)
			rec := do(h, http.MethodPost, "/query", `{"question":"Q"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.code), decodeError(t, rec).Code)
		})
	}
}

func TestQuery_Timeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	a := &mockAnswerer{result: qa.Result{Answer: sampleAnswer()}, delay: time.Second}
	h := NewServeMux(NewHandler(a, nil, "m", cfg, zap.NewNop()), NewIPRateLimiter(100, 100, false), nil, "*")

	rec := do(h, http.MethodPost, "/query", `{"question":"Q"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, string(ErrCatTimeout), decodeError(t, rec).Code)
}

func TestAnswers_ArchiveDisabled(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, nil)

	rec := do(h, http.MethodGet, "/answers/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/answers?q=x", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnswer(t *testing.T) {
	arch := &mockArchive{entries: map[string]archive.Entry{
		"req-1": {ID: "req-1", Query: types.Query{Question: "Q"}, Answer: sampleAnswer(), Tier: "structured"},
	}}
	h := newTestServer(t, &mockAnswerer{}, arch)

	rec := do(h, http.MethodGet, "/answers/req-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var e archive.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "req-1", e.ID)
	assert.Equal(t, "Rayleigh scattering.", e.Answer.Answer)

	rec = do(h, http.MethodGet, "/answers/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(ErrCatNotFound), decodeError(t, rec).Code)
}

func TestSearchAnswers(t *testing.T) {
	arch := &mockArchive{entries: map[string]archive.Entry{
		"req-1": {ID: "req-1", Answer: sampleAnswer()},
	}}
	h := newTestServer(t, &mockAnswerer{}, arch)

	rec := do(h, http.MethodGet, "/answers?q=sky&domain=Physics&min_confidence=0.5&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, archive.QueryOptions{Query: "sky", Domain: "Physics", MinConfidence: 0.5, MaxResults: 5}, arch.lastOpts)
}

func TestSearchAnswers_ByRequestID(t *testing.T) {
	arch := &mockArchive{}
	h := newTestServer(t, &mockAnswerer{}, arch)

	rec := do(h, http.MethodGet, "/answers?request_id=dup-id", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dup-id", arch.lastOpts.RequestID)
}

func TestSearchAnswers_EmptyIsList(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, &mockArchive{})

	rec := do(h, http.MethodGet, "/answers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"results":[]}`, rec.Body.String())
}

func TestSearchAnswers_BadParams(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, &mockArchive{})

	for _, q := range []string{"min_confidence=abc", "min_confidence=1.5", "limit=0", "limit=x"} {
		t.Run(q, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/answers?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, nil)
	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, nil)
	rec := do(h, http.MethodOptions, "/query", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &mockAnswerer{}, nil)
	rec := do(h, http.MethodGet, "/query", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	cfg := defaultConfig()
	h := NewServeMux(NewHandler(&mockAnswerer{}, nil, "m", cfg, nil), NewIPRateLimiter(0.001, 2, false), nil, "*")

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req, false))
	assert.Equal(t, "192.0.2.1", clientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", clientIP(req, false), "forwarded header is ignored without a trusted proxy")
	assert.Equal(t, "10.0.0.1", clientIP(req, true), "trusted proxy appends the last hop")

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req, false))
}

func TestRateLimiter_SpoofedForwardedForStillLimited(t *testing.T) {
	cfg := defaultConfig()
	h := NewServeMux(NewHandler(&mockAnswerer{}, nil, "m", cfg, nil), NewIPRateLimiter(0.001, 2, false), nil, "*")

	codes := make([]int, 4)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(1, 1, false)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	for i := range 50 {
		l.getLimiter(fmt.Sprintf("198.51.100.%d", i))
	}
	assert.Len(t, l.limiters, 50)

	clock = clock.Add(limiterIdleTTL / 2)
	l.getLimiter("192.0.2.1")
	assert.Len(t, l.limiters, 51, "nothing is idle long enough yet")

	clock = clock.Add(limiterIdleTTL)
	l.getLimiter("192.0.2.2")
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "192.0.2.2")
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	h := Recovery(zap.New(core))(panicky)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(ErrCatUnknown), decodeError(t, rec).Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := RequestID(Logging(zap.New(core))(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "/brew", fields["path"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), fields["request_id"])
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = logging.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEqual(t, strings.Repeat("a", 500), got)
	assert.Len(t, got, 36)
}

func TestAppError(t *testing.T) {
	cause := errors.New("upstream")
	err := NewModelUnavailableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "model_unavailable")

	var appErr *AppError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := New(types.ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
