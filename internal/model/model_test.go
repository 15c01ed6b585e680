// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/pdiddy/sciqa/internal/httputil"
	"github.com/pdiddy/sciqa/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	geminiRetryDelay = time.Millisecond
}

var testMessages = []Message{
	{Role: RoleSystem, Content: "be precise"},
	{Role: RoleUser, Content: "Question: why is the sky blue?\n"},
}

// --- mocks ---

type mockClient struct {
	name  string
	reply string
	err   error
	calls int
}

func (m *mockClient) Name() string { return m.name }

func (m *mockClient) Complete(_ context.Context, _ []Message) (Completion, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return textCompletion(m.reply), nil
}

// --- OpenAI ---

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"answer\":\"Rayleigh\"}"}}]}`))
	}))
	defer ts.Close()

	c := NewOpenAI(types.ProviderConfig{
		AIConfig: types.AIConfig{Model: "gpt-4", APIKey: "sk-test"},
		BaseURL:  ts.URL,
	}, Options{Temperature: 0.2, MaxTokens: 100})

	comp, err := c.Complete(context.Background(), testMessages)
	require.NoError(t, err)

	assert.Equal(t, `{"answer":"Rayleigh"}`, comp.Content())
	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, testMessages, got.Messages)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 100, got.MaxTokens)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "returned 500"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"bad json", http.StatusOK, `not json`, "decoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := NewOpenAI(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "k"}, BaseURL: ts.URL}, Options{})
			_, err := c.Complete(context.Background(), testMessages)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	c := NewOpenAI(types.ProviderConfig{}, Options{})
	_, err := c.Complete(context.Background(), testMessages)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIClient_RetriesRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer ts.Close()

	c := NewOpenAI(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "k", MaxRetries: 2}, BaseURL: ts.URL}, Options{})
	comp, err := c.Complete(context.Background(), testMessages)

	require.NoError(t, err)
	assert.Equal(t, "ok", comp.Content())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// --- Anthropic ---

func TestAnthropicClient_Complete(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"tool_use"},{"type":"text","text":"part two"}]}`))
	}))
	defer ts.Close()

	c := NewAnthropic(types.ProviderConfig{
		AIConfig: types.AIConfig{Model: "claude", APIKey: "key"},
		BaseURL:  ts.URL,
	}, Options{})

	comp, err := c.Complete(context.Background(), testMessages)
	require.NoError(t, err)

	assert.Equal(t, "part one part two", comp.Content())
	assert.Equal(t, "be precise", got.System)
	assert.Equal(t, 4096, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer ts.Close()

	c := NewAnthropic(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "key"}, BaseURL: ts.URL}, Options{})
	_, err := c.Complete(context.Background(), testMessages)

	assert.ErrorIs(t, err, ErrUnavailable)
}

// --- Gemini ---

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func TestGeminiClient_Complete(t *testing.T) {
	c := NewGemini(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "g", Model: "gemini"}}, Options{})

	var gotSystem string
	var gotParts []genai.Part
	c.generate = func(_ context.Context, system string, parts []genai.Part) (*genai.GenerateContentResponse, error) {
		gotSystem, gotParts = system, parts
		return geminiResponse("hello"), nil
	}

	comp, err := c.Complete(context.Background(), testMessages)
	require.NoError(t, err)

	assert.Equal(t, "hello", comp.Content())
	assert.Equal(t, "be precise", gotSystem)
	assert.Equal(t, []genai.Part{genai.Text("Question: why is the sky blue?\n")}, gotParts)
}

func TestGeminiClient_RetriesThenFails(t *testing.T) {
	c := NewGemini(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "g"}}, Options{})
	calls := 0
	c.generate = func(context.Context, string, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "overloaded"}
	}

	_, err := c.Complete(context.Background(), testMessages)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, geminiAttempts, calls)
}

func TestGeminiClient_PermanentErrorsFailFast(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden, Message: "API key not valid"}},
		{"bad request", fmt.Errorf("generate: %w", &googleapi.Error{Code: http.StatusBadRequest})},
		{"no status", errors.New("invalid argument")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGemini(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "g"}}, Options{})
			calls := 0
			c.generate = func(context.Context, string, []genai.Part) (*genai.GenerateContentResponse, error) {
				calls++
				return nil, tt.err
			}

			_, err := c.Complete(context.Background(), testMessages)

			assert.ErrorIs(t, err, ErrUnavailable)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGeminiClient_NoDelayAfterLastAttempt(t *testing.T) {
	prev := geminiRetryDelay
	geminiRetryDelay = 100 * time.Millisecond
	t.Cleanup(func() { geminiRetryDelay = prev })

	c := NewGemini(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "g"}}, Options{})
	c.generate = func(context.Context, string, []genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
	}

	start := time.Now()
	_, err := c.Complete(context.Background(), testMessages)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrUnavailable)
	// Sleeps of 100ms and 200ms between three attempts; a third sleep would add 300ms.
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 550*time.Millisecond)
}

func TestRetryableGemini(t *testing.T) {
	assert.True(t, retryableGemini(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, retryableGemini(&googleapi.Error{Code: http.StatusBadGateway}))
	assert.True(t, retryableGemini(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusInternalServerError})))
	assert.False(t, retryableGemini(&googleapi.Error{Code: http.StatusUnauthorized}))
	assert.False(t, retryableGemini(errors.New("plain")))
}

func TestGeminiClient_RecoversAfterFailure(t *testing.T) {
	c := NewGemini(types.ProviderConfig{AIConfig: types.AIConfig{APIKey: "g"}}, Options{})
	calls := 0
	c.generate = func(context.Context, string, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		if calls == 1 {
			return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
		}
		return geminiResponse("second time"), nil
	}

	comp, err := c.Complete(context.Background(), testMessages)

	require.NoError(t, err)
	assert.Equal(t, "second time", comp.Content())
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}}},
	}}
	assert.Equal(t, "ab", firstText(resp))
}

// --- Fallback ---

func TestFallback_FirstSuccessWins(t *testing.T) {
	primary := &mockClient{name: "p", err: unavailable("p", errors.New("down"))}
	secondary := &mockClient{name: "s", reply: "from secondary"}
	tertiary := &mockClient{name: "t", reply: "unused"}

	f := NewFallback(primary, secondary, tertiary)
	comp, err := f.Complete(context.Background(), testMessages)

	require.NoError(t, err)
	assert.Equal(t, "from secondary", comp.Content())
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Equal(t, 0, tertiary.calls)
	assert.Equal(t, "p>s>t", f.Name())
}

func TestFallback_AllFail(t *testing.T) {
	a := &mockClient{name: "a", err: errors.New("a down")}
	b := &mockClient{name: "b", err: errors.New("b down")}

	_, err := NewFallback(a, b).Complete(context.Background(), testMessages)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestFallback_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &mockClient{name: "a", err: ctx.Err()}
	b := &mockClient{name: "b", reply: "late"}

	_, err := NewFallback(a, b).Complete(ctx, testMessages)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.calls)
}

// --- construction ---

func TestNew(t *testing.T) {
	cfg := types.DefaultConfig().Model

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai>anthropic", c.Name())

	cfg.Fallback = nil
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	cfg.Provider = types.ProviderGemini
	cfg.Fallback = []string{types.ProviderGemini, types.ProviderAnthropic}
	c, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini>anthropic", c.Name())

	cfg.Provider = "llama"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.Provider = ""
	cfg.Fallback = nil
	_, err = New(cfg)
	assert.Error(t, err)
}
