// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/sciqa/pkg/types"
)

// geminiRetryDelay is the linear backoff step between Gemini attempts.
// Tests override this to avoid real sleeps.
var geminiRetryDelay = 300 * time.Millisecond

const geminiAttempts = 3

// generateFunc performs one GenerateContent call. The SDK-backed
// implementation is replaced in tests.
type generateFunc func(ctx context.Context, system string, parts []genai.Part) (*genai.GenerateContentResponse, error)

// GeminiClient calls Google's Gemini API through the generative-ai-go SDK.
type GeminiClient struct {
	APIKey   string
	Model    string
	BaseURL  string
	Options  Options
	generate generateFunc
}

// NewGemini returns a GeminiClient for cfg.
func NewGemini(cfg types.ProviderConfig, opts Options) *GeminiClient {
	c := &GeminiClient{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Model:   strings.TrimSpace(cfg.Model),
		BaseURL: cfg.BaseURL,
		Options: opts,
	}
	c.generate = c.sdkGenerate
	return c
}

func (c *GeminiClient) Name() string { return types.ProviderGemini }

func (c *GeminiClient) sdkGenerate(ctx context.Context, system string, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.BaseURL))
	}
	cl, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.Model)
	m.SetTemperature(float32(c.Options.Temperature))
	if c.Options.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(c.Options.MaxTokens))
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return m.GenerateContent(ctx, parts...)
}

// Complete implements Client. Rate limits and server errors are retried up
// to three attempts with a linear delay; any other error fails at once.
func (c *GeminiClient) Complete(ctx context.Context, msgs []Message) (Completion, error) {
	if c.APIKey == "" {
		return nil, unavailable(c.Name(), fmt.Errorf("API key is empty"))
	}

	var system []string
	var parts []genai.Part
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}

	var lastErr error
	for attempt := 1; attempt <= geminiAttempts; attempt++ {
		resp, err := c.generate(ctx, strings.Join(system, "\n\n"), parts)
		if err == nil {
			txt := firstText(resp)
			if txt == "" {
				return nil, unavailable(c.Name(), fmt.Errorf("Gemini returned an empty response"))
			}
			return textCompletion(txt), nil
		}
		lastErr = err
		if attempt == geminiAttempts || !retryableGemini(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, unavailable(c.Name(), ctx.Err())
		case <-time.After(time.Duration(attempt) * geminiRetryDelay):
		}
	}
	if !retryableGemini(lastErr) {
		return nil, unavailable(c.Name(), lastErr)
	}
	return nil, unavailable(c.Name(), fmt.Errorf("after %d attempts: %w", geminiAttempts, lastErr))
}

// retryableGemini reports whether err carries an HTTP 429 or 5xx status.
// REST errors surface as *googleapi.Error, sometimes behind a wrapper that
// only exposes HTTPCode.
func retryableGemini(err error) bool {
	code := 0
	var gerr *googleapi.Error
	var coded interface{ HTTPCode() int }
	switch {
	case errors.As(err, &gerr):
		code = gerr.Code
	case errors.As(err, &coded):
		code = coded.HTTPCode()
	}
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// firstText returns the concatenated text parts of the first candidate
// that has any.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
