// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/sciqa/internal/httputil"
	"github.com/pdiddy/sciqa/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Claude Messages API over plain HTTP.
type AnthropicClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	Options    Options
	Client     *http.Client
}

// NewAnthropic returns an AnthropicClient for cfg.
func NewAnthropic(cfg types.ProviderConfig, opts Options) *AnthropicClient {
	return &AnthropicClient{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Model:      strings.TrimSpace(cfg.Model),
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		Options:    opts,
		Client:     newHTTPClient(),
	}
}

func (c *AnthropicClient) Name() string { return types.ProviderAnthropic }

// claudeRequest is the request body for the Claude Messages API. System
// text travels in its own field rather than as a message.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, msgs []Message) (Completion, error) {
	if c.APIKey == "" {
		return nil, unavailable(c.Name(), fmt.Errorf("API key is empty"))
	}

	maxTokens := c.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: c.Options.Temperature,
	}
	var system []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		reqBody.Messages = append(reqBody.Messages, claudeMessage{Role: m.Role, Content: m.Content})
	}
	reqBody.System = strings.Join(system, "\n\n")

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	url := claudeAPIURL
	if c.BaseURL != "" {
		url = strings.TrimRight(c.BaseURL, "/") + "/v1/messages"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("calling Claude API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, unavailable(c.Name(), fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body)))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("decoding Claude response: %w", err))
	}

	var text strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, unavailable(c.Name(), fmt.Errorf("no text content in Claude API response"))
	}
	return textCompletion(text.String()), nil
}
