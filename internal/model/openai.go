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

// openAIURL is the Chat Completions endpoint. Package-level var for test substitution.
var openAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient calls the OpenAI Chat Completions API over plain HTTP.
type OpenAIClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	Options    Options
	Client     *http.Client
}

// NewOpenAI returns an OpenAIClient for cfg.
func NewOpenAI(cfg types.ProviderConfig, opts Options) *OpenAIClient {
	return &OpenAIClient{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Model:      strings.TrimSpace(cfg.Model),
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		Options:    opts,
		Client:     newHTTPClient(),
	}
}

func (c *OpenAIClient) Name() string { return types.ProviderOpenAI }

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, msgs []Message) (Completion, error) {
	if c.APIKey == "" {
		return nil, unavailable(c.Name(), fmt.Errorf("API key is empty"))
	}

	body, err := json.Marshal(openAIRequest{
		Model:       c.Model,
		Messages:    msgs,
		Temperature: c.Options.Temperature,
		MaxTokens:   c.Options.MaxTokens,
	})
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	url := openAIURL
	if c.BaseURL != "" {
		url = strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("calling OpenAI API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, unavailable(c.Name(), fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(data)))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("decoding OpenAI response: %w", err))
	}
	if len(oResp.Choices) == 0 {
		return nil, unavailable(c.Name(), fmt.Errorf("OpenAI API returned no choices"))
	}
	return textCompletion(oResp.Choices[0].Message.Content), nil
}
