// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model calls language-model providers. Every backend exposes the
// same narrow Client interface and reports any failure as ErrUnavailable,
// so callers branch on a single error kind.
package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/sciqa/pkg/types"
)

// ErrUnavailable is wrapped by every error a Client returns.
var ErrUnavailable = errors.New("model unavailable")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the model's reply. Only its text is exposed.
type Completion interface {
	Content() string
}

type textCompletion string

func (c textCompletion) Content() string { return string(c) }

// Client sends a conversation to a model and returns its completion.
type Client interface {
	Complete(ctx context.Context, msgs []Message) (Completion, error)
	Name() string
}

// Options are the generation settings shared by all providers.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrUnavailable, err)
}

// newHTTPClient returns a client tuned for long model responses: bounded
// connect and header waits, no overall timeout so the caller's context
// governs the body read.
func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &http.Client{Transport: tr}
}

// NewProvider builds the client for one named provider.
func NewProvider(name string, cfg types.ModelConfig) (Client, error) {
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	switch name {
	case types.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, opts), nil
	case types.ProviderAnthropic:
		return NewAnthropic(cfg.Anthropic, opts), nil
	case types.ProviderGemini:
		return NewGemini(cfg.Gemini, opts), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", name)
	}
}

// New builds the configured primary client followed by its fallbacks.
// A single provider is returned as is; more than one is wrapped in a
// Fallback chain. Duplicate provider names are ignored.
func New(cfg types.ModelConfig) (Client, error) {
	names := append([]string{cfg.Provider}, cfg.Fallback...)
	seen := make(map[string]bool, len(names))

	var clients []Client
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		c, err := NewProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	switch len(clients) {
	case 0:
		return nil, fmt.Errorf("no model provider configured")
	case 1:
		return clients[0], nil
	default:
		return NewFallback(clients...), nil
	}
}
