// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fallback tries each client in order and returns the first successful
// completion. A cancelled context stops the chain immediately.
type Fallback struct {
	clients []Client
}

// NewFallback returns a Fallback over clients, tried in the given order.
func NewFallback(clients ...Client) *Fallback {
	return &Fallback{clients: clients}
}

// Name lists the chained providers, e.g. "openai>anthropic".
func (f *Fallback) Name() string {
	names := make([]string, len(f.clients))
	for i, c := range f.clients {
		names[i] = c.Name()
	}
	return strings.Join(names, ">")
}

// Complete implements Client.
func (f *Fallback) Complete(ctx context.Context, msgs []Message) (Completion, error) {
	var errs []error
	for _, c := range f.clients {
		comp, err := c.Complete(ctx, msgs)
		if err == nil {
			return comp, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all providers failed: %w: %w", ErrUnavailable, errors.Join(errs...))
}
