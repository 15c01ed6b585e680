// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the question answering service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/internal/metrics"
	"github.com/pdiddy/sciqa/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// NewServeMux wires up all routes and middleware.
func NewServeMux(h *Handler, rateLimiter *IPRateLimiter, m *metrics.Metrics, allowOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /query", h.Query)
	mux.HandleFunc("POST /api/query", h.APIQuery)
	mux.HandleFunc("GET /answers", h.SearchAnswers)
	mux.HandleFunc("GET /answers/{id}", h.GetAnswer)
	mux.Handle("GET /metrics", m.Handler())

	// Stack middleware: outermost first.
	var handler http.Handler = mux
	handler = rateLimiter.Middleware(handler)
	handler = Logging(h.logger)(handler)
	handler = CORS(allowOrigin)(handler)
	handler = RequestID(handler)
	handler = Recovery(h.logger)(handler)

	return handler
}

// New builds the HTTP server for cfg.
func New(cfg types.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves srv until ctx is cancelled, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
