// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP question answering API",
	Long: `Serve starts the HTTP API. Endpoints:

  POST /query         answer a question, returning the answer object
  POST /api/query     answer a question with request metadata
  GET  /health        liveness and configured model
  GET  /answers/{id}  archived answer by request ID
  GET  /answers       search archived answers (q, domain, min_confidence, limit)
  GET  /metrics       Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		viper.Set("server.addr", addr)
	}
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var arch server.Archive
	if a.store != nil {
		arch = a.store
	}
	h := server.NewHandler(a.service, arch, a.model.Name(), cfg.Server, a.logger)
	limiter := server.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, cfg.Server.TrustProxy)
	srv := server.New(cfg.Server, server.NewServeMux(h, limiter, a.metrics, cfg.Server.AllowOrigin))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, srv, a.logger)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
