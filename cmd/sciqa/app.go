// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/internal/archive"
	"github.com/pdiddy/sciqa/internal/cache"
	"github.com/pdiddy/sciqa/internal/logging"
	"github.com/pdiddy/sciqa/internal/metrics"
	"github.com/pdiddy/sciqa/internal/model"
	"github.com/pdiddy/sciqa/internal/prompt"
	"github.com/pdiddy/sciqa/internal/qa"
	"github.com/pdiddy/sciqa/internal/training"
	"github.com/pdiddy/sciqa/pkg/types"
)

// app holds the components shared by the commands.
type app struct {
	cfg     types.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	model   model.Client
	store   *archive.Store
	service *qa.Service
}

// newApp builds the answering pipeline from cfg. Examples come from
// program when non-nil, else from the trained program file if it exists.
func newApp(cfg types.Config, program *training.Program) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	client, err := model.New(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("configuring model: %w", err)
	}

	c, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring cache: %w", err)
	}

	if program == nil {
		p, err := training.LoadProgram(cfg.Training.ProgramPath)
		switch {
		case err == nil:
			program = &p
			logger.Info("loaded QA program",
				zap.String("path", cfg.Training.ProgramPath),
				zap.Int("examples", len(p.Examples)))
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("no trained program, using zero-shot prompt", zap.String("path", cfg.Training.ProgramPath))
		default:
			return nil, err
		}
	}
	var examples []types.Example
	if program != nil {
		examples = program.Examples
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		model:   client,
	}
	a.service = &qa.Service{
		Model:   client,
		Prompt:  prompt.NewBuilder(examples),
		Cache:   c,
		Metrics: a.metrics,
		Logger:  logger,
	}

	if cfg.Archive.Enabled {
		store, err := archive.NewStore(cfg.Archive)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.service.Archive = store
		if cfg.Cache.Enabled {
			a.service.ArchiveMaxAge = cfg.Cache.TTL
		}
	}
	return a, nil
}

// Close releases the archive and flushes the logger.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	a.logger.Sync()
}
