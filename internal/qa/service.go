// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qa answers scientific questions end to end: cache lookup,
// prompt assembly, the model call, answer recovery, and persistence.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/internal/archive"
	"github.com/pdiddy/sciqa/internal/cache"
	"github.com/pdiddy/sciqa/internal/citation"
	"github.com/pdiddy/sciqa/internal/logging"
	"github.com/pdiddy/sciqa/internal/metrics"
	"github.com/pdiddy/sciqa/internal/model"
	"github.com/pdiddy/sciqa/internal/prompt"
	"github.com/pdiddy/sciqa/internal/recovery"
	"github.com/pdiddy/sciqa/pkg/types"
)

// ErrEmptyQuestion is returned when a query has no question text.
var ErrEmptyQuestion = errors.New("question is required")

// Request outcome labels recorded in metrics.
const (
	statusOK     = "ok"
	statusCached = "cached"
	statusError  = "error"
)

// Archiver persists answered queries and finds recent ones by cache key.
type Archiver interface {
	Save(ctx context.Context, e archive.Entry) error
	Find(ctx context.Context, cacheKey string, maxAge time.Duration) (archive.Entry, bool, error)
}

// Service answers queries. Model is required; every other field is
// optional and a nil value disables that step.
type Service struct {
	Model   model.Client
	Prompt  *prompt.Builder
	Cache   cache.Cache
	Archive Archiver
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// ArchiveMaxAge, when positive, lets an archived answer younger than
	// this serve a cache miss. The cache is refilled from the archive.
	ArchiveMaxAge time.Duration
}

// Result is one answered query. AnswerID names the archive entry holding
// the answer, and is empty when nothing was archived.
type Result struct {
	Answer    types.Answer
	Cached    bool
	Tier      recovery.Tier
	RequestID string
	AnswerID  string
}

// Answer answers q. The request ID is taken from ctx when present.
// Model failures are returned wrapping model.ErrUnavailable; a
// completion that cannot be parsed still yields an answer.
func (s *Service) Answer(ctx context.Context, q types.Query) (Result, error) {
	defer s.Metrics.TrackInFlight()()

	reqID := logging.RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := s.logger().With(zap.String("request_id", reqID))
	res := Result{RequestID: reqID}

	if strings.TrimSpace(q.Question) == "" {
		s.Metrics.ObserveRequest(statusError)
		return res, ErrEmptyQuestion
	}

	key := cache.Key(q)
	if s.Cache != nil {
		if ans, ok := s.Cache.Get(ctx, key); ok {
			s.Metrics.ObserveCacheHit()
			s.Metrics.ObserveRequest(statusCached)
			log.Info("cache_hit", zap.String("question", q.Question))
			res.Answer = ans
			res.Cached = true
			return res, nil
		}
	}

	if s.Archive != nil && s.ArchiveMaxAge > 0 {
		e, ok, err := s.Archive.Find(ctx, key, s.ArchiveMaxAge)
		switch {
		case err != nil:
			log.Warn("archive_lookup_failed", zap.Error(err))
		case ok:
			s.Metrics.ObserveCacheHit()
			s.Metrics.ObserveRequest(statusCached)
			log.Info("archive_hit",
				zap.String("question", q.Question),
				zap.String("archived_id", e.ID),
			)
			if s.Cache != nil {
				if err := s.Cache.Set(ctx, key, e.Answer); err != nil {
					log.Warn("cache_store_failed", zap.Error(err))
				}
			}
			res.Answer = e.Answer
			res.AnswerID = e.ID
			res.Tier = recovery.Tier(e.Tier)
			res.Cached = true
			return res, nil
		}
	}

	builder := s.Prompt
	if builder == nil {
		builder = prompt.NewBuilder(nil)
	}
	msgs, err := builder.Messages(q)
	if err != nil {
		s.Metrics.ObserveRequest(statusError)
		log.Error("request_error", zap.Error(err))
		return res, err
	}

	start := time.Now()
	completion, err := s.Model.Complete(ctx, msgs)
	elapsed := time.Since(start)
	s.Metrics.ObserveModelCall(s.Model.Name(), elapsed)
	if err != nil {
		s.Metrics.ObserveRequest(statusError)
		log.Error("request_error", zap.String("provider", s.Model.Name()), zap.Error(err))
		return res, fmt.Errorf("answering question: %w", err)
	}
	log.Info("model_call",
		zap.String("provider", s.Model.Name()),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int("examples", builder.Examples()),
	)

	rec := recovery.Parse(completion.Content())
	s.Metrics.ObserveTier(string(rec.Tier))

	ans, dropped := citation.Normalize(rec)
	log.Info("answer_recovered",
		zap.String("tier", string(rec.Tier)),
		zap.Float64("confidence", ans.Confidence),
		zap.Int("citations", len(ans.Citations)),
		zap.Int("dropped_citations", dropped),
	)
	res.Answer = ans
	res.Tier = rec.Tier

	// The failure sentinel is returned but never stored.
	if rec.Tier != recovery.TierFailed {
		res.AnswerID = s.store(ctx, log, key, q, res)
	}

	s.Metrics.ObserveRequest(statusOK)
	return res, nil
}

// store writes an answer to the cache and archive and returns the archive
// entry ID. Failures are logged and do not fail the request. Entries are
// keyed by a fresh ID since request IDs may come from clients.
func (s *Service) store(ctx context.Context, log *zap.Logger, key string, q types.Query, res Result) string {
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, res.Answer); err != nil {
			log.Warn("cache_store_failed", zap.Error(err))
		}
	}
	if s.Archive == nil {
		return ""
	}
	id := uuid.NewString()
	err := s.Archive.Save(ctx, archive.Entry{
		ID:        id,
		RequestID: res.RequestID,
		CacheKey:  key,
		Query:     q,
		Answer:    res.Answer,
		Tier:      string(res.Tier),
	})
	if err != nil {
		log.Warn("archive_save_failed", zap.Error(err))
		return ""
	}
	return id
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
