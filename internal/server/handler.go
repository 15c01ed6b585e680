// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/internal/archive"
	"github.com/pdiddy/sciqa/internal/logging"
	"github.com/pdiddy/sciqa/internal/qa"
	"github.com/pdiddy/sciqa/pkg/types"
)

const maxBodyBytes = 1 << 20

// Answerer answers one query.
type Answerer interface {
	Answer(ctx context.Context, q types.Query) (qa.Result, error)
}

// Archive looks up previously answered queries.
type Archive interface {
	Get(ctx context.Context, id string) (archive.Entry, error)
	Search(ctx context.Context, opts archive.QueryOptions) ([]archive.Entry, error)
}

// APIResponse wraps an answer with request metadata for /api/query.
// AnswerID names the archived answer for GET /answers/{id}; RequestID only
// correlates logs and may be reused by clients.
type APIResponse struct {
	RequestID string       `json:"request_id"`
	AnswerID  string       `json:"answer_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Cached    bool         `json:"cached"`
	Result    types.Answer `json:"result"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchResponse is the body of GET /answers.
type SearchResponse struct {
	Count   int             `json:"count"`
	Results []archive.Entry `json:"results"`
}

// Handler implements the HTTP endpoints. A nil archive disables the
// /answers endpoints.
type Handler struct {
	answerer Answerer
	archive  Archive
	model    string
	cfg      types.ServerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler returns a Handler serving answers from answerer. A nil arch
// disables the /answers endpoints; a nil logger discards logs.
func NewHandler(answerer Answerer, arch Archive, modelName string, cfg types.ServerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		answerer: answerer,
		archive:  arch,
		model:    modelName,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Health reports liveness and the configured model.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Model:     h.model,
		Timestamp: h.now().UTC(),
	})
}

// Query answers a question and returns the bare answer.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	res, err := h.answer(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Answer)
}

// APIQuery answers a question and wraps the answer with request metadata.
func (h *Handler) APIQuery(w http.ResponseWriter, r *http.Request) {
	res, err := h.answer(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		RequestID: res.RequestID,
		AnswerID:  res.AnswerID,
		Timestamp: h.now().UTC(),
		Cached:    res.Cached,
		Result:    res.Answer,
	})
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) (qa.Result, error) {
	var q types.Query
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&q); err != nil {
		return qa.Result{}, NewValidationError("invalid JSON body")
	}
	if err := h.validate(&q); err != nil {
		return qa.Result{}, err
	}

	ctx := r.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := h.answerer.Answer(ctx, q)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, NewTimeoutError(err)
	}
	return res, err
}

func (h *Handler) validate(q *types.Query) error {
	q.Question = strings.TrimSpace(q.Question)
	q.Domain = strings.TrimSpace(q.Domain)
	q.Context = strings.TrimSpace(q.Context)

	if q.Question == "" {
		return NewValidationError("question is required")
	}
	if h.cfg.MaxQuestionLen > 0 && utf8.RuneCountInString(q.Question) > h.cfg.MaxQuestionLen {
		return NewValidationError(fmt.Sprintf("question exceeds %d characters", h.cfg.MaxQuestionLen))
	}
	return nil
}

// GetAnswer returns one archived answer by the answer ID the server assigned
// when it was stored.
func (h *Handler) GetAnswer(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.respondError(w, r, NewNotFoundError("answer archive is disabled"))
		return
	}
	e, err := h.archive.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SearchAnswers searches archived answers.
func (h *Handler) SearchAnswers(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.respondError(w, r, NewNotFoundError("answer archive is disabled"))
		return
	}

	params := r.URL.Query()
	opts := archive.QueryOptions{
		Query:     params.Get("q"),
		Domain:    params.Get("domain"),
		RequestID: params.Get("request_id"),
	}
	if v := params.Get("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			h.respondError(w, r, NewValidationError("min_confidence must be a number between 0 and 1"))
			return
		}
		opts.MinConfidence = f
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respondError(w, r, NewValidationError("limit must be a positive integer"))
			return
		}
		opts.MaxResults = n
	}

	results, err := h.archive.Search(r.Context(), opts)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if results == nil {
		results = []archive.Entry{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Count: len(results), Results: results})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := classify(err)
	fields := []zap.Field{
		zap.String("request_id", logging.RequestID(r.Context())),
		zap.String("category", string(appErr.Category)),
		zap.Error(err),
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request_error", fields...)
	} else {
		h.logger.Info("request_rejected", fields...)
	}
	writeJSON(w, appErr.StatusCode, ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Category),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
