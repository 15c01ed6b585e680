// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists answered queries in SQLite so they can be
// looked up by answer ID, searched, and exported.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sciqa/pkg/types"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("answer not found")

// ErrDuplicateID is returned by Save when an entry with the same ID is
// already archived. Archived answers are never overwritten.
var ErrDuplicateID = errors.New("answer id already archived")

// timeLayout is fixed-width so created_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const defaultMaxResults = 20

// Entry is one archived question and its answer. ID is assigned by the
// server; RequestID is the correlation ID of the request that produced the
// answer and may repeat across entries.
type Entry struct {
	ID        string       `json:"id" yaml:"id"`
	RequestID string       `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	CacheKey  string       `json:"cache_key" yaml:"cache_key"`
	Query     types.Query  `json:"query" yaml:"query"`
	Answer    types.Answer `json:"answer" yaml:"answer"`
	Tier      string       `json:"tier" yaml:"tier"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// Store manages the answer archive database.
type Store struct {
	db         *sql.DB
	maxResults int
	now        func() time.Time
}

// NewStore opens or creates the archive database at cfg.Path, creating its
// parent directory and schema as needed.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := newFromDB(db, cfg.MaxResults)
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func newFromDB(db *sql.DB, maxResults int) *Store {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Store{db: db, maxResults: maxResults, now: time.Now}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS answers (
			id TEXT PRIMARY KEY,
			request_id TEXT,
			cache_key TEXT NOT NULL,
			question TEXT NOT NULL,
			domain TEXT,
			context TEXT,
			answer_json TEXT NOT NULL,
			confidence REAL NOT NULL,
			tier TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_cache_key ON answers(cache_key, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// Archives written before request_id existed gain the column in place.
	if err := s.addColumnIfMissing("answers", "request_id", "TEXT"); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_answers_request_id ON answers(request_id)`); err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

func (s *Store) addColumnIfMissing(table, column, decl string) error {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("adding %s.%s: %w", table, column, err)
	}
	return nil
}

// Save inserts e. An existing entry with the same ID is left untouched and
// ErrDuplicateID is returned. A zero CreatedAt is set to the current time.
func (s *Store) Save(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("archive entry has no id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	answerJSON, err := json.Marshal(e.Answer)
	if err != nil {
		return fmt.Errorf("marshaling answer: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answers (id, request_id, cache_key, question, domain, context, answer_json, confidence, tier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.CacheKey, e.Query.Question, e.Query.Domain, e.Query.Context,
		string(answerJSON), e.Answer.Confidence, e.Tier, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("saving answer %s: %w", e.ID, ErrDuplicateID)
		}
		return fmt.Errorf("saving answer %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, request_id, cache_key, question, domain, context, answer_json, tier, created_at FROM answers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e          Entry
		requestID  sql.NullString
		domain     sql.NullString
		qctx       sql.NullString
		tier       sql.NullString
		answerJSON string
		createdAt  string
	)
	if err := r.Scan(&e.ID, &requestID, &e.CacheKey, &e.Query.Question, &domain, &qctx, &answerJSON, &tier, &createdAt); err != nil {
		return Entry{}, err
	}
	e.RequestID = requestID.String
	e.Query.Domain = domain.String
	e.Query.Context = qctx.String
	e.Tier = tier.String

	if err := json.Unmarshal([]byte(answerJSON), &e.Answer); err != nil {
		return Entry{}, fmt.Errorf("decoding answer %s: %w", e.ID, err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at for %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}

// Get returns the entry with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("looking up answer %s: %w", id, err)
	}
	return e, nil
}

// Find returns the newest entry stored under cacheKey that is younger than
// maxAge. The boolean reports whether one was found.
func (s *Store) Find(ctx context.Context, cacheKey string, maxAge time.Duration) (Entry, bool, error) {
	cutoff := s.now().Add(-maxAge).UTC().Format(timeLayout)
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		selectColumns+` WHERE cache_key = ? AND created_at >= ? ORDER BY created_at DESC LIMIT 1`,
		cacheKey, cutoff,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("finding answer for key: %w", err)
	}
	return e, true, nil
}
