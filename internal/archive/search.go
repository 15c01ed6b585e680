// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for archive searches.
type QueryOptions struct {
	// Query matches a substring of the question or the answer text.
	Query string

	// Domain filters by domain, case-insensitively.
	Domain string

	// RequestID restricts results to answers produced under one request
	// correlation ID.
	RequestID string

	// MinConfidence drops entries below this confidence.
	MinConfidence float64

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Search returns archived entries matching opts, newest first.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectColumns + ` WHERE 1=1`)

	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		qb.WriteString(` AND (question LIKE ? ESCAPE '\' OR answer_json LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if opts.Domain != "" {
		qb.WriteString(` AND domain = ? COLLATE NOCASE`)
		args = append(args, opts.Domain)
	}

	if opts.RequestID != "" {
		qb.WriteString(` AND request_id = ?`)
		args = append(args, opts.RequestID)
	}

	if opts.MinConfidence > 0 {
		qb.WriteString(` AND confidence >= ?`)
		args = append(args, opts.MinConfidence)
	}

	qb.WriteString(` ORDER BY created_at DESC LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
