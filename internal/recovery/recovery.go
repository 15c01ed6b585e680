// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recovery turns a raw model completion into a fully populated
// answer record. Completions are untrusted: they arrive wrapped in
// markdown fences, surrounded by prose, or as near-miss JSON with comments
// and trailing commas. Parse degrades through a fixed chain of tiers
// (fence extraction, syntax repair, structured parse, regex field
// extraction) and then defaults and coerces every field, so the caller
// always receives a well-typed record and never an error.
package recovery

import (
	"fmt"
	"strings"
)

// Placeholder text substituted for absent text fields.
const (
	DefaultBackground = "No background information provided."
	DefaultReasoning  = "No reasoning provided."
	DefaultAnswer     = "No answer provided."

	// DefaultConfidence is used when confidence is absent or not numeric.
	DefaultConfidence = 0.5

	failedBackground = "Error parsing the response."
	failedReasoning  = "An error occurred during processing: %v"
)

// Tier names the stage of the fallback chain that produced a record.
type Tier string

const (
	// TierStructured means the candidate parsed as a JSON object.
	TierStructured Tier = "structured"

	// TierRegex means one or more flat fields were recovered by pattern match.
	TierRegex Tier = "regex"

	// TierRaw means nothing was recoverable and the raw text became the answer.
	TierRaw Tier = "raw"

	// TierFailed marks the zero-confidence sentinel returned after an
	// internal fault.
	TierFailed Tier = "failed"
)

// Record is the parser output. Every field is populated: text fields are
// non-empty, Confidence lies in [0, 1], and both sequences are non-nil.
// Citations and FurtherReading elements are passed through unvalidated;
// callers that need typed citations re-validate them.
type Record struct {
	Background     string  `json:"background"`
	Reasoning      string  `json:"reasoning"`
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	Citations      []any   `json:"citations"`
	FurtherReading []any   `json:"further_reading"`

	// Tier records which stage produced the record. It is not part of the
	// serialized answer.
	Tier Tier `json:"-"`
}

// LowConfidence reports whether the record is the failure sentinel or
// otherwise carries zero confidence.
func (r Record) LowConfidence() bool {
	return r.Confidence == 0
}

// Parse recovers an answer record from a raw completion. It never returns
// an error and never panics; an internal fault yields a sentinel record
// whose Answer holds the raw content and whose Confidence is 0.
func Parse(raw string) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			rec = failed(raw, r)
		}
	}()

	candidate := repair(extractCandidate(raw))
	if obj, ok := decodeObject(candidate); ok {
		rec = fromObject(obj)
		rec.Tier = TierStructured
		return rec
	}

	fields, matched := extractFields(raw)
	if !matched {
		// Nothing recognisable: the completion itself is the best answer.
		fields = map[string]any{"answer": strings.TrimSpace(raw)}
		rec = fromObject(fields)
		rec.Tier = TierRaw
		return rec
	}
	rec = fromObject(fields)
	rec.Tier = TierRegex
	return rec
}

// fromObject applies defaulting and coercion to a parsed or extracted
// field mapping.
func fromObject(obj map[string]any) Record {
	return Record{
		Background:     textField(obj["background"], DefaultBackground),
		Reasoning:      textField(obj["reasoning"], DefaultReasoning),
		Answer:         textField(obj["answer"], DefaultAnswer),
		Confidence:     confidenceField(obj["confidence"]),
		Citations:      listField(obj["citations"]),
		FurtherReading: listField(obj["further_reading"]),
	}
}

func failed(raw string, cause any) Record {
	answer := raw
	if strings.TrimSpace(answer) == "" {
		answer = DefaultAnswer
	}
	return Record{
		Background:     failedBackground,
		Reasoning:      fmt.Sprintf(failedReasoning, cause),
		Answer:         answer,
		Confidence:     0,
		Citations:      []any{},
		FurtherReading: []any{},
		Tier:           TierFailed,
	}
}
