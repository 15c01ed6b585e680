// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation validates the loosely shaped citations carried by a
// recovered answer and renders typed citations for display and export.
package citation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/sciqa/internal/recovery"
	"github.com/pdiddy/sciqa/pkg/types"
)

// citationSchema accepts a year given as an integer or as digits in a
// string, and authors given as a list or as a single name.
const citationSchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title":   {"type": "string", "pattern": "\\S"},
		"authors": {"type": ["array", "string", "null"], "items": {"type": "string"}},
		"year":    {"type": ["integer", "string", "null"]},
		"source":  {"type": ["string", "null"]},
		"url":     {"type": ["string", "null"]}
	}
}`

var schema = mustSchema(citationSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compiling citation schema: %v", err))
	}
	return sc
}

// Validate checks one raw citation against the citation schema and
// converts it to a typed Citation.
func Validate(raw any) (types.Citation, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return types.Citation{}, fmt.Errorf("citation is %T, not an object", raw)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return types.Citation{}, fmt.Errorf("validating citation: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return types.Citation{}, fmt.Errorf("invalid citation: %v", errs)
	}

	c := types.Citation{
		Title:   strings.TrimSpace(obj["title"].(string)),
		Authors: authors(obj["authors"]),
		Year:    year(obj["year"]),
	}
	if s, ok := obj["source"].(string); ok {
		c.Source = strings.TrimSpace(s)
	}
	if u, ok := obj["url"].(string); ok && strings.TrimSpace(u) != "" {
		u = strings.TrimSpace(u)
		c.URL = &u
	}
	return c, nil
}

func authors(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, a := range t {
			if s, ok := a.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func year(v any) *int {
	var s string
	switch t := v.(type) {
	case fmt.Stringer:
		s = t.String()
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &y
}

// Normalize converts a recovered record into the typed answer returned to
// callers. Citations that fail validation are dropped; further reading
// keeps only non-blank strings. It returns the number of dropped citations.
func Normalize(rec recovery.Record) (types.Answer, int) {
	ans := types.Answer{
		Background:     rec.Background,
		Reasoning:      rec.Reasoning,
		Answer:         rec.Answer,
		Confidence:     rec.Confidence,
		Citations:      []types.Citation{},
		FurtherReading: []string{},
	}

	dropped := 0
	for _, raw := range rec.Citations {
		c, err := Validate(raw)
		if err != nil {
			dropped++
			continue
		}
		ans.Citations = append(ans.Citations, c)
	}

	for _, item := range rec.FurtherReading {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			ans.FurtherReading = append(ans.FurtherReading, strings.TrimSpace(s))
		}
	}
	return ans, dropped
}
