// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recovery

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Flat-field patterns used when the completion does not parse as JSON.
// A quoted value ends at the first double quote, so values that contain
// an escaped quote are truncated there.
var (
	backgroundRe = regexp.MustCompile(`"background"\s*:\s*"([^"]*)"`)
	reasoningRe  = regexp.MustCompile(`"reasoning"\s*:\s*"([^"]*)"`)
	answerRe     = regexp.MustCompile(`"answer"\s*:\s*"([^"]*)"`)
	confidenceRe = regexp.MustCompile(`"confidence"\s*:\s*([\d.]+)`)
)

// extractFields searches the raw completion for the four flat fields.
// It reports whether any of them matched. Citations and further reading
// are never recovered on this path.
func extractFields(raw string) (map[string]any, bool) {
	fields := make(map[string]any, 4)
	for key, re := range map[string]*regexp.Regexp{
		"background": backgroundRe,
		"reasoning":  reasoningRe,
		"answer":     answerRe,
		"confidence": confidenceRe,
	} {
		if m := re.FindStringSubmatch(raw); m != nil {
			fields[key] = m[1]
		}
	}
	return fields, len(fields) > 0
}

// textField returns v as display text, or def when v is absent, null, or
// blank. Scalars use their JSON text; arrays and objects are rendered as
// compact JSON.
func textField(v any, def string) string {
	var s string
	switch t := v.(type) {
	case nil:
		return def
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = compactJSON(t)
	}
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// confidenceField converts v to a number in [0, 1]. Text is parsed as a
// decimal; anything that does not yield a number, including NaN, falls
// back to DefaultConfidence.
func confidenceField(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		f = parseNumber(string(t))
	case string:
		f = parseNumber(t)
	case float64:
		f = t
	default:
		return DefaultConfidence
	}
	if math.IsNaN(f) {
		return DefaultConfidence
	}
	return math.Max(0, math.Min(1, f))
}

// parseNumber returns NaN when s is not a number. Overflow keeps the
// signed infinity so that clamping still applies.
func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// listField returns v when it is a JSON array and an empty slice otherwise.
func listField(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{}
}
