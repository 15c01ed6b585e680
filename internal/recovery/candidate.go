// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recovery

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

const (
	fence     = "```"
	jsonFence = "```json"
)

// extractCandidate isolates the text most likely to hold the JSON object:
// the body of a ```json fence, else the body of the first fence, else the
// greedy span from the first '{' to the last '}', else the whole input.
// A fence with no closing marker runs to the end of the input.
func extractCandidate(raw string) string {
	if i := strings.Index(raw, jsonFence); i >= 0 {
		return strings.TrimSpace(untilFence(raw[i+len(jsonFence):]))
	}
	if i := strings.Index(raw, fence); i >= 0 {
		body := untilFence(raw[i+len(fence):])
		return strings.TrimSpace(skipInfoString(body))
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func untilFence(s string) string {
	if j := strings.Index(s, fence); j >= 0 {
		return s[:j]
	}
	return s
}

// skipInfoString drops a language tag such as "JSON" or "javascript" that
// follows an opening fence on the same line.
func skipInfoString(body string) string {
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return body
	}
	tag := strings.TrimSpace(body[:nl])
	if tag == "" || strings.ContainsAny(tag, " \t{[\"") {
		return body
	}
	return body[nl+1:]
}

// repair strips // line comments and removes commas that directly precede
// a closing ']' or '}'. Both passes skip over string literals so that URLs
// and punctuation inside values survive.
func repair(candidate string) string {
	return dropTrailingCommas(stripLineComments(candidate))
}

func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' && closesNext(s[i+1:]) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closesNext reports whether the first non-whitespace byte of s is a
// closing bracket or brace.
func closesNext(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ']', '}':
			return true
		default:
			return false
		}
	}
	return false
}

// decodeObject parses s as a single JSON object. Any other JSON value,
// trailing data, or a syntax error reports false. Numbers are kept as
// json.Number so out-of-range literals do not fail the whole document.
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return obj, true
}

// compactJSON renders a nested value as compact JSON text.
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
