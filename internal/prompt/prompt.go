// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt assembles the system and user messages sent to the
// model for one scientific query.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/sciqa/internal/model"
	"github.com/pdiddy/sciqa/pkg/types"
)

// systemTmpl instructs the model to answer with a single JSON object and,
// when examples are present, appends them as few-shot demonstrations.
var systemTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
	"year": func(y *int) string {
		if y == nil {
			return ""
		}
		return fmt.Sprint(*y)
	},
}).Parse(`You are a scientific question answering system.
Provide comprehensive, accurate answers to scientific questions.

Format your response as a structured JSON with these fields:
{
  "background": "Background information and context for the question",
  "reasoning": "Step-by-step reasoning process and explanation",
  "answer": "Clear and concise answer to the question",
  "confidence": 0.95,
  "citations": [
    {
      "title": "Title of source",
      "authors": ["Author 1", "Author 2"],
      "year": 2023,
      "source": "Journal or publication",
      "url": "https://example.com/source"
    }
  ],
  "further_reading": ["Suggested reading 1", "Suggested reading 2"]
}

CRITICAL INSTRUCTIONS:
1. Your response MUST be valid JSON - check for missing commas, incorrect quoting, etc.
2. Do not wrap the response in markdown code fences
3. Ensure all JSON fields have valid values - no trailing commas, properly quoted strings
4. The "confidence" value must be a number between 0 and 1, not a string
5. Authors and further_reading must be valid arrays, even if empty
6. Only include the JSON object with no other text before or after
{{- if .}}

Here are some examples of how to answer scientific questions:
{{range $i, $ex := .}}
Example {{inc $i}}:
Question: {{$ex.Inputs.Question}}
{{- if $ex.Inputs.Domain}}
Domain: {{$ex.Inputs.Domain}}
{{- end}}

Background: {{$ex.Outputs.Background}}
Reasoning: {{$ex.Outputs.Reasoning}}
Answer: {{$ex.Outputs.Answer}}
Confidence: {{$ex.Outputs.Confidence}}
{{- if $ex.Outputs.Citations}}
Citations:
{{- range $ex.Outputs.Citations}}
- {{.Title}} ({{year .Year}}) by {{join .Authors ", "}}. {{.Source}}
{{- end}}
{{- end}}
{{end}}
{{- end}}
`))

var userTmpl = template.Must(template.New("user").Parse(`Question: {{.Question}}
{{- if .Domain}}
Domain: {{.Domain}}
{{- end}}
{{- if .Context}}
Additional Context: {{.Context}}
{{- end}}
`))

// Builder renders prompts from an immutable set of few-shot examples.
type Builder struct {
	examples []types.Example
}

// NewBuilder returns a Builder over a copy of examples.
func NewBuilder(examples []types.Example) *Builder {
	return &Builder{examples: append([]types.Example(nil), examples...)}
}

// Examples returns the number of few-shot examples in the system message.
func (b *Builder) Examples() int {
	return len(b.examples)
}

// System renders the system message.
func (b *Builder) System() (string, error) {
	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, b.examples); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return buf.String(), nil
}

// User renders the user message for q.
func (b *Builder) User(q types.Query) (string, error) {
	var buf bytes.Buffer
	if err := userTmpl.Execute(&buf, q); err != nil {
		return "", fmt.Errorf("rendering user prompt: %w", err)
	}
	return buf.String(), nil
}

// Messages returns the system and user messages for q, in order.
func (b *Builder) Messages(q types.Query) ([]model.Message, error) {
	sys, err := b.System()
	if err != nil {
		return nil, err
	}
	usr, err := b.User(q)
	if err != nil {
		return nil, err
	}
	return []model.Message{
		{Role: model.RoleSystem, Content: sys},
		{Role: model.RoleUser, Content: usr},
	}, nil
}
