// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Query is a scientific question submitted for answering.
type Query struct {
	// Question is the natural-language question text. Required.
	Question string `json:"question" yaml:"question"`

	// Domain names the scientific field (e.g. "Physics", "Biology"). Optional.
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// Context carries additional background supplied by the caller. Optional.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// Citation is a bibliographic reference attached to an answer.
type Citation struct {
	// Title is the cited work's title. Required.
	Title string `json:"title" yaml:"title"`

	// Authors lists the cited work's authors in order. May be empty.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, when known.
	Year *int `json:"year,omitempty" yaml:"year,omitempty"`

	// Source is the journal, publisher, or venue.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// URL locates the work online, when known.
	URL *string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Answer is the typed, validated answer returned to callers.
type Answer struct {
	Background     string     `json:"background" yaml:"background"`
	Reasoning      string     `json:"reasoning" yaml:"reasoning"`
	Answer         string     `json:"answer" yaml:"answer"`
	Confidence     float64    `json:"confidence" yaml:"confidence"`
	Citations      []Citation `json:"citations" yaml:"citations"`
	FurtherReading []string   `json:"further_reading" yaml:"further_reading"`
}

// Example is one few-shot demonstration: a query and its reference answer.
type Example struct {
	Inputs  Query  `json:"inputs" yaml:"inputs"`
	Outputs Answer `json:"outputs" yaml:"outputs"`
}

// DatasetItem pairs a query with its ground-truth answer.
type DatasetItem struct {
	Question Query  `json:"question" yaml:"question"`
	Answer   Answer `json:"answer" yaml:"answer"`
}

// Dataset holds the training and validation splits used by the
// training and evaluation harness.
type Dataset struct {
	Train      []DatasetItem `json:"train" yaml:"train"`
	Validation []DatasetItem `json:"validation" yaml:"validation"`
}
