// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package training

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sciqa/pkg/types"
)

const (
	defaultMaxExamples = 10
	programName        = "scientific_qa"
	programDescription = "Scientific question answering system"
)

// Program is a trained few-shot configuration.
type Program struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Trainable   bool            `json:"trainable" yaml:"trainable"`
	Examples    []types.Example `json:"examples" yaml:"examples"`
}

// Train formats up to maxExamples training items as few-shot examples, in
// dataset order. A non-positive maxExamples uses 10.
func Train(ds types.Dataset, maxExamples int) Program {
	if maxExamples <= 0 {
		maxExamples = defaultMaxExamples
	}
	n := min(maxExamples, len(ds.Train))

	examples := make([]types.Example, 0, n)
	for _, item := range ds.Train[:n] {
		examples = append(examples, types.Example{Inputs: item.Question, Outputs: item.Answer})
	}
	return Program{
		Name:        programName,
		Description: programDescription,
		Trainable:   true,
		Examples:    examples,
	}
}

// SaveProgram writes p as YAML, creating the parent directory.
func SaveProgram(path string, p Program) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating program directory: %w", err)
	}
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing program %s: %w", path, err)
	}
	return nil
}

// LoadProgram reads a program written by SaveProgram.
func LoadProgram(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("reading program %s: %w", path, err)
	}
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("parsing program %s: %w", path, err)
	}
	return p, nil
}
