// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package training builds few-shot programs from a labelled dataset and
// scores generated answers against reference answers.
package training

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sciqa/pkg/types"
)

// LoadDataset reads a dataset with train and validation splits. The file
// may be YAML or JSON.
func LoadDataset(path string) (types.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Dataset{}, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	var ds types.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return types.Dataset{}, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(ds.Train) == 0 && len(ds.Validation) == 0 {
		return types.Dataset{}, fmt.Errorf("dataset %s has no train or validation items", path)
	}
	return ds, nil
}

// LoadTestSet reads evaluation items. The file is either a plain sequence
// of items or a dataset, in which case its validation split is used.
func LoadTestSet(path string) ([]types.DatasetItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test set %s: %w", path, err)
	}

	var items []types.DatasetItem
	if err := yaml.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var ds types.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing test set %s: %w", path, err)
	}
	return ds.Validation, nil
}
