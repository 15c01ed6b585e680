// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes every entry matching opts to w as a YAML sequence.
// MaxResults in opts is ignored.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts QueryOptions) error {
	opts.MaxResults = exportLimit
	entries, err := s.Search(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
