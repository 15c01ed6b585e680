// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sciqa/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes citations as a CSL-YAML list to w.
func WriteCSL(w io.Writer, cites []types.Citation) error {
	items := make([]CSLItem, len(cites))
	for i, c := range cites {
		items[i] = toCSLItem(i, c)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(i int, c types.Citation) CSLItem {
	item := CSLItem{
		ID:             cslID(i, c),
		Type:           "article",
		Title:          c.Title,
		ContainerTitle: c.Source,
	}
	for _, a := range c.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if c.Year != nil {
		item.Issued = &CSLDate{DateParts: [][]int{{*c.Year}}}
	}
	if c.URL != nil {
		item.URL = *c.URL
		if doi, ok := strings.CutPrefix(*c.URL, "https://doi.org/"); ok {
			item.DOI = doi
		}
	}
	return item
}

// cslID builds a citation key from the first author's family name and the
// year, falling back to the list position.
func cslID(i int, c types.Citation) string {
	key := fmt.Sprintf("ref%d", i+1)
	if len(c.Authors) > 0 {
		n := parseAuthorName(c.Authors[0])
		name := n.Family
		if name == "" {
			name = n.Literal
		}
		key = strings.ToLower(strings.Join(strings.Fields(name), ""))
	}
	if c.Year != nil {
		key = fmt.Sprintf("%s%d", key, *c.Year)
	}
	return key
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
