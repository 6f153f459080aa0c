// Package rels parses OOXML relationship parts (.rels).
//
// The workbook relationships part joins each sheet's r:id to the archive
// entry path of its worksheet XML.  The package is a leaf so that workbook/
// and any future part reader can share it without import cycles.
package rels

import (
	"encoding/xml"
	"fmt"
	"io"
)

type relationships struct {
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// Parse reads one .rels XML document from r and returns a map of
// relationship ID → target path (as written in the file, not yet resolved
// against the xl/ directory).
func Parse(r io.Reader) (map[string]string, error) {
	var doc relationships
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse rels XML: %w", err)
	}
	m := make(map[string]string, len(doc.Relationships))
	for _, rel := range doc.Relationships {
		m[rel.ID] = rel.Target
	}
	return m, nil
}
