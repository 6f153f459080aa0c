// Package stringtable parses the xl/sharedStrings.xml part of an .xlsx file
// and provides indexed access to the shared string values.
package stringtable

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TsubasaBE/go-xcsv/internal/errs"
)

// StringTable holds the shared strings parsed from xl/sharedStrings.xml.
// It is immutable after New returns and safe to share across concurrent
// per-sheet exports.  The ordering of entries defines the 0-based index
// that worksheet cells reference.
type StringTable struct {
	strings []string
}

// New reads all <si> entries from r and returns a populated StringTable.
// Rich-text runs within one entry are concatenated into a single plain
// string; formatting and phonetic (<rPh>, <phoneticPr>) runs are discarded.
func New(r io.Reader) (*StringTable, error) {
	st := &StringTable{}
	dec := xml.NewDecoder(r)

	inSI := false
	inText := false
	var cur strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stringtable: %v: %w", err, errs.ErrMalformedXML)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				cur.Reset()
			case "t":
				if inSI {
					inText = true
				}
			case "rPh", "phoneticPr":
				if inSI {
					if err := dec.Skip(); err != nil {
						return nil, fmt.Errorf("stringtable: %v: %w", err, errs.ErrMalformedXML)
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "si":
				st.strings = append(st.strings, cur.String())
				inSI = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return st, nil
}

// Get returns the shared string at index idx.  An out-of-range index is a
// reference error carrying the offending index — a cell pointing past the
// table is a data error, never a silent empty value.
func (st *StringTable) Get(idx int) (string, error) {
	if st == nil || idx < 0 || idx >= len(st.strings) {
		return "", fmt.Errorf("stringtable: index %d out of range [0, %d): %w", idx, st.Len(), errs.ErrReference)
	}
	return st.strings[idx], nil
}

// Len returns the total number of shared strings loaded.  It is 0 for a
// nil table (a workbook without a shared-string part).
func (st *StringTable) Len() int {
	if st == nil {
		return 0
	}
	return len(st.strings)
}
