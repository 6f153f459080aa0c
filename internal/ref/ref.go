// Package ref converts between A1-style cell references and zero-based
// column/row indices.
//
// Column letters are a base-26 numeral system with no zero digit:
// "A" is 0, "Z" is 25, "AA" is 26, "XFD" is 16383.  ColumnName is the exact
// inverse of ColumnIndex for every non-negative index.
package ref

import (
	"fmt"
	"strconv"

	"github.com/TsubasaBE/go-xcsv/internal/errs"
)

// Cell is a parsed cell coordinate.  Col and Row are both 0-based.
type Cell struct {
	Col int
	Row int
}

// ColumnIndex converts a column-letter string to its 0-based index.
// Lowercase letters are accepted; any other character is malformed.
func ColumnIndex(col string) (int, error) {
	if col == "" {
		return 0, fmt.Errorf("ref: empty column letters: %w", errs.ErrMalformedXML)
	}
	n := 0
	for _, ch := range col {
		switch {
		case ch >= 'A' && ch <= 'Z':
			n = n*26 + int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			n = n*26 + int(ch-'a') + 1
		default:
			return 0, fmt.Errorf("ref: bad column letter %q in %q: %w", ch, col, errs.ErrMalformedXML)
		}
	}
	return n - 1, nil
}

// ColumnName converts a 0-based column index back to its letter form
// (0 → "A", 25 → "Z", 26 → "AA").  Negative indices return "".
func ColumnName(idx int) string {
	if idx < 0 {
		return ""
	}
	// 8 letters cover every int64 index; Excel itself stops at 3 ("XFD").
	var b [8]byte
	i := len(b)
	n := idx + 1
	for n > 0 {
		i--
		b[i] = byte('A' + (n-1)%26)
		n = (n - 1) / 26
	}
	return string(b[i:])
}

// Parse splits an A1-style reference ("B12") into its 0-based column and
// row indices.  The letter part must be non-empty and the digit part a
// positive integer; anything else is malformed.
func Parse(s string) (Cell, error) {
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	colPart, rowPart := s[:i], s[i:]
	if colPart == "" || rowPart == "" {
		return Cell{}, fmt.Errorf("ref: malformed cell reference %q: %w", s, errs.ErrMalformedXML)
	}
	col, err := ColumnIndex(colPart)
	if err != nil {
		return Cell{}, err
	}
	row, err := strconv.Atoi(rowPart)
	if err != nil || row < 1 {
		return Cell{}, fmt.Errorf("ref: malformed row number in %q: %w", s, errs.ErrMalformedXML)
	}
	return Cell{Col: col, Row: row - 1}, nil
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}
