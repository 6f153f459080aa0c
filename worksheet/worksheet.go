// Package worksheet streams a single worksheet XML part and exports its
// rows as CSV records.
//
// The exporter drives a forward-only pass over the part's XML tokens with
// an explicit state machine (idle → in row → in cell → in value) and keeps
// at most one row of resolved cells in memory: a small arena keyed by
// column index plus a max-column-seen tracker, flushed and cleared on every
// row end.  Column gaps between the first column and the highest coordinate
// seen in a row are filled with empty fields; rows are never padded to a
// sheet-wide width.
package worksheet

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/TsubasaBE/go-xcsv/cellvalue"
	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/internal/ref"
	"github.com/TsubasaBE/go-xcsv/stringtable"
	"github.com/TsubasaBE/go-xcsv/styles"
)

// Options configures one sheet export.
type Options struct {
	// Delimiter is the CSV field separator.  The zero value means comma.
	Delimiter rune
	// DateMode selects how numeric cells are checked for serial-date
	// conversion.  The zero value is cellvalue.DateAuto.
	DateMode cellvalue.DateMode
	// Encoding is the IANA name of the output charset.  Empty means UTF-8
	// (no transformation).
	Encoding string
}

// Sheet drives a forward-only streaming pass over one worksheet part.
//
// A Sheet is single-use: Rows and WriteCSV consume the underlying reader,
// so re-exporting a sheet requires opening a fresh archive entry.
type Sheet struct {
	name   string
	r      io.Reader
	tables cellvalue.Tables
	opts   Options
}

// New returns a Sheet streaming from r.  st may be nil when the workbook
// has no shared-string part, and styleTable may be empty; both tables are
// borrowed read-only and never mutated.
func New(name string, r io.Reader, st *stringtable.StringTable, styleTable styles.StyleTable, date1904 bool, opts Options) *Sheet {
	return &Sheet{
		name: name,
		r:    r,
		tables: cellvalue.Tables{
			Strings:  st,
			Styles:   styleTable,
			Date1904: date1904,
		},
		opts: opts,
	}
}

// Name returns the sheet's display name.
func (s *Sheet) Name() string {
	return s.name
}

// parse states of the worksheet token stream.
type parseState int

const (
	stateIdle parseState = iota // between rows
	stateInRow
	stateInCell
	stateInValue // inside a <v> or inline <t> text node
	stateDone
)

// rowArena accumulates resolved cell values for the row being parsed,
// keyed by 0-based column index.
type rowArena struct {
	cells  map[int]string
	maxCol int
}

func newRowArena() *rowArena {
	return &rowArena{cells: make(map[int]string), maxCol: -1}
}

func (a *rowArena) reset() {
	clear(a.cells)
	a.maxCol = -1
}

func (a *rowArena) put(col int, v string) {
	a.cells[col] = v
	if col > a.maxCol {
		a.maxCol = col
	}
}

// flush returns the flexible-width record for the current row: columns 0
// through maxCol inclusive, with empty strings for unset columns.  A row
// with no cells flattens to a single empty field, preserving blank-row
// presence in the output.
func (a *rowArena) flush() []string {
	if a.maxCol < 0 {
		return []string{""}
	}
	rec := make([]string, a.maxCol+1)
	for c, v := range a.cells {
		rec[c] = v
	}
	return rec
}

// pending holds the attributes and accumulated text of the cell being
// parsed.
type pending struct {
	col   int // -1 when the cell carries no coordinate
	typ   cellvalue.Type
	style int
	text  strings.Builder
}

// Rows returns a lazy, finite sequence of CSV records in worksheet file
// order, one per <row> element, usable with range-over-func:
//
//	for rec, err := range sheet.Rows() {
//	    if err != nil { ... }
//	    ...
//	}
//
// Skipped row indices (gaps in the r attributes) are emitted as single
// empty-field records so row positions survive the conversion.  The first
// error ends the sequence; the sequence is not restartable.
func (s *Sheet) Rows() func(yield func([]string, error) bool) {
	return func(yield func([]string, error) bool) {
		dec := xml.NewDecoder(s.r)
		state := stateIdle
		arena := newRowArena()
		var cell pending

		lastRow := 0 // 1-based index of the previously flushed row
		curRow := 0  // 1-based index of the row being parsed
		nextCol := 0 // fallback column for cells without coordinates

		fail := func(err error) {
			yield(nil, fmt.Errorf("worksheet %q: %w", s.name, err))
		}

		for state != stateDone {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fail(fmt.Errorf("%v: %w", err, errs.ErrMalformedXML))
				return
			}

			switch t := tok.(type) {
			case xml.StartElement:
				switch {
				case state == stateIdle && t.Name.Local == "row":
					rowIdx := lastRow + 1
					if v := attrValue(t, "r"); v != "" {
						n, err := strconv.Atoi(v)
						if err != nil || n < 1 {
							fail(fmt.Errorf("row index %q: %w", v, errs.ErrMalformedXML))
							return
						}
						rowIdx = n
					}
					for lastRow+1 < rowIdx {
						if !yield([]string{""}, nil) {
							return
						}
						lastRow++
					}
					arena.reset()
					nextCol = 0
					curRow = rowIdx
					state = stateInRow

				case state == stateInRow && t.Name.Local == "c":
					cell = pending{col: -1, style: cellvalue.NoStyle}
					if err := s.readCellAttrs(t, &cell); err != nil {
						fail(err)
						return
					}
					state = stateInCell

				case state == stateInCell && (t.Name.Local == "v" || t.Name.Local == "t"):
					state = stateInValue

				case state == stateInCell && (t.Name.Local == "rPh" || t.Name.Local == "phoneticPr"):
					// Phonetic runs inside inline strings carry furigana,
					// not cell text.
					if err := dec.Skip(); err != nil {
						fail(fmt.Errorf("%v: %w", err, errs.ErrMalformedXML))
						return
					}
				}

			case xml.EndElement:
				switch {
				case state == stateInValue && (t.Name.Local == "v" || t.Name.Local == "t"):
					state = stateInCell

				case state == stateInCell && t.Name.Local == "c":
					col := cell.col
					if col < 0 {
						col = nextCol
					}
					v, err := s.resolveCell(&cell)
					if err != nil {
						fail(err)
						return
					}
					arena.put(col, v)
					nextCol = col + 1
					state = stateInRow

				case state == stateInRow && t.Name.Local == "row":
					if !yield(arena.flush(), nil) {
						return
					}
					lastRow = curRow
					state = stateIdle

				case t.Name.Local == "sheetData":
					state = stateDone
				}

			case xml.CharData:
				if state == stateInValue {
					cell.text.Write(t)
				}
			}
		}
	}
}

// readCellAttrs decodes the r (coordinate), t (type) and s (style)
// attributes of a <c> element into cell.
func (s *Sheet) readCellAttrs(el xml.StartElement, cell *pending) error {
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "r":
			c, err := ref.Parse(a.Value)
			if err != nil {
				return err
			}
			cell.col = c.Col
		case "t":
			typ, err := cellvalue.ParseType(a.Value)
			if err != nil {
				return err
			}
			cell.typ = typ
		case "s":
			n, err := strconv.Atoi(a.Value)
			if err != nil || n < 0 {
				return fmt.Errorf("style index %q: %w", a.Value, errs.ErrMalformedXML)
			}
			cell.style = n
		}
	}
	return nil
}

// resolveCell maps the finished cell through the value resolver.  A
// number-typed cell that accumulated no text is a blank cell.
func (s *Sheet) resolveCell(cell *pending) (string, error) {
	raw := cell.text.String()
	typ := cell.typ
	if typ == cellvalue.Number && raw == "" {
		typ = cellvalue.Blank
	}
	return cellvalue.Resolve(typ, raw, cell.style, s.tables, s.opts.DateMode)
}

// attrValue returns the value of the named attribute, or "".
func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// WriteCSV streams every row to w as CSV using the configured delimiter
// and output encoding.  Fields containing the delimiter, quotes, or line
// breaks are quoted per standard CSV escaping; row width is flexible.
func (s *Sheet) WriteCSV(w io.Writer) error {
	enc, err := resolveEncoding(s.opts.Encoding)
	if err != nil {
		return err
	}
	if enc == nil {
		return s.writeCSV(w)
	}
	tw := transform.NewWriter(w, enc.NewEncoder())
	if err := s.writeCSV(tw); err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}

func (s *Sheet) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if s.opts.Delimiter != 0 {
		cw.Comma = s.opts.Delimiter
	}
	var streamErr error
	s.Rows()(func(rec []string, err error) bool {
		if err != nil {
			streamErr = err
			return false
		}
		if err := cw.Write(rec); err != nil {
			streamErr = err
			return false
		}
		return true
	})
	if streamErr != nil {
		return streamErr
	}
	cw.Flush()
	return cw.Error()
}

// resolveEncoding maps an IANA charset name to its encoding.  UTF-8 names
// (and the empty string) return nil, meaning no transform is needed.
func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("worksheet: unsupported output encoding %q", name)
	}
	return enc, nil
}
