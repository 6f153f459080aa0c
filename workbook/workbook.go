// Package workbook opens an .xlsx workbook file (a ZIP archive) and owns
// the per-session metadata tables.
package workbook

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/internal/rels"
	"github.com/TsubasaBE/go-xcsv/stringtable"
	"github.com/TsubasaBE/go-xcsv/styles"
	"github.com/TsubasaBE/go-xcsv/worksheet"
)

// SheetDescriptor describes one worksheet declared in xl/workbook.xml.
type SheetDescriptor struct {
	// Name is the display name on the sheet tab.
	Name string
	// Index is the 0-based declaration order in workbook.xml.
	Index int
	// RelID is the workbook-relationship ID joining the sheet to its part.
	RelID string
	// Path is the archive entry path of the worksheet XML part.
	Path string
}

// Workbook is an open workbook session.
//
// The sheet table, shared strings and style table are built once in Open
// and are read-only afterwards, so a single Workbook may serve any number
// of independent per-sheet exports, including from separate goroutines.
type Workbook struct {
	zr     *zip.ReadCloser // non-nil when opened by file name
	zf     *zip.Reader     // always non-nil
	sheets []SheetDescriptor

	stringTable *stringtable.StringTable // nil when the part is absent

	// Styles is the cell-format table parsed from xl/styles.xml.  It is
	// exported so callers can classify styles directly; exports consult it
	// through the per-sheet resolver.
	Styles styles.StyleTable

	// Date1904 is true when the workbook uses the 1904 date system (base
	// date 1904-01-01).  Most workbooks use the default 1900 system.
	Date1904 bool
}

// Open opens the named .xlsx file and parses its workbook metadata.  The
// caller must call Close on the returned Workbook when done.
//
// A file that is not a ZIP container fails with ErrNotArchive; the error
// message names the MIME type actually detected in the file.
func Open(name string) (*Workbook, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			if mt, derr := mimetype.DetectFile(name); derr == nil {
				return nil, fmt.Errorf("workbook: open %q: detected %s: %w", name, mt.String(), errs.ErrNotArchive)
			}
			return nil, fmt.Errorf("workbook: open %q: %w", name, errs.ErrNotArchive)
		}
		return nil, fmt.Errorf("workbook: open %q: %w", name, err)
	}
	wb := &Workbook{zr: rc, zf: &rc.Reader}
	if err := wb.parse(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return wb, nil
}

// OpenReader parses an .xlsx workbook from an arbitrary [io.ReaderAt].
// size must equal the total byte length of the data.
func OpenReader(r io.ReaderAt, size int64) (*Workbook, error) {
	zf, err := zip.NewReader(r, size)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			if mt, derr := mimetype.DetectReader(io.NewSectionReader(r, 0, size)); derr == nil {
				return nil, fmt.Errorf("workbook: open reader: detected %s: %w", mt.String(), errs.ErrNotArchive)
			}
			return nil, fmt.Errorf("workbook: open reader: %w", errs.ErrNotArchive)
		}
		return nil, fmt.Errorf("workbook: open reader: %w", err)
	}
	wb := &Workbook{zf: zf}
	if err := wb.parse(); err != nil {
		return nil, err
	}
	return wb, nil
}

// Sheets returns the display names of all worksheets in declaration order.
func (wb *Workbook) Sheets() []string {
	names := make([]string, len(wb.sheets))
	for i, d := range wb.sheets {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns the full sheet table in declaration order.  The
// returned slice is shared and must not be modified.
func (wb *Workbook) Descriptors() []SheetDescriptor {
	return wb.sheets
}

// Sheet returns the descriptor at the given 1-based index.  Index 1 refers
// to the first declared sheet.
func (wb *Workbook) Sheet(idx int) (SheetDescriptor, error) {
	if idx < 1 || idx > len(wb.sheets) {
		return SheetDescriptor{}, fmt.Errorf("workbook: sheet index %d out of range [1, %d]: %w", idx, len(wb.sheets), errs.ErrReference)
	}
	return wb.sheets[idx-1], nil
}

// SheetByName returns the descriptor with the given display name
// (case-insensitive).
func (wb *Workbook) SheetByName(name string) (SheetDescriptor, error) {
	lower := strings.ToLower(name)
	for _, d := range wb.sheets {
		if strings.ToLower(d.Name) == lower {
			return d, nil
		}
	}
	return SheetDescriptor{}, fmt.Errorf("workbook: sheet %q not found: %w", name, errs.ErrReference)
}

// OpenEntry opens the named archive entry for reading.  Entries may be
// opened independently and concurrently.
func (wb *Workbook) OpenEntry(name string) (io.ReadCloser, error) {
	for _, f := range wb.zf.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("workbook: entry %q: %w", name, errs.ErrMissingPart)
}

// OpenSheet opens the worksheet part for d and returns a single-use
// streaming exporter borrowing the session's tables.  The returned closer
// releases the archive entry and must be closed once iteration finishes.
func (wb *Workbook) OpenSheet(d SheetDescriptor, opts worksheet.Options) (*worksheet.Sheet, io.Closer, error) {
	rc, err := wb.OpenEntry(d.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("workbook: sheet %q: %w", d.Name, err)
	}
	return worksheet.New(d.Name, rc, wb.stringTable, wb.Styles, wb.Date1904, opts), rc, nil
}

// ExportCSV streams the rows of the sheet described by d to w as CSV.
func (wb *Workbook) ExportCSV(d SheetDescriptor, w io.Writer, opts worksheet.Options) error {
	sh, closer, err := wb.OpenSheet(d, opts)
	if err != nil {
		return err
	}
	defer closer.Close()
	return sh.WriteCSV(w)
}

// Close releases the underlying ZIP file handle.  It is a no-op for
// workbooks opened via OpenReader.
func (wb *Workbook) Close() error {
	if wb.zr != nil {
		return wb.zr.Close()
	}
	return nil
}

// ── internal ─────────────────────────────────────────────────────────────────

// parse reads workbook.xml (with its rels), sharedStrings.xml and
// styles.xml.  Any failure here kills the session: no partial workbook
// state is usable without the metadata tables.
func (wb *Workbook) parse() error {
	if err := wb.parseWorkbook(); err != nil {
		return err
	}
	if err := wb.parseSharedStrings(); err != nil {
		return err
	}
	return wb.parseStyles()
}

// parseWorkbook joins xl/workbook.xml's sheet declarations against the
// relationship map from xl/_rels/workbook.xml.rels to produce the ordered
// sheet-descriptor table.
func (wb *Workbook) parseWorkbook() error {
	relMap, err := wb.parseRels("xl/_rels/workbook.xml.rels")
	if err != nil {
		return err
	}

	rc, err := wb.OpenEntry("xl/workbook.xml")
	if err != nil {
		return err
	}
	defer rc.Close()

	sheets, date1904, err := parseWorkbookXML(rc, relMap)
	if err != nil {
		return fmt.Errorf("workbook: parse workbook.xml: %w", err)
	}
	wb.sheets = sheets
	wb.Date1904 = date1904
	return nil
}

func (wb *Workbook) parseRels(name string) (map[string]string, error) {
	rc, err := wb.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	m, err := rels.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("workbook: %s: %v: %w", name, err, errs.ErrMalformedXML)
	}
	return m, nil
}

// parseSharedStrings reads xl/sharedStrings.xml if it exists.  The part is
// optional — a workbook whose cells carry no text has none.
func (wb *Workbook) parseSharedStrings() error {
	rc, err := wb.OpenEntry("xl/sharedStrings.xml")
	if err != nil {
		return nil
	}
	defer rc.Close()
	st, err := stringtable.New(rc)
	if err != nil {
		return fmt.Errorf("workbook: shared strings: %w", err)
	}
	wb.stringTable = st
	return nil
}

// parseStyles reads xl/styles.xml if it exists.  An absent part leaves the
// table empty (every style classifies as non-date); a malformed part fails
// the session.
func (wb *Workbook) parseStyles() error {
	rc, err := wb.OpenEntry("xl/styles.xml")
	if err != nil {
		return nil
	}
	defer rc.Close()
	st, err := styles.New(rc)
	if err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	wb.Styles = st
	return nil
}

// parseWorkbookXML scans the workbook part for <sheet> declarations and
// the <workbookPr> date-system flag.  A sheet whose r:id has no entry in
// the relationship map is malformed, not silently dropped.
func parseWorkbookXML(r io.Reader, relMap map[string]string) ([]SheetDescriptor, bool, error) {
	dec := xml.NewDecoder(r)
	var sheets []SheetDescriptor
	date1904 := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("%v: %w", err, errs.ErrMalformedXML)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "sheet":
			var name, relID string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					name = a.Value
				case "id": // r:id
					relID = a.Value
				}
			}
			if name == "" || relID == "" {
				return nil, false, fmt.Errorf("sheet element missing name or r:id: %w", errs.ErrMalformedXML)
			}
			target, ok := relMap[relID]
			if !ok {
				return nil, false, fmt.Errorf("sheet %q: no relationship for %q: %w", name, relID, errs.ErrMalformedXML)
			}
			sheets = append(sheets, SheetDescriptor{
				Name:  name,
				Index: len(sheets),
				RelID: relID,
				Path:  resolveTarget(target),
			})
		case "workbookPr":
			for _, a := range se.Attr {
				if a.Name.Local == "date1904" {
					date1904 = a.Value == "1" || a.Value == "true"
				}
			}
		}
	}
	return sheets, date1904, nil
}

// resolveTarget turns a workbook-relationship target into a zip entry
// path.  Absolute targets ("/xl/worksheets/sheet1.xml") are used as-is
// after stripping the leading slash; relative targets resolve against the
// xl/ directory.
func resolveTarget(target string) string {
	t := strings.TrimPrefix(target, "/")
	if strings.HasPrefix(t, "xl/") {
		return t
	}
	return "xl/" + t
}
