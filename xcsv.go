// Package xcsv converts Microsoft Excel .xlsx workbooks to CSV, one output
// stream per worksheet.  Worksheets are processed as XML token streams, so
// memory use is bounded by the widest row rather than the sheet size.
//
// # Quick start
//
//	wb, err := xcsv.Open("Book1.xlsx")
//	if err != nil { ... }
//	defer wb.Close()
//
//	fmt.Println(wb.Sheets()) // ["Sheet1", "Sheet2"]
//
//	d, err := wb.SheetByName("Sheet1")
//	if err != nil { ... }
//	err = wb.ExportCSV(d, os.Stdout, xcsv.Options{})
//
// To convert every sheet at once, [ExportAll] writes one file per sheet into
// a directory, deriving each file name with [SheetFileName].
//
// # Dates
//
// Excel stores dates as floating-point serial numbers; a bare serial in
// cell XML is indistinguishable from an ordinary number without its style.
// Numeric cells whose style carries a date format are rendered as UTC
// timestamps of the form 2023-01-01T00:00:00.000Z.  The [DateMode] option
// controls what happens to unstyled numbers: [DateAuto] (the default)
// additionally converts numbers that look like date serials, [DateStyled]
// trusts styles alone, and [DateOff] passes every number through verbatim.
// For direct access to the underlying [time.Time] use [ConvertSerial],
// passing wb.Date1904 so the correct date system is used.
package xcsv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TsubasaBE/go-xcsv/cellvalue"
	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/workbook"
	"github.com/TsubasaBE/go-xcsv/worksheet"
)

// Version is the current version of the go-xcsv library.
const Version = "1.0.0"

// Sentinel errors returned (wrapped) by this module.  Test with [errors.Is].
var (
	// ErrNotArchive reports that the input is not a ZIP container at all.
	ErrNotArchive = errs.ErrNotArchive
	// ErrMissingPart reports that a required archive entry is absent.
	ErrMissingPart = errs.ErrMissingPart
	// ErrMalformedXML reports structurally or semantically invalid part content.
	ErrMalformedXML = errs.ErrMalformedXML
	// ErrReference reports an out-of-range lookup, such as a shared-string
	// index past the end of the table or an unknown sheet name.
	ErrReference = errs.ErrReference
)

// Options configures a CSV export.  The zero value writes comma-separated
// UTF-8 with automatic date detection.
type Options = worksheet.Options

// DateMode selects how numeric cells are checked for date rendering.
type DateMode = cellvalue.DateMode

const (
	// DateAuto renders styled date cells as timestamps and additionally
	// applies a serial-shape heuristic to unstyled numbers.
	DateAuto = cellvalue.DateAuto
	// DateStyled renders only cells whose style carries a date format.
	DateStyled = cellvalue.DateStyled
	// DateOff disables date rendering entirely; numbers pass through as
	// written in the cell XML.
	DateOff = cellvalue.DateOff
)

// Open opens the named .xlsx file.  The caller must call Close on the
// returned Workbook when done.
func Open(name string) (*workbook.Workbook, error) {
	return workbook.Open(name)
}

// OpenReader reads an .xlsx workbook from an arbitrary [io.ReaderAt].
// size must equal the total byte length of the data.
func OpenReader(r io.ReaderAt, size int64) (*workbook.Workbook, error) {
	return workbook.OpenReader(r, size)
}

// ListSheets opens the named workbook just long enough to read its sheet
// names, in declaration order.
func ListSheets(name string) ([]string, error) {
	wb, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Sheets(), nil
}

// ExportSheet converts a single worksheet, looked up by display name
// (case-insensitive), to CSV on w.
func ExportSheet(wb *workbook.Workbook, name string, w io.Writer, opts Options) error {
	d, err := wb.SheetByName(name)
	if err != nil {
		return err
	}
	return wb.ExportCSV(d, w, opts)
}

// SheetError records the failure of one sheet during a multi-sheet export.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// ExportAll converts every worksheet in wb to a CSV file under dir, naming
// each file with [SheetFileName].  Sheets are converted in declaration
// order; a failing sheet does not stop the remaining ones.  The returned
// error joins one [*SheetError] per failed sheet, or is nil when all
// sheets converted.
func ExportAll(wb *workbook.Workbook, dir string, opts Options) error {
	var errsAll []error
	for _, d := range wb.Descriptors() {
		if err := exportToFile(wb, d, filepath.Join(dir, SheetFileName(d.Name)), opts); err != nil {
			errsAll = append(errsAll, &SheetError{Sheet: d.Name, Err: err})
		}
	}
	return errors.Join(errsAll...)
}

func exportToFile(wb *workbook.Workbook, d workbook.SheetDescriptor, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wb.ExportCSV(d, f, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// SheetFileName derives a filesystem-safe CSV file name from a sheet's
// display name.  The name is lowercased, "&" becomes "and", every other
// run of characters outside [a-z0-9] collapses to a single underscore, and
// leading and trailing underscores are trimmed.  A name with no usable
// characters at all falls back to "sheet".
//
//	SheetFileName("Sheet 1")   // "sheet_1.csv"
//	SheetFileName("Q3!Totals") // "q3_totals.csv"
func SheetFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 8)
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '&':
			if b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteString("and")
			pendingSep = true
		default:
			pendingSep = true
		}
	}
	s := b.String()
	if s == "" {
		s = "sheet"
	}
	return s + ".csv"
}

// ConvertSerial converts an Excel date serial number to a [time.Time]
// value in UTC.  Pass wb.Date1904 so the correct base date is used:
// serial 0 is 1899-12-30 in the default 1900 system and 1904-01-01 in the
// 1904 system.
func ConvertSerial(serial float64, date1904 bool) (time.Time, error) {
	return cellvalue.SerialTime(serial, date1904)
}

// FormatTimestamp renders t in the fixed UTC layout used for date cells,
// 2006-01-02T15:04:05.000Z.
func FormatTimestamp(t time.Time) string {
	return cellvalue.FormatTimestamp(t)
}
