// Package cellvalue resolves raw worksheet cell values to their final CSV
// field strings.
//
// Resolve is a pure function over the cell's type tag, raw text and style
// index plus the workbook's read-only shared-string and style tables; it
// holds no state of its own, so one Tables value can serve any number of
// concurrent per-sheet exports.
package cellvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/stringtable"
	"github.com/TsubasaBE/go-xcsv/styles"
)

// Type identifies the cell-type tag carried by a worksheet <c> element.
type Type int

const (
	// Number is the default when the t attribute is absent (or "n").
	Number Type = iota
	// SharedString marks a cell whose value is an index into the
	// shared-string table (t="s").
	SharedString
	// InlineString marks a cell carrying its text inline (t="inlineStr").
	InlineString
	// FormulaString marks a cached formula string result (t="str").
	FormulaString
	// Boolean marks a boolean cell (t="b").
	Boolean
	// Error marks an error cell whose raw text is the error code (t="e").
	Error
	// Blank marks a cell with no value node at all.
	Blank
)

// ParseType maps a t attribute value to its Type.  An absent attribute is
// Number per the worksheet schema default.  t="d" cells (ISO-8601 dates
// stored as text) carry their text verbatim and map to FormulaString.
func ParseType(attr string) (Type, error) {
	switch attr {
	case "", "n":
		return Number, nil
	case "s":
		return SharedString, nil
	case "inlineStr":
		return InlineString, nil
	case "str", "d":
		return FormulaString, nil
	case "b":
		return Boolean, nil
	case "e":
		return Error, nil
	}
	return 0, fmt.Errorf("cellvalue: unknown cell type %q: %w", attr, errs.ErrMalformedXML)
}

// DateMode selects how numeric cells are checked for serial-date
// conversion.
type DateMode int

const (
	// DateAuto converts cells whose style classifies as a date format, and
	// applies the numeric heuristic to cells that carry no style.
	DateAuto DateMode = iota
	// DateStyled converts only cells whose style classifies as a date
	// format; unstyled numbers are never converted.
	DateStyled
	// DateOff disables serial-date conversion entirely; numeric text is
	// exported as-is.
	DateOff
)

// NoStyle is the style index for cells without an s attribute.
const NoStyle = -1

// Tables bundles the read-only workbook tables the resolver consults.
// Strings may be nil when the workbook has no shared-string part; Styles
// may be empty when it has no styles part.
type Tables struct {
	Strings  *stringtable.StringTable
	Styles   styles.StyleTable
	Date1904 bool
}

// Resolve converts one raw cell into its final field string.  Rules, in
// priority order:
//
//  1. SharedString: raw is an integer index into the shared-string table;
//     out-of-range indices are reference errors.
//  2. InlineString / FormulaString: raw is used verbatim.
//  3. Boolean: "1" → "TRUE", "0" → "FALSE"; anything else is malformed.
//  4. Error: the raw error code (e.g. "#N/A") passes through unchanged.
//  5. Number: parsed as a decimal and converted to an ISO-8601 timestamp
//     when the style (or, in DateAuto mode, the value heuristic) says the
//     number is a serial date; otherwise the original text is kept.
//  6. Blank: empty string.
func Resolve(typ Type, raw string, styleIdx int, t Tables, mode DateMode) (string, error) {
	switch typ {
	case SharedString:
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("cellvalue: shared string index %q: %w", raw, errs.ErrMalformedXML)
		}
		return t.Strings.Get(idx)
	case InlineString, FormulaString:
		return raw, nil
	case Boolean:
		switch strings.TrimSpace(raw) {
		case "1":
			return "TRUE", nil
		case "0":
			return "FALSE", nil
		}
		return "", fmt.Errorf("cellvalue: boolean value %q: %w", raw, errs.ErrMalformedXML)
	case Error:
		return raw, nil
	case Blank:
		return "", nil
	}
	return resolveNumber(raw, styleIdx, t, mode)
}

// resolveNumber applies rule 5.  In DateOff mode the raw text is returned
// without even parsing it, matching the no-conversion export variant.
func resolveNumber(raw string, styleIdx int, t Tables, mode DateMode) (string, error) {
	if mode == DateOff {
		return raw, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", fmt.Errorf("cellvalue: numeric value %q: %w", raw, errs.ErrMalformedXML)
	}

	// A style index past the table is treated like an absent style: the
	// category is ambiguous, so the heuristic decides in DateAuto mode.
	styled := styleIdx >= 0 && styleIdx < len(t.Styles)
	convert := false
	switch {
	case styled:
		convert = t.Styles.IsDate(styleIdx)
	case mode == DateAuto:
		convert = serialLooksLikeDate(v)
	}
	if !convert {
		return raw, nil
	}

	ts, err := SerialTime(v, t.Date1904)
	if err != nil {
		// Outside the convertible serial range — keep the raw numeric text
		// rather than emitting a nonsensical date.
		return raw, nil
	}
	return FormatTimestamp(ts), nil
}

// maxSerial is the last serial in the 1900 date system, 9999-12-31.
const maxSerial = 2958465

// serialLooksLikeDate is the heuristic for numbers without any style
// information: values of at least 1000 (serials from 1902 onward), or
// values with a time-of-day fraction whose integral part lies within the
// representable serial range.
func serialLooksLikeDate(v float64) bool {
	if v >= 1000 {
		return true
	}
	ip := math.Trunc(v)
	return v != ip && ip >= 1 && ip <= maxSerial
}

// SerialTime converts a spreadsheet serial day count to its UTC timestamp.
//
// The 1900 date system counts days from the epoch 1899-12-30, chosen so
// that serials on or after 1900-03-01 reproduce the format's phantom
// 1900 leap day.  The 1904 date system counts days from 1904-01-01.  The
// fractional part is the time of day, converted at 86400 seconds per day
// and rounded to millisecond precision.
func SerialTime(serial float64, date1904 bool) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, fmt.Errorf("cellvalue: invalid serial %v", serial)
	}
	if serial < 0 || serial > maxSerial {
		return time.Time{}, fmt.Errorf("cellvalue: serial %v outside supported range [0, %d]", serial, maxSerial)
	}
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if date1904 {
		epoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	days := int(math.Trunc(serial))
	ms := int64(math.Round((serial - math.Trunc(serial)) * 86400 * 1000))
	return epoch.AddDate(0, 0, days).Add(time.Duration(ms) * time.Millisecond), nil
}

// FormatTimestamp renders t in the fixed output form
// YYYY-MM-DDTHH:mm:ss.sssZ (UTC, millisecond precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}
