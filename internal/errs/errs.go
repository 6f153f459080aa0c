// Package errs defines the error kinds shared across go-xcsv.
//
// It is a deliberately small, import-cycle-free package so that workbook/,
// worksheet/ and cellvalue/ can classify failures with the same sentinel
// values the root package re-exports to callers.  Errors carry their context
// (archive path, part name, sheet name, offending index) via fmt.Errorf
// wrapping at the point of failure; the sentinels here identify the kind.
package errs

import "errors"

var (
	// ErrNotArchive reports that the input file is not a ZIP container.
	ErrNotArchive = errors.New("not a zip archive")

	// ErrMissingPart reports that a required archive entry is absent.
	ErrMissingPart = errors.New("required part missing")

	// ErrMalformedXML reports structurally invalid or unexpected content in
	// one of the consumed XML parts.
	ErrMalformedXML = errors.New("malformed xml")

	// ErrReference reports an out-of-range table index or a sheet reference
	// that does not exist in the workbook metadata.
	ErrReference = errors.New("bad reference")
)
