// Package numfmt classifies Excel number formats as date/time or not.
//
// The engine only needs to distinguish cells whose numeric value is a
// serial date from ordinary numbers; it never reproduces the display
// formatting itself.  Built-in format IDs are matched against the
// ECMA-376 §18.8.30 date/time ranges.  Custom format codes are tokenized
// with [github.com/xuri/nfp] and classified as dates when the token stream
// contains date/time or elapsed-time tokens; digit placeholders, currency
// sections and quoted literals never trigger a date classification.
//
// Custom-code classification is inherently heuristic: a format string can
// mix date tokens with arbitrary literals, and no two spreadsheet
// implementations agree on every edge case.  The cases this package does
// guarantee are enumerated in its tests.
package numfmt

import "github.com/xuri/nfp"

// IsBuiltInDateID reports whether id is a built-in numFmtId representing a
// date, datetime, or time format.
//
// The recognised ranges follow ECMA-376 §18.8.30:
//
//	14–22   date and time formats (IDs 18–21 are time-only)
//	27–36   locale-specific CJK date formats
//	45–47   elapsed-time / seconds formats
//	50–58   locale-specific CJK date formats (variant set)
//	67–71   Thai date formats
//	75–81   Thai time and datetime formats
func IsBuiltInDateID(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	case id >= 67 && id <= 71:
		return true
	case id >= 75 && id <= 81:
		return true
	}
	return false
}

// IsDateFormat reports whether a number-format ID (and optional custom
// format code) represents a date or datetime format.
//
// id is the numFmtId stored in the cell-format record.  For built-in
// formats (id < 164) formatCode is ignored; for custom formats it must be
// the formatCode attribute from the matching <numFmt> element in
// xl/styles.xml.
func IsDateFormat(id int, formatCode string) bool {
	if IsBuiltInDateID(id) {
		return true
	}
	if id < 164 {
		return false // remaining built-in IDs are numeric, currency, or text
	}
	if formatCode == "" {
		return false
	}
	parser := nfp.NumberFormatParser()
	sections := parser.Parse(formatCode)
	if len(sections) == 0 {
		// nfp could not tokenize the code; fall back to character scanning.
		return scanFormatCode(formatCode)
	}
	for _, sec := range sections {
		for _, tok := range sec.Items {
			switch tok.TType {
			case nfp.TokenTypeDateTimes, nfp.TokenTypeElapsedDateTimes:
				return true
			}
		}
	}
	return false
}

// scanFormatCode scans the unquoted portion of a format code for date/time
// token characters.  It is the fallback for codes nfp yields no sections
// for, and mirrors the token characters nfp itself recognises:
//
//   - d, D — day
//   - m, M — month or minute
//   - y, Y — year
//   - h, H — hour
//   - s, S — second
//   - e, E — era year (only when not in exponent position after a digit
//     placeholder 0, #, ?, or .)
//
// Sections enclosed in double quotes or square brackets are skipped.
func scanFormatCode(formatCode string) bool {
	inDoubleQuote := false
	inBracket := false
	var prev rune
	for _, ch := range formatCode {
		switch {
		case inDoubleQuote:
			if ch == '"' {
				inDoubleQuote = false
			}
		case inBracket:
			if ch == ']' {
				inBracket = false
			}
		case ch == '"':
			inDoubleQuote = true
		case ch == '[':
			inBracket = true
		case ch == 'd' || ch == 'D' ||
			ch == 'm' || ch == 'M' ||
			ch == 'y' || ch == 'Y' ||
			ch == 'h' || ch == 'H' ||
			ch == 's' || ch == 'S':
			return true
		case ch == 'e' || ch == 'E':
			if prev != '0' && prev != '#' && prev != '?' && prev != '.' {
				return true
			}
		}
		if !inDoubleQuote && !inBracket {
			prev = ch
		}
	}
	return false
}
