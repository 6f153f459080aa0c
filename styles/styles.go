// Package styles parses the xl/styles.xml part into the cell-format table
// used to classify numeric cells as dates.  It is a deliberately small
// package so that both workbook/ and worksheet/ can depend on it without
// introducing circular imports.
package styles

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/numfmt"
)

// XF holds the resolved number-format information for one cell-format
// record from the <cellXfs> table.
type XF struct {
	// NumFmtID is the numFmtId attribute.  Values 0–163 are built-in Excel
	// formats; values ≥ 164 are custom formats defined by a <numFmt>
	// element in the same part.
	NumFmtID int
	// FormatCode is the raw format code from the matching <numFmt>
	// element.  It is empty for built-in IDs with no custom override.
	FormatCode string
	// Applied is false when the record carries applyNumberFormat="0",
	// meaning the number format is declared but not in effect.
	Applied bool
}

// StyleTable maps cell-format index → XF.  The slice index is the 0-based
// style index stored in each cell's s attribute.  The table is immutable
// after New returns and safe to share across concurrent exports.
type StyleTable []XF

// IsDate reports whether the style at index s classifies as a date or
// datetime number format.  It returns false when s is out of range or when
// no styles part was present — an absent style is never a date.
func (st StyleTable) IsDate(s int) bool {
	if s < 0 || s >= len(st) {
		return false
	}
	xf := st[s]
	if !xf.Applied {
		return false
	}
	return numfmt.IsDateFormat(xf.NumFmtID, xf.FormatCode)
}

// New parses a styles part.  It collects the custom <numFmt> codes, then
// builds one XF entry per <xf> element inside <cellXfs>; the <xf> records
// in <cellStyleXfs> do not participate, since cells never reference them.
func New(r io.Reader) (StyleTable, error) {
	dec := xml.NewDecoder(r)
	codes := make(map[int]string)
	var table StyleTable
	inCellXfs := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("styles: %v: %w", err, errs.ErrMalformedXML)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmt":
				id, code, err := parseNumFmt(t)
				if err != nil {
					return nil, err
				}
				codes[id] = code
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				xf, err := parseXF(t, codes)
				if err != nil {
					return nil, err
				}
				table = append(table, xf)
			}
		case xml.EndElement:
			if t.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return table, nil
}

// parseNumFmt decodes one <numFmt numFmtId="…" formatCode="…"> element.
func parseNumFmt(el xml.StartElement) (int, string, error) {
	id := -1
	code := ""
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "numFmtId":
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return 0, "", fmt.Errorf("styles: numFmtId %q: %w", a.Value, errs.ErrMalformedXML)
			}
			id = n
		case "formatCode":
			code = a.Value
		}
	}
	if id < 0 {
		return 0, "", fmt.Errorf("styles: numFmt element without numFmtId: %w", errs.ErrMalformedXML)
	}
	return id, code, nil
}

// parseXF decodes one <xf> element from the cellXfs table.  A missing
// applyNumberFormat attribute means the format is applied.
func parseXF(el xml.StartElement, codes map[int]string) (XF, error) {
	xf := XF{Applied: true}
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "numFmtId":
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return XF{}, fmt.Errorf("styles: xf numFmtId %q: %w", a.Value, errs.ErrMalformedXML)
			}
			xf.NumFmtID = n
		case "applyNumberFormat":
			xf.Applied = a.Value == "1" || a.Value == "true"
		}
	}
	xf.FormatCode = codes[xf.NumFmtID]
	return xf, nil
}
