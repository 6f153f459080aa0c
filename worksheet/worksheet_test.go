package worksheet_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/TsubasaBE/go-xcsv/cellvalue"
	"github.com/TsubasaBE/go-xcsv/internal/errs"
	"github.com/TsubasaBE/go-xcsv/stringtable"
	"github.com/TsubasaBE/go-xcsv/styles"
	"github.com/TsubasaBE/go-xcsv/worksheet"
)

// sheetXML wraps rows in the worksheet part boilerplate.
func sheetXML(rows string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <dimension ref="A1:C3"/>
  <sheetData>` + rows + `</sheetData>
</worksheet>`
}

func newTestSheet(t *testing.T, rows string, opts worksheet.Options) *worksheet.Sheet {
	t.Helper()
	st, err := stringtable.New(strings.NewReader(
		`<sst><si><t>alpha</t></si><si><t>beta</t></si></sst>`))
	if err != nil {
		t.Fatalf("string table: %v", err)
	}
	sty, err := styles.New(strings.NewReader(
		`<styleSheet><cellXfs><xf numFmtId="0"/><xf numFmtId="14" applyNumberFormat="1"/></cellXfs></styleSheet>`))
	if err != nil {
		t.Fatalf("style table: %v", err)
	}
	return worksheet.New("Sheet1", strings.NewReader(sheetXML(rows)), st, sty, false, opts)
}

// collectRows drains the row sequence, failing the test on any row error.
func collectRows(t *testing.T, s *worksheet.Sheet) [][]string {
	t.Helper()
	var got [][]string
	s.Rows()(func(rec []string, err error) bool {
		if err != nil {
			t.Fatalf("row error: %v", err)
		}
		got = append(got, rec)
		return true
	})
	return got
}

func rowsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestRowsBasic(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1"><v>42</v></c>
      <c r="C1" t="b"><v>1</v></c>
    </row>
    <row r="2">
      <c r="A2" t="s"><v>1</v></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{
		{"alpha", "42", "TRUE"},
		{"beta"},
	}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsColumnGapFill(t *testing.T) {
	// Cells at A and D with nothing between: columns B and C become empty
	// fields, and the row is not padded past D.
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1"><v>1</v></c>
      <c r="D1"><v>4</v></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"1", "", "", "4"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsRowGapFill(t *testing.T) {
	// Rows 1 and 4 present: rows 2 and 3 surface as single empty-field
	// records so positions survive.
	s := newTestSheet(t, `
    <row r="1"><c r="A1"><v>1</v></c></row>
    <row r="4"><c r="A4"><v>4</v></c></row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"1"}, {""}, {""}, {"4"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsEmptyRowElement(t *testing.T) {
	s := newTestSheet(t, `<row r="1"></row><row r="2"><c r="A2"><v>7</v></c></row>`, worksheet.Options{})
	got := collectRows(t, s)
	want := [][]string{{""}, {"7"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsCellsWithoutCoordinates(t *testing.T) {
	// Cells without an r attribute take successive columns; a coordinate
	// resets the running position.
	s := newTestSheet(t, `
    <row>
      <c><v>1</v></c>
      <c><v>2</v></c>
      <c r="E1"><v>5</v></c>
      <c><v>6</v></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"1", "2", "", "", "5", "6"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsInlineString(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1" t="inlineStr"><is><t>inline text</t></is></c>
      <c r="B1" t="inlineStr"><is><r><t>rich </t></r><r><t>runs</t></r></is></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"inline text", "rich runs"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsBlankAndErrorCells(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1"/>
      <c r="B1" t="e"><v>#DIV/0!</v></c>
      <c r="C1"><v>3</v></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"", "#DIV/0!", "3"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsDateStyledCell(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1" s="1"><v>44927</v></c>
      <c r="B1" s="0"><v>3</v></c>
    </row>`, worksheet.Options{})

	got := collectRows(t, s)
	want := [][]string{{"2023-01-01T00:00:00.000Z", "3"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsDateOff(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1"><c r="A1" s="1"><v>44927</v></c></row>`,
		worksheet.Options{DateMode: cellvalue.DateOff})

	got := collectRows(t, s)
	want := [][]string{{"44927"}}
	if !rowsEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowsErrors(t *testing.T) {
	cases := []struct {
		name string
		rows string
		want error
	}{
		{name: "shared string out of range", rows: `<row r="1"><c r="A1" t="s"><v>99</v></c></row>`, want: errs.ErrReference},
		{name: "bad boolean", rows: `<row r="1"><c r="A1" t="b"><v>yes</v></c></row>`, want: errs.ErrMalformedXML},
		{name: "bad cell reference", rows: `<row r="1"><c r="!!"><v>1</v></c></row>`, want: errs.ErrMalformedXML},
		{name: "bad row index", rows: `<row r="zero"><c><v>1</v></c></row>`, want: errs.ErrMalformedXML},
		{name: "unknown cell type", rows: `<row r="1"><c r="A1" t="q"><v>1</v></c></row>`, want: errs.ErrMalformedXML},
		{name: "non-numeric number cell", rows: `<row r="1"><c r="A1"><v>abc</v></c></row>`, want: errs.ErrMalformedXML},
		{name: "truncated xml", rows: `<row r="1"><c r="A1"><v>1`, want: errs.ErrMalformedXML},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSheet(t, tc.rows, worksheet.Options{})
			var gotErr error
			s.Rows()(func(rec []string, err error) bool {
				if err != nil {
					gotErr = err
					return false
				}
				return true
			})
			if !errors.Is(gotErr, tc.want) {
				t.Errorf("error = %v, want %v", gotErr, tc.want)
			}
		})
	}
}

func TestRowsStopsEarly(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1"><c r="A1"><v>1</v></c></row>
    <row r="2"><c r="A2"><v>2</v></c></row>
    <row r="3"><c r="A3"><v>3</v></c></row>`, worksheet.Options{})

	var got [][]string
	s.Rows()(func(rec []string, err error) bool {
		if err != nil {
			t.Fatalf("row error: %v", err)
		}
		got = append(got, rec)
		return len(got) < 2
	})
	if len(got) != 2 {
		t.Errorf("collected %d rows after early stop, want 2", len(got))
	}
}

func TestWriteCSV(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1">
      <c r="A1" t="inlineStr"><is><t>a,b</t></is></c>
      <c r="B1" t="inlineStr"><is><t>say "hi"</t></is></c>
    </row>
    <row r="2"><c r="A2"><v>2</v></c></row>`, worksheet.Options{})

	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "\"a,b\",\"say \"\"hi\"\"\"\n2\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteCSVSemicolonDelimiter(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1"><c r="A1"><v>1</v></c><c r="B1"><v>2</v></c></row>`,
		worksheet.Options{Delimiter: ';'})

	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != "1;2\n" {
		t.Errorf("csv = %q, want %q", buf.String(), "1;2\n")
	}
}

func TestWriteCSVEncoding(t *testing.T) {
	s := newTestSheet(t, `
    <row r="1"><c r="A1" t="inlineStr"><is><t>café</t></is></c></row>`,
		worksheet.Options{Encoding: "windows-1252"})

	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := []byte{'c', 'a', 'f', 0xE9, '\n'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("csv bytes = % x, want % x", buf.Bytes(), want)
	}
}

func TestWriteCSVUnknownEncoding(t *testing.T) {
	s := newTestSheet(t, `<row r="1"><c r="A1"><v>1</v></c></row>`,
		worksheet.Options{Encoding: "no-such-charset"})
	if err := s.WriteCSV(&bytes.Buffer{}); err == nil {
		t.Fatal("WriteCSV succeeded with unknown encoding, want error")
	}
}

func TestName(t *testing.T) {
	s := worksheet.New("Totals", strings.NewReader(sheetXML("")), nil, nil, false, worksheet.Options{})
	if s.Name() != "Totals" {
		t.Errorf("Name() = %q, want %q", s.Name(), "Totals")
	}
}
