package xcsv_test

// xcsv_testhelpers_test.go — in-memory .xlsx fixture builders shared by the
// package-level tests.  All fixtures are assembled with archive/zip so no
// external workbook file is required.

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const testRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
</Relationships>`

const testWorkbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Sheet 1" sheetId="1" r:id="rId1"/>
    <sheet name="Q3!Totals" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`

const testSharedStringsXML = `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>name</t></si>
  <si><t>value</t></si>
  <si><t>widget</t></si>
</sst>`

const testStylesXML = `<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <cellXfs count="2">
    <xf numFmtId="0"/>
    <xf numFmtId="14" applyNumberFormat="1"/>
  </cellXfs>
</styleSheet>`

const testSheet1XML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
    <row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>12.5</v></c></row>
    <row r="3"><c r="A3" s="1"><v>44927</v></c><c r="B3" t="b"><v>0</v></c></row>
  </sheetData>
</worksheet>`

const testSheet2XML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1"><v>100</v></c></row>
  </sheetData>
</worksheet>`

// buildXLSX assembles an in-memory workbook archive from entry name →
// content, failing the test on any write error.
func buildXLSX(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(data)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// twoSheetEntries returns the archive entries of the standard two-sheet
// fixture used throughout these tests.
func twoSheetEntries() map[string]string {
	return map[string]string{
		"xl/_rels/workbook.xml.rels": testRelsXML,
		"xl/workbook.xml":            testWorkbookXML,
		"xl/sharedStrings.xml":       testSharedStringsXML,
		"xl/styles.xml":              testStylesXML,
		"xl/worksheets/sheet1.xml":   testSheet1XML,
		"xl/worksheets/sheet2.xml":   testSheet2XML,
	}
}

// writeXLSXFile materializes the archive entries as an .xlsx file in a
// per-test temp directory and returns its path.
func writeXLSXFile(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := os.WriteFile(path, buildXLSX(t, entries), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
