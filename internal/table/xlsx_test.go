package table

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

// buildXLSX assembles a minimal workbook with the given worksheet parts.
func buildXLSX(t *testing.T, relTarget string, sheets map[string]string, shared []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("xl/workbook.xml", `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Data" sheetId="1" r:id="rId1"/><sheet name="Other" sheetId="2" r:id="rId2"/></sheets>
</workbook>`)
	write("xl/_rels/workbook.xml.rels", `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="`+relTarget+`sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="`+relTarget+`sheet2.xml"/>
</Relationships>`)
	var sst strings.Builder
	sst.WriteString(`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	for _, s := range shared {
		if strings.HasPrefix(s, "<") {
			sst.WriteString("<si>" + s + "</si>")
			continue
		}
		sst.WriteString("<si><t>" + s + "</t></si>")
	}
	sst.WriteString("</sst>")
	write("xl/sharedStrings.xml", sst.String())
	for name, body := range sheets {
		write("xl/worksheets/"+name, `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`+body+`</sheetData></worksheet>`)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const sheet1 = `<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c></row>
<row r="2"><c r="A2"><v>25</v></c><c r="B2"><v>50000</v></c><c r="C2" t="s"><v>3</v></c></row>
<row r="3"><c r="A3"><v>30</v></c><c r="C3" t="inlineStr"><is><t>B</t></is></c></row>
<row r="4"><c r="A4"><v>35</v></c><c r="B4"><v>58000</v></c><c r="C4" t="b"><v>1</v></c></row>`

const sheet2 = `<row><c t="inlineStr"><is><t>only</t></is></c></row><row><c><v>7</v></c></row>`

func TestLoadXLSXFirstSheet(t *testing.T) {
	data := buildXLSX(t, "/xl/worksheets/", map[string]string{"sheet1.xml": sheet1, "sheet2.xml": sheet2},
		[]string{"age", "income", "city", "A"})
	tbl, err := LoadXLSX(data, "people.xlsx", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if got := strings.Join(tbl.NumericColumns(), ","); got != "age,income" {
		t.Fatalf("numeric columns = %s", got)
	}
	income, _ := tbl.Column("income")
	if income.Present()[1] != 58000 || len(income.Present()) != 2 {
		t.Fatalf("income = %v", income.Values)
	}
	city, _ := tbl.Column("city")
	if strings.Join(city.Raw, "|") != "A|B|TRUE" {
		t.Fatalf("city raw = %v", city.Raw)
	}
}

func TestLoadXLSXSheetByName(t *testing.T) {
	data := buildXLSX(t, "worksheets/", map[string]string{"sheet1.xml": sheet1, "sheet2.xml": sheet2},
		[]string{"age", "income", "city", "A"})
	opt := DefaultOptions()
	opt.SheetName = "other"
	tbl, err := LoadXLSX(data, "book.xlsx", opt)
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if len(tbl.Columns) != 1 || tbl.Columns[0].Name != "only" || tbl.Columns[0].Values[0] != 7 {
		t.Fatalf("unexpected table: %+v", tbl.Columns)
	}

	opt.SheetName = "missing"
	_, err = LoadXLSX(data, "book.xlsx", opt)
	var pe *ParseError
	if !errors.As(err, &pe) || !strings.Contains(err.Error(), "Available") && !strings.Contains(err.Error(), "available") {
		t.Fatalf("expected sheet-not-found ParseError, got %v", err)
	}
}

func TestLoadXLSXNotAZip(t *testing.T) {
	_, err := LoadXLSX([]byte("plain text"), "bad.xlsx", DefaultOptions())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestPartName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		if got := partName(tt.input); got != tt.expected {
			t.Errorf("partName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	for ref, want := range map[string]int{"A1": 0, "C12": 2, "Z3": 25, "AA7": 26, "ab2": 27} {
		if got := columnIndex(ref); got != want {
			t.Errorf("columnIndex(%q) = %d, want %d", ref, got, want)
		}
	}
}

func TestLoadXLSXRichTextAndGaps(t *testing.T) {
	sheet := `<row r="1"><c r="A1" t="s"><v>0</v></c><c r="C1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2"><v>1.5</v></c><c r="C2"><v>4</v></c></row>
<row r="3"><c r="A3"><v>2.5</v></c><c r="C3"><v>6</v></c></row>`
	data := buildXLSX(t, "worksheets/", map[string]string{"sheet1.xml": sheet, "sheet2.xml": sheet2},
		[]string{"x", "<r><t>y</t></r><r><t>val</t></r>"})
	tbl, err := LoadXLSX(data, "gaps.xlsx", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	names := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		names[i] = c.Name
	}
	if got := strings.Join(names, ","); got != "x,Unnamed: 1,yval" {
		t.Fatalf("columns = %s", got)
	}
	if got := strings.Join(tbl.NumericColumns(), ","); got != "x,yval" {
		t.Fatalf("numeric columns = %s", got)
	}
}
