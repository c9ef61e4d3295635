package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// Workbook part names inside the .xlsx archive.
const (
	workbookPart      = "xl/workbook.xml"
	workbookRelsPart  = "xl/_rels/workbook.xml.rels"
	sharedStringsPart = "xl/sharedStrings.xml"
)

// LoadXLSX reads one worksheet of an .xlsx workbook; the first row is the header.
// Sheet selection uses opt.SheetName, then the 1-based opt.SheetIndex.
func LoadXLSX(data []byte, name string, opt Options) (*Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Source: name, Msg: "open xlsx", Err: err}
	}
	book := workbook{parts: map[string]*zip.File{}}
	for _, f := range zr.File {
		book.parts[f.Name] = f
	}
	if err := book.load(); err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	part, err := book.sheetPart(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	f, ok := book.parts[part]
	if !ok {
		return nil, &ParseError{Source: name, Msg: fmt.Sprintf("worksheet %s missing", part)}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &ParseError{Source: name, Msg: "open worksheet", Err: err}
	}
	defer rc.Close()

	rows := &rowScanner{dec: xml.NewDecoder(rc), shared: book.shared}
	header, ok := rows.next()
	if !ok || len(header) == 0 {
		if rows.err != nil {
			return nil, &ParseError{Source: name, Msg: "read header", Err: rows.err}
		}
		return nil, &ParseError{Source: name, Msg: "empty dataset"}
	}
	b := newBuilder(name, header, opt)
	for {
		row, ok := rows.next()
		if !ok {
			break
		}
		b.add(row)
	}
	if rows.err != nil {
		return nil, &ParseError{Source: name, Row: b.total + 1, Err: rows.err}
	}
	return b.build()
}

type sheetEntry struct {
	Name  string `xml:"name,attr"`
	ID    int    `xml:"sheetId,attr"`
	RelID string `xml:"id,attr"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// richText covers both plain <t> and run-formatted <r><t> string items.
type richText struct {
	Text string `xml:"t"`
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func (rt richText) String() string {
	if len(rt.Runs) == 0 {
		return rt.Text
	}
	var sb strings.Builder
	sb.WriteString(rt.Text)
	for _, r := range rt.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// workbook holds the archive parts and the metadata needed to pick a sheet.
type workbook struct {
	parts   map[string]*zip.File
	sheets  []sheetEntry
	targets map[string]string // relationship id -> part name
	shared  []string
}

func (w *workbook) load() error {
	var wb struct {
		Sheets []sheetEntry `xml:"sheets>sheet"`
	}
	if err := w.decode(workbookPart, &wb); err != nil {
		return err
	}
	w.sheets = wb.Sheets

	var rels struct {
		Items []relationship `xml:"Relationship"`
	}
	if err := w.decode(workbookRelsPart, &rels); err != nil {
		return err
	}
	w.targets = make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			w.targets[r.ID] = partName(r.Target)
		}
	}

	var sst struct {
		Items []richText `xml:"si"`
	}
	if err := w.decode(sharedStringsPart, &sst); err != nil {
		return err
	}
	w.shared = make([]string, len(sst.Items))
	for i, si := range sst.Items {
		w.shared[i] = si.String()
	}
	return nil
}

// decode unmarshals an optional archive part; a missing part leaves v untouched.
func (w *workbook) decode(name string, v any) error {
	f, ok := w.parts[name]
	if !ok {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// sheetPart resolves the worksheet part to read. A name wins over an index;
// an index is tried in workbook order, then as a sheetId, then as the
// conventional sheetN.xml part.
func (w *workbook) sheetPart(name string, index int) (string, error) {
	if name != "" {
		names := make([]string, 0, len(w.sheets))
		for _, s := range w.sheets {
			if strings.EqualFold(s.Name, name) {
				if p, ok := w.targets[s.RelID]; ok {
					return p, nil
				}
			}
			names = append(names, s.Name)
		}
		return "", fmt.Errorf("sheet %q not found; available sheets: %s", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index <= len(w.sheets) {
		if p, ok := w.targets[w.sheets[index-1].RelID]; ok {
			return p, nil
		}
	}
	for _, s := range w.sheets {
		if s.ID == index {
			if p, ok := w.targets[s.RelID]; ok {
				return p, nil
			}
		}
	}
	return path.Join("xl", "worksheets", "sheet"+strconv.Itoa(index)+".xml"), nil
}

// partName turns a relationship target into an archive entry name.
func partName(target string) string {
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

type sheetCell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Value  string    `xml:"v"`
	Inline *richText `xml:"is"`
}

// rowScanner decodes one <row> element at a time from a worksheet stream.
type rowScanner struct {
	dec    *xml.Decoder
	shared []string
	err    error
}

// next returns the cells of the following row as text, positioned by their
// references. It reports false at the end of the sheet or on malformed XML,
// in which case err is set.
func (s *rowScanner) next() ([]string, bool) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			return nil, false
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row struct {
			Cells []sheetCell `xml:"c"`
		}
		if err := s.dec.DecodeElement(&row, &se); err != nil {
			s.err = err
			return nil, false
		}
		var out []string
		col := 0
		for _, c := range row.Cells {
			if c.Ref != "" {
				if i := columnIndex(c.Ref); i >= 0 {
					col = i
				}
			}
			for len(out) <= col {
				out = append(out, "")
			}
			out[col] = s.text(c)
			col++
		}
		return out, true
	}
}

func (s *rowScanner) text(c sheetCell) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(s.shared) {
			return ""
		}
		return s.shared[i]
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
		return ""
	case "b":
		if strings.TrimSpace(c.Value) == "1" {
			return "TRUE"
		}
		return "FALSE"
	}
	return c.Value
}

// columnIndex maps a cell reference such as "C12" to a 0-based column.
func columnIndex(ref string) int {
	n := 0
	for _, r := range ref {
		switch {
		case r >= 'A' && r <= 'Z':
			n = n*26 + int(r-'A') + 1
		case r >= 'a' && r <= 'z':
			n = n*26 + int(r-'a') + 1
		default:
			return n - 1
		}
	}
	return n - 1
}
