package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how a dataset is turned into a Table.
type Options struct {
	// Delimiter for CSV. If 0, auto-detects among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. Both zero means plain Go float syntax.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{MaxRows: 1000000, SheetIndex: 1}
}

// LoadFile reads a CSV/TSV or XLSX file, choosing the reader by extension.
func LoadFile(path string, opt Options) (*Table, error) {
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read xlsx: %w", err)
		}
		return LoadXLSX(b, name, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	return LoadCSV(f, name, opt)
}

// LoadBytes dispatches on the file name like LoadFile but reads from memory.
func LoadBytes(data []byte, name string, opt Options) (*Table, error) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".xlsx") {
		return LoadXLSX(data, name, opt)
	}
	if opt.Delimiter == 0 && strings.HasSuffix(lower, ".tsv") {
		opt.Delimiter = '\t'
	}
	return LoadCSV(bytes.NewReader(data), name, opt)
}

// LoadCSV parses delimited text with a header row.
func LoadCSV(r io.Reader, name string, opt Options) (*Table, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: name, Msg: "empty dataset"}
		}
		return nil, &ParseError{Source: name, Msg: "read header", Err: err}
	}
	b := newBuilder(name, header, opt)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Source: name, Row: b.total + 1, Err: err}
		}
		b.add(rec)
	}
	return b.build()
}

// sniffDelimiter picks the most frequent candidate separator in the header line.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(64 << 10)
	line := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		line = peek[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(line), string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// builder accumulates raw records and infers column kinds once all rows are in.
type builder struct {
	name   string
	header []string
	rows   [][]string
	total  int
	opt    Options
}

func newBuilder(name string, header []string, opt Options) *builder {
	names := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		names[i] = h
	}
	return &builder{name: name, header: names, opt: opt}
}

func (b *builder) add(rec []string) {
	b.total++
	if b.opt.MaxRows > 0 && len(b.rows) >= b.opt.MaxRows {
		return
	}
	row := make([]string, len(b.header))
	for j := range row {
		if j < len(rec) {
			row[j] = strings.TrimSpace(rec[j])
		}
	}
	b.rows = append(b.rows, row)
}

func (b *builder) build() (*Table, error) {
	t := &Table{Name: b.name, Rows: b.total}
	for j, name := range b.header {
		col := Column{Name: name, Raw: make([]string, len(b.rows))}
		vals := make([]float64, len(b.rows))
		numeric, present := true, 0
		for i, row := range b.rows {
			v := row[j]
			col.Raw[i] = v
			if isMissing(v) {
				vals[i] = math.NaN()
				continue
			}
			present++
			x, ok := parseNumeric(v, b.opt)
			if !ok {
				numeric = false
				continue
			}
			vals[i] = x
		}
		if numeric && present > 0 {
			col.Kind = Numeric
			col.Values = vals
		} else {
			col.Kind = Text
		}
		t.Columns = append(t.Columns, col)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "#n/a": {}, "<na>": {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	dec, thou := opt.DecimalSeparator, opt.ThousandsSeparator
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		if thou == ' ' {
			raw = strings.ReplaceAll(raw, "\u00a0", "")
		}
	}
	if dec != 0 && dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
