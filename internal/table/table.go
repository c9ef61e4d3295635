package table

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the semantic type of a column.
type Kind string

const (
	Numeric Kind = "numeric"
	Text    Kind = "text"
)

// Column is a named, typed sequence of row values.
type Column struct {
	Name string
	Kind Kind
	// Values holds parsed numbers for numeric columns; NaN marks a missing cell.
	Values []float64
	// Raw holds the trimmed cell text for every column kind.
	Raw []string
}

// Len returns the row count of the column.
func (c Column) Len() int { return len(c.Raw) }

// Present returns the non-missing numeric values in row order.
func (c Column) Present() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Table is an ordered set of columns loaded from a dataset. It is read-only
// once returned by a loader.
type Table struct {
	Name    string
	Columns []Column
	// Rows is the number of data rows seen in the source, which can exceed the
	// loaded row count when Options.MaxRows truncates the input.
	Rows int
}

// RowCount returns the number of loaded rows.
func (t *Table) RowCount() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Validate reports a ParseError for tables the analysis core must not accept.
func (t *Table) Validate() error {
	if t == nil {
		return &ParseError{Msg: "no table"}
	}
	if len(t.Columns) == 0 {
		return &ParseError{Source: t.Name, Msg: "table has no columns"}
	}
	n := t.Columns[0].Len()
	for _, c := range t.Columns[1:] {
		if c.Len() != n {
			return &ParseError{Source: t.Name, Msg: fmt.Sprintf("column %q has %d rows, expected %d", c.Name, c.Len(), n)}
		}
	}
	for _, c := range t.Columns {
		if c.Kind == Numeric && len(c.Values) != n {
			return &ParseError{Source: t.Name, Msg: fmt.Sprintf("numeric column %q has %d values, expected %d", c.Name, len(c.Values), n)}
		}
	}
	return nil
}

// NumericColumns returns the names of numeric columns in table order.
func (t *Table) NumericColumns() []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, c := range t.Columns {
		if c.Kind == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks a column up by exact name.
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ParseError indicates a dataset that could not be turned into a valid Table.
type ParseError struct {
	Source string
	Row    int // 1-based data row, 0 when not row specific
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse")
	if e.Source != "" {
		b.WriteString(" ")
		b.WriteString(e.Source)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }
