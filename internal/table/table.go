// Package table holds raw, schema-less tables as read from uploaded files and
// infers a data type for each column.
package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred data type of a column.
type Kind int

// Column kinds.
const (
	KindEmpty Kind = iota
	KindNumeric
	KindString
	KindTime
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindMixed:
		return "mixed"
	default:
		return "empty"
	}
}

// Column is one source column. Values are float64, string, time.Time or nil
// for a missing cell.
type Column struct {
	Label    string
	HasLabel bool
	Values   []any
	Kind     Kind
}

// Table is a raw table of unknown schema.
type Table struct {
	Columns []Column
	Source  string
}

// Rows returns the number of data rows.
func (t *Table) Rows() int {
	n := 0
	for _, c := range t.Columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}

// Labels returns the column labels; columns without a label yield "".
func (t *Table) Labels() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

// Value returns the cell at row of column col, or nil when the column is
// shorter than the table.
func (t *Table) Value(col, row int) any {
	c := t.Columns[col]
	if row >= len(c.Values) {
		return nil
	}
	return c.Values[row]
}

// FirstValue returns the first non-missing value of a column.
func (c *Column) FirstValue() (any, bool) {
	for _, v := range c.Values {
		if !IsMissing(v) {
			return v, true
		}
	}
	return nil, false
}

// InferKinds recomputes the Kind of every column.
func (t *Table) InferKinds() {
	for i := range t.Columns {
		t.Columns[i].Kind = inferKind(t.Columns[i].Values)
	}
}

func inferKind(values []any) Kind {
	kind := KindEmpty
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		var k Kind
		switch v.(type) {
		case float64, float32, int, int32, int64:
			k = KindNumeric
		case time.Time:
			k = KindTime
		default:
			k = KindString
		}
		switch {
		case kind == KindEmpty:
			kind = k
		case kind != k:
			return KindMixed
		}
	}
	return kind
}

// IsMissing reports whether a cell counts as missing: nil, NaN, or a blank or
// NaN-like string.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "nan", "null", "none", "n/a", "na", "#n/a":
			return true
		}
	}
	return false
}

// ParseCell converts a textual cell into float64 when it looks numeric,
// nil when it is missing, and leaves it as a trimmed string otherwise.
func ParseCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if IsMissing(trimmed) {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsInf(f, 0) {
			return trimmed
		}
		return f
	}
	return trimmed
}

// ToFloat coerces a cell to a finite float. Non-numeric and missing cells
// report false.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
