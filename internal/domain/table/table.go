// Package table realizes raw partner records into a column-oriented form
// the engines can scan. The column set of a table is the union of keys seen
// across all records in the batch; keys a record lacks are nil.
package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zopper/recon/internal/domain/model"
)

// Table is an ordered collection of rows stored by column.
type Table struct {
	names []string
	cols  map[string][]any
	n     int
}

// New returns an empty table with zero rows and no columns.
func New() *Table {
	return &Table{cols: make(map[string][]any)}
}

// FromRecords builds a table from raw records. Column names are trimmed;
// when two raw names trim to the same column the first wins.
func FromRecords(recs []model.Record) *Table {
	t := &Table{cols: make(map[string][]any), n: len(recs)}
	for _, r := range recs {
		for k := range r.Data {
			name := strings.TrimSpace(k)
			if name == "" {
				continue
			}
			if _, ok := t.cols[name]; !ok {
				t.cols[name] = make([]any, len(recs))
				t.names = append(t.names, name)
			}
		}
	}
	for i, r := range recs {
		for k, v := range r.Data {
			name := strings.TrimSpace(k)
			if col, ok := t.cols[name]; ok && col[i] == nil {
				col[i] = v
			}
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.n }

// Columns returns the column names in first-seen order.
func (t *Table) Columns() []string { return t.names }

// Has reports whether the table carries a column.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the raw values of a column, or nil when absent.
func (t *Table) Column(name string) []any { return t.cols[name] }

// SetColumn attaches or replaces a column. Derived columns added by engines
// go through here; len(vals) must equal Len for a non-empty table.
func (t *Table) SetColumn(name string, vals []any) {
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = vals
	if t.n == 0 {
		t.n = len(vals)
	}
}

// Rename moves a column to a new name when the destination does not exist yet.
func (t *Table) Rename(from, to string) {
	col, ok := t.cols[from]
	if !ok || t.Has(to) {
		return
	}
	delete(t.cols, from)
	t.cols[to] = col
	for i, n := range t.names {
		if n == from {
			t.names[i] = to
		}
	}
}

// Clone returns a shallow copy: the column map and name list are copied so
// callers can attach derived columns without affecting each other, while the
// value slices of existing columns are shared.
func (t *Table) Clone() *Table {
	c := &Table{
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]any, len(t.cols)),
		n:     t.n,
	}
	for k, v := range t.cols {
		c.cols[k] = v
	}
	return c
}

// Filter returns a new table containing only rows where keep[i] is true.
func (t *Table) Filter(keep []bool) *Table {
	count := 0
	for _, k := range keep {
		if k {
			count++
		}
	}
	out := &Table{
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]any, len(t.cols)),
		n:     count,
	}
	for name, col := range t.cols {
		vals := make([]any, 0, count)
		for i, k := range keep {
			if k {
				vals = append(vals, col[i])
			}
		}
		out.cols[name] = vals
	}
	return out
}

// Strings returns the column stringified per row: nil becomes "", numbers
// are rendered without a trailing ".0", everything else via its string form.
func (t *Table) Strings(name string) []string {
	col := t.cols[name]
	out := make([]string, t.n)
	if col == nil {
		return out
	}
	for i, v := range col {
		out[i] = Stringify(v)
	}
	return out
}

// Numbers returns the column coerced to float64 per row. Values that fail
// numeric cleaning come back as 0, matching the engines' fill policy for
// dirty amounts.
func (t *Table) Numbers(name string) []float64 {
	col := t.cols[name]
	out := make([]float64, t.n)
	if col == nil {
		return out
	}
	for i, v := range col {
		if f, ok := Numeric(v); ok {
			out[i] = f
		}
	}
	return out
}

// Times returns the column as timestamps where values are already
// time.Time; other values come back as the zero time. Textual dates go
// through the temporal parser instead.
func (t *Table) Times(name string) []time.Time {
	col := t.cols[name]
	out := make([]time.Time, t.n)
	if col == nil {
		return out
	}
	for i, v := range col {
		if ts, ok := v.(time.Time); ok {
			out[i] = ts
		}
	}
	return out
}

// Stringify renders a raw cell value for parsing and grouping.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return ""
	}
}

// Numeric coerces a raw cell to a float64, stripping the thousand separators
// and currency markers partners leave in amount columns.
func Numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		for _, junk := range []string{",", "₹", "INR", "Rs.", "Rs"} {
			s = strings.ReplaceAll(s, junk, "")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
