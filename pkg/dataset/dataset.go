// Package dataset provides the in-memory tabular value passed between
// pipeline stages. A Dataset is a rectangular table of typed columns and is
// treated as immutable once constructed: every narrowing or reshaping
// operation returns a new Dataset.
//
// This package is intended to be importable by external projects that embed
// the Lumen engine or implement custom sources and transforms.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Common errors
var (
	// ErrNotRectangular is returned when columns disagree on row count.
	ErrNotRectangular = errors.New("columns have differing row counts")

	// ErrMixedTypes is returned when a column holds values of more than one type.
	ErrMixedTypes = errors.New("column holds mixed value types")

	// ErrUnknownColumn is returned when a referenced column does not exist.
	ErrUnknownColumn = errors.New("unknown column")
)

// Type identifies the scalar type of a column.
type Type int

// Column types supported by the engine.
const (
	String Type = iota
	Int
	Float
	Bool
	Time
)

// String returns the lowercase name of the type as used in schemas.
func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "integer"
	case Float:
		return "number"
	case Bool:
		return "boolean"
	case Time:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Column is an ordered sequence of scalar values of one type.
// Values are stored as any but are guaranteed homogeneous: string, int64,
// float64, bool or time.Time according to Type. A nil entry represents a
// missing value.
type Column struct {
	Name   string
	Type   Type
	Values []any
}

// Dataset is an immutable rectangular table. All columns share the same row
// count and row alignment.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New constructs a Dataset from the given columns. It validates that the
// table is rectangular and that every column is type-homogeneous.
func New(columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if i == 0 {
			ds.rows = len(col.Values)
		} else if len(col.Values) != ds.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrNotRectangular, col.Name, len(col.Values), ds.rows)
		}
		for _, v := range col.Values {
			if v == nil {
				continue
			}
			if !matchesType(v, col.Type) {
				return nil, fmt.Errorf("%w: column %q declared %s, found %T",
					ErrMixedTypes, col.Name, col.Type, v)
			}
		}
		if _, dup := ds.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		ds.index[col.Name] = i
	}
	return ds, nil
}

// matchesType reports whether v is a legal value for a column of type t.
func matchesType(v any, t Type) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Int:
		_, ok := v.(int64)
		return ok
	case Float:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Time:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// FromRecords builds a Dataset from row-oriented records, inferring column
// types from the first non-nil value seen per field. The fields slice fixes
// the column order; fields absent from a record become nil entries.
func FromRecords(records []map[string]any, fields []string) (*Dataset, error) {
	if len(fields) == 0 {
		seen := map[string]bool{}
		for _, rec := range records {
			for k := range rec {
				if !seen[k] {
					seen[k] = true
					fields = append(fields, k)
				}
			}
		}
		sort.Strings(fields)
	}
	columns := make([]Column, len(fields))
	for i, name := range fields {
		col := Column{Name: name, Type: String, Values: make([]any, len(records))}
		typed := false
		for j, rec := range records {
			v, ok := rec[name]
			if !ok || v == nil {
				continue
			}
			nv, vt, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("field %q row %d: %w", name, j, err)
			}
			if !typed {
				col.Type = vt
				typed = true
			} else if vt != col.Type {
				// Int promotes to Float when both appear in one column.
				if col.Type == Int && vt == Float {
					promote(col.Values[:j])
					col.Type = Float
				} else if col.Type == Float && vt == Int {
					nv = float64(nv.(int64))
				} else {
					return nil, fmt.Errorf("%w: field %q mixes %s and %s",
						ErrMixedTypes, name, col.Type, vt)
				}
			}
			col.Values[j] = nv
		}
		columns[i] = col
	}
	return New(columns...)
}

// normalize converts a raw decoded value into one of the canonical scalar
// representations and reports its column type.
func normalize(v any) (any, Type, error) {
	switch tv := v.(type) {
	case string:
		return tv, String, nil
	case bool:
		return tv, Bool, nil
	case int:
		return int64(tv), Int, nil
	case int64:
		return tv, Int, nil
	case float64:
		return tv, Float, nil
	case float32:
		return float64(tv), Float, nil
	case time.Time:
		return tv, Time, nil
	default:
		return nil, String, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// promote rewrites already-stored int64 values as float64 in place.
func promote(values []any) {
	for i, v := range values {
		if iv, ok := v.(int64); ok {
			values[i] = float64(iv)
		}
	}
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// ColumnNames returns the column names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (d *Dataset) Column(name string) (Column, error) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return d.columns[i], nil
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Columns returns the underlying columns. Callers must not mutate them.
func (d *Dataset) Columns() []Column { return d.columns }

// Row materializes row i as a field → value map.
func (d *Dataset) Row(i int) map[string]any {
	rec := make(map[string]any, len(d.columns))
	for _, col := range d.columns {
		rec[col.Name] = col.Values[i]
	}
	return rec
}

// Records materializes the whole table row-wise. Used at the boundaries to
// expression and script engines, which consume map records.
func (d *Dataset) Records() []map[string]any {
	recs := make([]map[string]any, d.rows)
	for i := 0; i < d.rows; i++ {
		recs[i] = d.Row(i)
	}
	return recs
}

// Mask returns a new Dataset containing the rows where keep[i] is true.
func (d *Dataset) Mask(keep []bool) (*Dataset, error) {
	if len(keep) != d.rows {
		return nil, fmt.Errorf("mask length %d does not match %d rows", len(keep), d.rows)
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	columns := make([]Column, len(d.columns))
	for i, col := range d.columns {
		values := make([]any, 0, n)
		for j, k := range keep {
			if k {
				values = append(values, col.Values[j])
			}
		}
		columns[i] = Column{Name: col.Name, Type: col.Type, Values: values}
	}
	return New(columns...)
}

// Select returns a new Dataset restricted to the named columns, in the given
// order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	columns := make([]Column, 0, len(names))
	for _, name := range names {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return New(columns...)
}

// Append concatenates other below d. Both datasets must agree on column
// names and types.
func (d *Dataset) Append(other *Dataset) (*Dataset, error) {
	if len(d.columns) != len(other.columns) {
		return nil, fmt.Errorf("cannot append: %d columns vs %d", len(other.columns), len(d.columns))
	}
	columns := make([]Column, len(d.columns))
	for i, col := range d.columns {
		oc, err := other.Column(col.Name)
		if err != nil {
			return nil, fmt.Errorf("cannot append: %w", err)
		}
		if oc.Type != col.Type {
			return nil, fmt.Errorf("cannot append: column %q is %s vs %s", col.Name, oc.Type, col.Type)
		}
		values := make([]any, 0, len(col.Values)+len(oc.Values))
		values = append(values, col.Values...)
		values = append(values, oc.Values...)
		columns[i] = Column{Name: col.Name, Type: col.Type, Values: values}
	}
	return New(columns...)
}

// Tail returns the last n rows, or the whole table when it has fewer rows.
func (d *Dataset) Tail(n int) (*Dataset, error) {
	if n >= d.rows {
		return d, nil
	}
	keep := make([]bool, d.rows)
	for i := d.rows - n; i < d.rows; i++ {
		keep[i] = true
	}
	return d.Mask(keep)
}

// Empty returns a zero-row Dataset with the same columns as d.
func (d *Dataset) Empty() *Dataset {
	columns := make([]Column, len(d.columns))
	for i, col := range d.columns {
		columns[i] = Column{Name: col.Name, Type: col.Type}
	}
	ds, _ := New(columns...)
	return ds
}
