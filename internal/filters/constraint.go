package filters

import (
	"fmt"
	"time"

	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/pkg/dataset"
)

// ApplyConstraint narrows a dataset by one field/value pair.
//
// Value semantics:
//   - nil keeps every row
//   - a list over a numeric or timestamp column with exactly two numeric
//     entries is an inclusive [start, end] range
//   - any other list is set membership
//   - a scalar is equality
//
// A field absent from the dataset is a configuration error.
func ApplyConstraint(ds *dataset.Dataset, field string, value any) (*dataset.Dataset, error) {
	if value == nil {
		return ds, nil
	}
	col, err := ds.Column(field)
	if err != nil {
		return nil, fmt.Errorf("%w: filter field %q not in table", errhandling.ErrSchemaMismatch, field)
	}

	keep := make([]bool, len(col.Values))
	if list, isList := asList(value); isList {
		if lo, hi, isRange := rangeBounds(col.Type, list); isRange {
			for i, cell := range col.Values {
				f, ok := cellAsFloat(cell)
				keep[i] = ok && f >= lo && f <= hi
			}
		} else {
			for i, cell := range col.Values {
				for _, want := range list {
					if scalarEquals(cell, want) {
						keep[i] = true
						break
					}
				}
			}
		}
	} else {
		for i, cell := range col.Values {
			keep[i] = scalarEquals(cell, value)
		}
	}
	return ds.Mask(keep)
}

// asList unwraps list-shaped filter values.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// rangeBounds interprets a two-entry list over an ordered column as an
// inclusive range, returning its bounds on the column's comparison scale.
func rangeBounds(t dataset.Type, list []any) (lo, hi float64, ok bool) {
	if len(list) != 2 {
		return 0, 0, false
	}
	switch t {
	case dataset.Int, dataset.Float, dataset.Time:
	default:
		return 0, 0, false
	}
	lo, okLo := boundAsFloat(list[0])
	hi, okHi := boundAsFloat(list[1])
	if !okLo || !okHi {
		return 0, 0, false
	}
	return lo, hi, true
}

// boundAsFloat converts a range bound to the comparison scale. Timestamps
// compare by Unix milliseconds; date strings are accepted for convenience in
// YAML documents.
func boundAsFloat(v any) (float64, bool) {
	switch b := v.(type) {
	case int:
		return float64(b), true
	case int64:
		return float64(b), true
	case float64:
		return b, true
	case time.Time:
		return float64(b.UnixMilli()), true
	case string:
		if t, err := time.Parse(time.RFC3339, b); err == nil {
			return float64(t.UnixMilli()), true
		}
		if t, err := time.Parse("2006-01-02", b); err == nil {
			return float64(t.UnixMilli()), true
		}
	}
	return 0, false
}

// cellAsFloat converts a column cell to the comparison scale.
func cellAsFloat(cell any) (float64, bool) {
	switch c := cell.(type) {
	case int64:
		return float64(c), true
	case float64:
		return c, true
	case time.Time:
		return float64(c.UnixMilli()), true
	}
	return 0, false
}

// scalarEquals compares a cell against a filter value, coercing across the
// integer/float divide so YAML-decoded numbers match either column type.
func scalarEquals(cell, want any) bool {
	if cell == nil || want == nil {
		return false
	}
	switch c := cell.(type) {
	case string:
		w, ok := want.(string)
		return ok && c == w
	case bool:
		w, ok := want.(bool)
		return ok && c == w
	case time.Time:
		switch w := want.(type) {
		case time.Time:
			return c.Equal(w)
		case string:
			if t, err := time.Parse(time.RFC3339, w); err == nil {
				return c.Equal(t)
			}
			if t, err := time.Parse("2006-01-02", w); err == nil {
				return c.Equal(t)
			}
		}
		return false
	}
	cf, okCell := cellAsFloat(cell)
	wf, okWant := boundAsFloat(want)
	return okCell && okWant && cf == wf
}
