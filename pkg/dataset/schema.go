package dataset

import (
	"sort"
	"time"
)

// FieldSchema describes one column of a table. Discrete string columns carry
// their enumerated values so widget filters can present option lists; numeric
// columns carry their observed bounds so range filters can be seeded.
type FieldSchema struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	Enum []any   `json:"enum,omitempty"`
	Min  float64 `json:"inclusiveMinimum,omitempty"`
	Max  float64 `json:"inclusiveMaximum,omitempty"`
}

// Schema maps field names to their descriptions.
type Schema map[string]FieldSchema

// maxEnumValues bounds the enum list computed for string columns. Columns
// with more distinct values than this are treated as free-form text.
const maxEnumValues = 1000

// InferSchema computes the schema of a Dataset by scanning its columns.
func (d *Dataset) InferSchema() Schema {
	schema := make(Schema, len(d.columns))
	for _, col := range d.columns {
		fs := FieldSchema{Name: col.Name, Type: col.Type.String()}
		switch col.Type {
		case String:
			distinct := map[string]bool{}
			for _, v := range col.Values {
				if s, ok := v.(string); ok {
					distinct[s] = true
				}
				if len(distinct) > maxEnumValues {
					distinct = nil
					break
				}
			}
			if distinct != nil {
				values := make([]string, 0, len(distinct))
				for s := range distinct {
					values = append(values, s)
				}
				sort.Strings(values)
				fs.Enum = make([]any, len(values))
				for i, s := range values {
					fs.Enum[i] = s
				}
			}
		case Int, Float:
			first := true
			for _, v := range col.Values {
				f, ok := asFloat(v)
				if !ok {
					continue
				}
				if first {
					fs.Min, fs.Max = f, f
					first = false
					continue
				}
				if f < fs.Min {
					fs.Min = f
				}
				if f > fs.Max {
					fs.Max = f
				}
			}
		case Time:
			first := true
			for _, v := range col.Values {
				t, ok := v.(time.Time)
				if !ok {
					continue
				}
				f := float64(t.UnixMilli())
				if first {
					fs.Min, fs.Max = f, f
					first = false
					continue
				}
				if f < fs.Min {
					fs.Min = f
				}
				if f > fs.Max {
					fs.Max = f
				}
			}
		}
		schema[col.Name] = fs
	}
	return schema
}

// asFloat converts numeric scalar values to float64.
func asFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case int64:
		return float64(tv), true
	case float64:
		return tv, true
	}
	return 0, false
}
