package dataset

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// arrowType maps a column type to its Arrow equivalent.
func arrowType(t Type) arrow.DataType {
	switch t {
	case Int:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Time:
		return arrow.FixedWidthTypes.Timestamp_ms
	default:
		return arrow.BinaryTypes.String
	}
}

// ToArrow converts the Dataset into an Arrow table. The caller owns the
// returned table and must Release it.
func (d *Dataset) ToArrow() (arrow.Table, error) {
	fields := make([]arrow.Field, len(d.columns))
	for i, col := range d.columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Type), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.DefaultAllocator
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for i, col := range d.columns {
		fb := builder.Field(i)
		for _, v := range col.Values {
			if v == nil {
				fb.AppendNull()
				continue
			}
			switch b := fb.(type) {
			case *array.StringBuilder:
				b.Append(v.(string))
			case *array.Int64Builder:
				b.Append(v.(int64))
			case *array.Float64Builder:
				b.Append(v.(float64))
			case *array.BooleanBuilder:
				b.Append(v.(bool))
			case *array.TimestampBuilder:
				b.Append(arrow.Timestamp(v.(time.Time).UnixMilli()))
			default:
				return nil, fmt.Errorf("unsupported arrow builder %T for column %q", fb, col.Name)
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), nil
}

// FromArrow converts an Arrow table back into a Dataset.
func FromArrow(table arrow.Table) (*Dataset, error) {
	schema := table.Schema()
	columns := make([]Column, schema.NumFields())
	for i := range columns {
		field := schema.Field(i)
		col := Column{Name: field.Name}
		switch field.Type.ID() {
		case arrow.STRING:
			col.Type = String
		case arrow.INT64:
			col.Type = Int
		case arrow.FLOAT64:
			col.Type = Float
		case arrow.BOOL:
			col.Type = Bool
		case arrow.TIMESTAMP:
			col.Type = Time
		default:
			return nil, fmt.Errorf("unsupported arrow type %s for column %q", field.Type, field.Name)
		}
		col.Values = make([]any, 0, int(table.NumRows()))
		columns[i] = col
	}

	reader := array.NewTableReader(table, table.NumRows())
	defer reader.Release()

	for reader.Next() {
		rec := reader.Record()
		for i, arr := range rec.Columns() {
			for j := 0; j < arr.Len(); j++ {
				if arr.IsNull(j) {
					columns[i].Values = append(columns[i].Values, nil)
					continue
				}
				switch a := arr.(type) {
				case *array.String:
					columns[i].Values = append(columns[i].Values, a.Value(j))
				case *array.Int64:
					columns[i].Values = append(columns[i].Values, a.Value(j))
				case *array.Float64:
					columns[i].Values = append(columns[i].Values, a.Value(j))
				case *array.Boolean:
					columns[i].Values = append(columns[i].Values, a.Value(j))
				case *array.Timestamp:
					ts := int64(a.Value(j))
					columns[i].Values = append(columns[i].Values, time.UnixMilli(ts).UTC())
				default:
					return nil, fmt.Errorf("unsupported arrow array %T for column %q", arr, columns[i].Name)
				}
			}
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow table: %w", err)
	}
	return New(columns...)
}
