package transforms

import (
	"context"
	"fmt"
	"strings"

	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("aggregate", newAggregate)
}

// Aggregation methods.
const (
	methodSum   = "sum"
	methodMean  = "mean"
	methodCount = "count"
	methodMin   = "min"
	methodMax   = "max"
)

// aggregateTransform groups rows by key columns and reduces value columns
// with one method. Groups appear in first-seen row order.
type aggregateTransform struct {
	by      []string
	method  string
	columns []string
}

func newAggregate(options map[string]any) (Transform, error) {
	by := optStrings(options, "by")
	if len(by) == 0 {
		return nil, fmt.Errorf("requires a non-empty 'by' list")
	}
	method := optString(options, "method", methodMean)
	switch method {
	case methodSum, methodMean, methodCount, methodMin, methodMax:
	default:
		return nil, fmt.Errorf("unknown aggregation method %q", method)
	}
	return &aggregateTransform{
		by:      by,
		method:  method,
		columns: optStrings(options, "columns"),
	}, nil
}

func (t *aggregateTransform) Name() string { return "aggregate" }

// groupAccum accumulates one value column within one group.
type groupAccum struct {
	sumF   float64
	sumI   int64
	count  int64
	minVal any
	maxVal any
	minF   float64
	maxF   float64
}

func (t *aggregateTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	keyCols := make([]dataset.Column, len(t.by))
	for i, name := range t.by {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		keyCols[i] = col
	}
	valueCols, err := t.valueColumns(ds)
	if err != nil {
		return nil, err
	}

	groupIndex := map[string]int{}
	var groupRows []int
	accums := make([][]groupAccum, len(valueCols))

	for row := 0; row < ds.NumRows(); row++ {
		key := groupKey(keyCols, row)
		g, seen := groupIndex[key]
		if !seen {
			g = len(groupRows)
			groupIndex[key] = g
			groupRows = append(groupRows, row)
			for i := range accums {
				accums[i] = append(accums[i], groupAccum{})
			}
		}
		for i, col := range valueCols {
			cell := col.Values[row]
			if cell == nil {
				continue
			}
			acc := &accums[i][g]
			acc.count++
			f := cellFloat(cell)
			acc.sumF += f
			if iv, isInt := cell.(int64); isInt {
				acc.sumI += iv
			}
			if acc.count == 1 || f < acc.minF {
				acc.minF, acc.minVal = f, cell
			}
			if acc.count == 1 || f > acc.maxF {
				acc.maxF, acc.maxVal = f, cell
			}
		}
	}

	out := make([]dataset.Column, 0, len(keyCols)+len(valueCols)+1)
	for i, col := range keyCols {
		values := make([]any, len(groupRows))
		for g, row := range groupRows {
			values[g] = col.Values[row]
		}
		out = append(out, dataset.Column{Name: t.by[i], Type: col.Type, Values: values})
	}

	if t.method == methodCount {
		values := make([]any, len(groupRows))
		for g := range groupRows {
			var n int64
			if len(valueCols) > 0 {
				n = accums[0][g].count
			} else {
				n = countRows(keyCols, groupRows, groupIndex, g)
			}
			values[g] = n
		}
		out = append(out, dataset.Column{Name: "count", Type: dataset.Int, Values: values})
		return dataset.New(out...)
	}

	for i, col := range valueCols {
		values := make([]any, len(groupRows))
		outType := col.Type
		for g := range groupRows {
			acc := accums[i][g]
			if acc.count == 0 {
				values[g] = nil
				continue
			}
			switch t.method {
			case methodSum:
				if col.Type == dataset.Int {
					values[g] = acc.sumI
				} else {
					values[g] = acc.sumF
				}
			case methodMean:
				values[g] = acc.sumF / float64(acc.count)
				outType = dataset.Float
			case methodMin:
				values[g] = acc.minVal
			case methodMax:
				values[g] = acc.maxVal
			}
		}
		if t.method == methodMean {
			outType = dataset.Float
		}
		out = append(out, dataset.Column{Name: col.Name, Type: outType, Values: values})
	}
	return dataset.New(out...)
}

// valueColumns resolves the columns to reduce: the configured list, or every
// numeric column outside the group keys.
func (t *aggregateTransform) valueColumns(ds *dataset.Dataset) ([]dataset.Column, error) {
	if len(t.columns) > 0 {
		cols := make([]dataset.Column, len(t.columns))
		for i, name := range t.columns {
			col, err := ds.Column(name)
			if err != nil {
				return nil, err
			}
			if col.Type != dataset.Int && col.Type != dataset.Float {
				return nil, fmt.Errorf("cannot aggregate non-numeric column %q", name)
			}
			cols[i] = col
		}
		return cols, nil
	}
	keys := map[string]bool{}
	for _, name := range t.by {
		keys[name] = true
	}
	var cols []dataset.Column
	for _, col := range ds.Columns() {
		if keys[col.Name] {
			continue
		}
		if col.Type == dataset.Int || col.Type == dataset.Float {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// groupKey builds the composite key of one row.
func groupKey(keyCols []dataset.Column, row int) string {
	var sb strings.Builder
	for i, col := range keyCols {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		fmt.Fprintf(&sb, "%v", col.Values[row])
	}
	return sb.String()
}

// countRows counts the rows belonging to group g when no value column
// exists to carry the count.
func countRows(keyCols []dataset.Column, groupRows []int, groupIndex map[string]int, g int) int64 {
	want := groupKey(keyCols, groupRows[g])
	var n int64
	for row := 0; row < len(keyCols[0].Values); row++ {
		if groupKey(keyCols, row) == want {
			n++
		}
	}
	return n
}

// cellFloat converts a numeric cell to float64 for comparison and summing.
func cellFloat(cell any) float64 {
	switch c := cell.(type) {
	case int64:
		return float64(c)
	case float64:
		return c
	}
	return 0
}
