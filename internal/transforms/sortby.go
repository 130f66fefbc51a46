package transforms

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("sort", newSort)
}

// sortTransform orders rows by one or more columns. Later columns break ties
// of earlier ones. Nil cells sort first.
type sortTransform struct {
	by        []string
	ascending bool
}

func newSort(options map[string]any) (Transform, error) {
	by := optStrings(options, "by")
	if len(by) == 0 {
		return nil, fmt.Errorf("requires a non-empty 'by' list")
	}
	ascending := true
	if v, ok := options["ascending"].(bool); ok {
		ascending = v
	}
	return &sortTransform{by: by, ascending: ascending}, nil
}

func (t *sortTransform) Name() string { return "sort" }

func (t *sortTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	keys := make([]dataset.Column, len(t.by))
	for i, name := range t.by {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		keys[i] = col
	}

	order := make([]int, ds.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		for _, col := range keys {
			c := compareCells(col.Values[order[a]], col.Values[order[b]])
			if c == 0 {
				continue
			}
			if t.ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	columns := make([]dataset.Column, ds.NumColumns())
	for i, col := range ds.Columns() {
		values := make([]any, len(order))
		for j, idx := range order {
			values[j] = col.Values[idx]
		}
		columns[i] = dataset.Column{Name: col.Name, Type: col.Type, Values: values}
	}
	return dataset.New(columns...)
}

// compareCells orders two cells of one column. Nil precedes any value.
func compareCells(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
		return 0
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	}
	return 0
}
