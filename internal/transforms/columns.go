package transforms

import (
	"context"
	"fmt"

	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("columns", newColumns)
}

// columnsTransform restricts the dataset to a subset of columns, in the
// declared order.
type columnsTransform struct {
	columns []string
}

func newColumns(options map[string]any) (Transform, error) {
	cols := optStrings(options, "columns")
	if len(cols) == 0 {
		return nil, fmt.Errorf("requires a non-empty 'columns' list")
	}
	return &columnsTransform{columns: cols}, nil
}

func (t *columnsTransform) Name() string { return "columns" }

func (t *columnsTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	return ds.Select(t.columns...)
}
