package transforms

import (
	"context"
	"fmt"

	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("head", newHead)
}

// headTransform keeps the first n rows.
type headTransform struct {
	n int
}

func newHead(options map[string]any) (Transform, error) {
	n := optInt(options, "n", 5)
	if n < 0 {
		return nil, fmt.Errorf("'n' must not be negative")
	}
	return &headTransform{n: n}, nil
}

func (t *headTransform) Name() string { return "head" }

func (t *headTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if t.n >= ds.NumRows() {
		return ds, nil
	}
	keep := make([]bool, ds.NumRows())
	for i := 0; i < t.n; i++ {
		keep[i] = true
	}
	return ds.Mask(keep)
}
