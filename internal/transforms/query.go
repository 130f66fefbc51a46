package transforms

import (
	"context"
	"fmt"

	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("query", newQuery)
}

// queryTransform keeps the rows matching a boolean row expression, e.g.
// `mass > 4000 && species != "Gentoo"`.
type queryTransform struct {
	expression string
}

func newQuery(options map[string]any) (Transform, error) {
	expression := optString(options, "expression", "")
	if expression == "" {
		return nil, fmt.Errorf("requires 'expression'")
	}
	return &queryTransform{expression: expression}, nil
}

func (t *queryTransform) Name() string { return "query" }

func (t *queryTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	return filters.ApplyExpression(ds, t.expression)
}
