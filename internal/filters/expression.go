package filters

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/pkg/dataset"
)

// programCache holds compiled selection expressions keyed by source text.
// Selection expressions repeat on every recomputation, so compiling once
// matters.
var programCache sync.Map

// compileExpression compiles a boolean row expression.
// AllowUndefinedVariables lets rows with missing fields evaluate instead of
// erroring; such rows are simply not selected.
func compileExpression(src string) (*vm.Program, error) {
	if cached, ok := programCache.Load(src); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid selection expression %q: %v",
			errhandling.ErrSchemaMismatch, src, err)
	}
	programCache.Store(src, program)
	return program, nil
}

// ApplyExpression narrows a dataset to the rows for which the expression
// evaluates to true. Each row is exposed to the expression as its field
// values, so `species == "Adelie" && bill_length_mm > 40` reads naturally.
func ApplyExpression(ds *dataset.Dataset, src string) (*dataset.Dataset, error) {
	program, err := compileExpression(src)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, ds.NumRows())
	for i := range keep {
		out, runErr := expr.Run(program, ds.Row(i))
		if runErr != nil {
			return nil, fmt.Errorf("%w: evaluating selection expression: %v",
				errhandling.ErrSchemaMismatch, runErr)
		}
		matched, isBool := out.(bool)
		if !isBool {
			return nil, fmt.Errorf("%w: selection expression %q must evaluate to a boolean, got %T",
				errhandling.ErrSchemaMismatch, src, out)
		}
		keep[i] = matched
	}
	return ds.Mask(keep)
}
