// Package filters implements the two filter kinds a dashboard source can
// declare. A widget filter narrows a table column by a user-controlled
// value; a param filter narrows by a selection expression resolved from
// another component's live state. The set is closed.
package filters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/pkg/dataset"
)

// Resolver resolves a param filter's dotted reference, e.g.
// "scatter.selection_expr", to its live value. It returns
// errhandling.ErrUnresolvedParameter while the referenced state is not yet
// live.
type Resolver func(parameter string) (any, error)

// Filter narrows the datasets flowing into the pipelines of one source.
// Value changes notify registered listeners, which is how pipelines learn
// they are stale.
type Filter struct {
	name      string
	kind      string
	field     string
	parameter string
	table     string
	label     string

	mu        sync.RWMutex
	value     any
	listeners []func()
}

// New builds a filter from its specification.
func New(name string, spec config.FilterSpec) (*Filter, error) {
	switch spec.Type {
	case config.FilterKindWidget:
		if spec.Field == "" {
			return nil, fmt.Errorf("widget filter %q requires 'field'", name)
		}
	case config.FilterKindParam:
		if spec.Parameter == "" {
			return nil, fmt.Errorf("param filter %q requires 'parameter'", name)
		}
	default:
		return nil, fmt.Errorf("unknown filter type %q for filter %q", spec.Type, name)
	}
	label := spec.Label
	if label == "" {
		label = name
	}
	return &Filter{
		name:      name,
		kind:      spec.Type,
		field:     spec.Field,
		parameter: spec.Parameter,
		table:     spec.Table,
		label:     label,
		value:     spec.Default,
	}, nil
}

// Name returns the filter's name from the specification.
func (f *Filter) Name() string { return f.name }

// Kind returns "widget" or "param".
func (f *Filter) Kind() string { return f.kind }

// Field returns the column a widget filter narrows.
func (f *Filter) Field() string { return f.field }

// Parameter returns the dotted reference of a param filter.
func (f *Filter) Parameter() string { return f.parameter }

// Label returns the user-facing name.
func (f *Filter) Label() string { return f.label }

// AppliesTo reports whether the filter constrains the given table.
func (f *Filter) AppliesTo(table string) bool {
	return f.table == "" || f.table == table
}

// Value returns the current filter value.
func (f *Filter) Value() any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// SetValue updates the filter value and notifies listeners. Listeners run
// synchronously on the calling goroutine, outside the filter's lock.
func (f *Filter) SetValue(v any) {
	f.mu.Lock()
	f.value = v
	listeners := make([]func(), len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()

	logger.Debug("filter value changed", "filter", f.name, "kind", f.kind)
	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers a listener called after every SetValue.
func (f *Filter) OnChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Apply narrows ds by the filter's current state. resolve is consulted only
// by param filters and may be nil for widget filters.
func (f *Filter) Apply(ds *dataset.Dataset, resolve Resolver) (*dataset.Dataset, error) {
	if f.kind == config.FilterKindParam {
		return f.applyParam(ds, resolve)
	}
	value := f.Value()
	if isWildcard(value) {
		return ds, nil
	}
	return ApplyConstraint(ds, f.field, value)
}

// applyParam resolves the bound reference and applies it as a selection
// expression. An unresolved reference passes every row through: the linked
// component simply has no selection yet.
func (f *Filter) applyParam(ds *dataset.Dataset, resolve Resolver) (*dataset.Dataset, error) {
	if resolve == nil {
		return ds, nil
	}
	raw, err := resolve(f.parameter)
	if err != nil {
		if errors.Is(err, errhandling.ErrUnresolvedParameter) {
			logger.Debug("param filter pass-through",
				"filter", f.name, "parameter", f.parameter)
			return ds, nil
		}
		return nil, err
	}
	src, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: parameter %q resolved to %T, expected a selection expression",
			errhandling.ErrSchemaMismatch, f.parameter, raw)
	}
	if src == "" {
		return ds, nil
	}
	return ApplyExpression(ds, src)
}

// isWildcard reports whether a widget value selects everything: an unset
// value, the "all" token, or an empty list.
func isWildcard(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "all" || v == "All" || v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// FromSpecs builds the filters declared on one source, in name order decided
// by the caller's iteration.
func FromSpecs(specs map[string]config.FilterSpec) (map[string]*Filter, error) {
	out := make(map[string]*Filter, len(specs))
	for name, spec := range specs {
		f, err := New(name, spec)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}
