package dashboard

import (
	"context"
	"sync/atomic"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/internal/pipeline"
	"github.com/yougis/lumen/internal/selection"
	"github.com/yougis/lumen/pkg/dataset"
)

// View is one visualization fed by its own pipeline. Views in the same
// selection group narrow each other: a selection published by one is applied
// to the data of every sibling, but not to the originating view itself.
type View struct {
	name     string
	spec     config.ViewSpec
	target   string
	pipeline *pipeline.Pipeline
	group    *selection.Group
	registry *selection.Registry

	dirty atomic.Bool
}

// newView wires a view: its pipeline invalidations and its selection group
// subscription both mark the view dirty so the next refresh re-renders it.
func newView(name, target string, spec config.ViewSpec, p *pipeline.Pipeline, registry *selection.Registry) *View {
	v := &View{
		name:     name,
		spec:     spec,
		target:   target,
		pipeline: p,
		registry: registry,
	}
	v.dirty.Store(true)
	p.OnInvalidate(func(string) { v.dirty.Store(true) })

	if spec.SelectionGroup != "" {
		v.group = registry.Group(spec.SelectionGroup)
		v.group.Subscribe(func(origin string) {
			if origin != name {
				v.dirty.Store(true)
			}
		})
	}
	return v
}

// Name returns the view name.
func (v *View) Name() string { return v.name }

// Type returns the view kind from the specification.
func (v *View) Type() string { return v.spec.Type }

// Pipeline returns the view's pipeline.
func (v *View) Pipeline() *pipeline.Pipeline { return v.pipeline }

// Dirty reports whether the view needs re-rendering.
func (v *View) Dirty() bool { return v.dirty.Load() }

// Data computes the view's dataset: the pipeline result, narrowed by the
// group selection when a sibling originated one.
func (v *View) Data(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := v.pipeline.Data(ctx)
	if err != nil {
		return nil, err
	}
	if v.group != nil {
		if expression, origin, ok := v.group.Selection(); ok && origin != v.name {
			return filters.ApplyExpression(ds, expression)
		}
	}
	return ds, nil
}

// markClean records that the current state has been rendered.
func (v *View) markClean() { v.dirty.Store(false) }

// Select publishes a selection expression from this view: it is shared with
// the view's group and exposed as the "<view>.selection_expr" parameter for
// param filters. An empty expression clears the selection.
func (v *View) Select(expression string) {
	if v.group != nil {
		v.group.SetSelection(expression, v.name)
	}
	v.registry.Publish(v.name, "selection_expr", expression)
}
