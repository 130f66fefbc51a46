// Package dashboard assembles a declarative specification into a running
// engine: sources, filters, per-view pipelines, selection groups and a
// renderer collaborator, plus the periodic refresh loop.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/internal/pipeline"
	"github.com/yougis/lumen/internal/scheduler"
	"github.com/yougis/lumen/internal/selection"
	"github.com/yougis/lumen/internal/source"
	"github.com/yougis/lumen/internal/transforms"
)

// Dashboard is a fully wired engine instance.
type Dashboard struct {
	spec     *config.DashboardSpec
	sources  map[string]source.Source
	registry *selection.Registry
	targets  []*Target
	renderer Renderer
}

// Load reads a specification file and assembles the dashboard. A nil
// renderer falls back to the logging renderer.
func Load(path string, renderer Renderer) (*Dashboard, error) {
	spec, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(spec, renderer)
}

// New assembles a dashboard from a converted specification.
func New(spec *config.DashboardSpec, renderer Renderer) (*Dashboard, error) {
	if renderer == nil {
		renderer = LogRenderer{}
	}
	applyDefaults(spec)

	sources, err := source.FromSpec(spec)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		spec:     spec,
		sources:  sources,
		registry: selection.NewRegistry(),
		renderer: renderer,
	}

	// Filters belong to their source and are shared by every target over
	// that source, so a change on one page narrows the other pages too.
	sourceFilters := map[string]map[string]*filters.Filter{}
	for name, sourceSpec := range spec.Sources {
		built, buildErr := filters.FromSpecs(sourceSpec.Filters)
		if buildErr != nil {
			return nil, fmt.Errorf("source %q: %w", name, buildErr)
		}
		sourceFilters[name] = built
	}

	for _, targetSpec := range spec.Targets {
		target, buildErr := d.buildTarget(targetSpec, sourceFilters[targetSpec.Source])
		if buildErr != nil {
			return nil, fmt.Errorf("target %q: %w", targetSpec.Title, buildErr)
		}
		d.targets = append(d.targets, target)
	}

	logger.Info("dashboard assembled",
		"title", spec.Config.Title,
		"sources", len(d.sources),
		"targets", len(d.targets),
	)
	return d, nil
}

// buildTarget wires one target: its exposed filters and one pipeline per
// view.
func (d *Dashboard) buildTarget(spec config.TargetSpec, available map[string]*filters.Filter) (*Target, error) {
	src := d.sources[spec.Source]

	exposed := map[string]*filters.Filter{}
	if len(spec.Filters) == 0 {
		for name, f := range available {
			exposed[name] = f
		}
	} else {
		for _, name := range spec.Filters {
			f, ok := available[name]
			if !ok {
				return nil, fmt.Errorf("source %q declares no filter %q", spec.Source, name)
			}
			exposed[name] = f
		}
	}

	// Pipelines see every filter of the source in a stable order; scoping
	// to the view's table happens inside the pipeline.
	ordered := make([]*filters.Filter, 0, len(available))
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ordered = append(ordered, available[name])
	}

	target := &Target{spec: spec, source: src, filters: exposed}

	viewNames := make([]string, 0, len(spec.Views))
	for name := range spec.Views {
		viewNames = append(viewNames, name)
	}
	sort.Strings(viewNames)
	for _, name := range viewNames {
		viewSpec := spec.Views[name]
		chain, err := transforms.FromSpecs(viewSpec.Transforms)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", name, err)
		}
		p, err := pipeline.New(pipeline.Config{
			ID:         spec.Title + "/" + name,
			Table:      viewSpec.Table,
			Source:     src,
			Filters:    ordered,
			Transforms: chain,
			Resolve:    d.registry.Resolve,
			Watch:      d.registry.Watch,
			Target:     spec.Title,
			View:       name,
		})
		if err != nil {
			return nil, err
		}
		target.views = append(target.views, newView(name, spec.Title, viewSpec, p, d.registry))
	}
	return target, nil
}

// Title returns the dashboard title.
func (d *Dashboard) Title() string { return d.spec.Config.Title }

// Targets returns the dashboard's targets in declaration order.
func (d *Dashboard) Targets() []*Target { return d.targets }

// Target returns the target with the given title, or nil.
func (d *Dashboard) Target(title string) *Target {
	for _, t := range d.targets {
		if t.spec.Title == title {
			return t
		}
	}
	return nil
}

// Source returns the named source, or nil.
func (d *Dashboard) Source(name string) source.Source { return d.sources[name] }

// Registry returns the selection registry, for embedding applications that
// publish view state themselves.
func (d *Dashboard) Registry() *selection.Registry { return d.registry }

// Refresh recomputes and renders every dirty view across all targets.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var firstErr error
	for _, t := range d.targets {
		if err := t.refresh(ctx, d.renderer, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Render computes and renders every view unconditionally.
func (d *Dashboard) Render(ctx context.Context) error {
	var firstErr error
	for _, t := range d.targets {
		if err := t.refresh(ctx, d.renderer, true); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run renders the dashboard, then keeps the process alive until the context
// is canceled, driving the periodic refreshers of targets declaring a
// refresh rate. Targets without one render on start and then only react to
// invalidations triggered through filters and selections.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.Render(ctx); err != nil {
		return err
	}

	refresher := scheduler.New()
	for _, t := range d.targets {
		if t.RefreshRate() <= 0 {
			continue
		}
		target := t
		err := refresher.Register(scheduler.Job{
			Name:     "refresh " + target.Title(),
			Interval: target.RefreshRate(),
			Run: func(jobCtx context.Context) {
				target.scheduleRefresh(jobCtx, d.renderer)
			},
		})
		if err != nil {
			return err
		}
	}
	refresher.Start(ctx)
	<-ctx.Done()
	refresher.Wait()
	return ctx.Err()
}
