package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/internal/source"
)

// Target is one dashboard page: a set of views over one source, with the
// source's filters exposed for user control.
type Target struct {
	spec    config.TargetSpec
	source  source.Source
	filters map[string]*filters.Filter
	views   []*View
}

// Title returns the target title.
func (t *Target) Title() string { return t.spec.Title }

// Views returns the target's views.
func (t *Target) Views() []*View { return t.views }

// View returns the named view, or nil.
func (t *Target) View(name string) *View {
	for _, v := range t.views {
		if v.name == name {
			return v
		}
	}
	return nil
}

// Filters returns the filters exposed on this target.
func (t *Target) Filters() map[string]*filters.Filter { return t.filters }

// SetFilter updates an exposed filter's value. The change invalidates every
// pipeline the filter applies to.
func (t *Target) SetFilter(name string, value any) error {
	f, ok := t.filters[name]
	if !ok {
		return fmt.Errorf("target %q exposes no filter %q", t.spec.Title, name)
	}
	f.SetValue(value)
	return nil
}

// RefreshRate returns the periodic refresh interval, zero when disabled.
func (t *Target) RefreshRate() time.Duration {
	return time.Duration(t.spec.RefreshRate) * time.Millisecond
}

// refresh recomputes and renders the target's views. With force false only
// dirty views are touched. View failures do not abort the remaining views;
// they are joined and returned together.
func (t *Target) refresh(ctx context.Context, renderer Renderer, force bool) error {
	var errs []error
	for _, v := range t.views {
		if !force && !v.Dirty() {
			continue
		}
		ds, err := v.Data(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("view %q: %w", v.name, err))
			logger.Error("view computation failed",
				"target", t.spec.Title, "view", v.name, "error", err.Error())
			continue
		}
		if err := renderer.RenderView(ctx, t.spec.Title, v.name, v.spec.Type, ds, v.spec.Options); err != nil {
			errs = append(errs, fmt.Errorf("rendering view %q: %w", v.name, err))
			continue
		}
		v.markClean()
	}
	return errors.Join(errs...)
}

// scheduleRefresh invalidates the target's pipelines against a refreshed
// source and re-renders. Called by the periodic refresher.
func (t *Target) scheduleRefresh(ctx context.Context, renderer Renderer) {
	t.source.ClearCache("")
	for _, v := range t.views {
		v.pipeline.Invalidate("scheduled refresh")
	}
	if err := t.refresh(ctx, renderer, false); err != nil {
		logger.Warn("scheduled refresh incomplete",
			"target", t.spec.Title, "error", err.Error())
	}
}
