package dashboard

import (
	"context"

	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/pkg/dataset"
)

// Renderer consumes computed view data. The engine computes; presentation
// belongs to the embedding application, which supplies its own Renderer.
type Renderer interface {
	// RenderView delivers a freshly computed dataset for one view together
	// with the view's display options.
	RenderView(ctx context.Context, target, view, viewType string, ds *dataset.Dataset, options map[string]any) error
}

// LogRenderer is the default headless renderer. It logs what would be
// displayed, which keeps dashboards runnable and testable without a UI.
type LogRenderer struct{}

// RenderView implements Renderer.
func (LogRenderer) RenderView(_ context.Context, target, view, viewType string, ds *dataset.Dataset, _ map[string]any) error {
	logger.Info("view rendered",
		"target", target,
		"view", view,
		"type", viewType,
		"rows", ds.NumRows(),
		"columns", ds.NumColumns(),
	)
	return nil
}
