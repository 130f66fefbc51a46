// Package selection links sibling views for cross-filtering. Views that
// share a selection group observe one shared selection expression; param
// filters resolve dotted references like "scatter.selection_expr" against
// the live state views publish here.
package selection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/logger"
)

// Registry is the per-dashboard hub for selection groups and published view
// parameters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	groups   map[string]*Group
	params   map[string]any
	watchers map[string][]func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups:   map[string]*Group{},
		params:   map[string]any{},
		watchers: map[string][]func(){},
	}
}

// Group returns the named selection group, creating it on first use.
func (r *Registry) Group(name string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		g = &Group{name: name}
		r.groups[name] = g
	}
	return g
}

// Publish records a view parameter, e.g. ("scatter", "selection_expr",
// expression), and notifies watchers of that parameter. Publishing makes the
// parameter resolvable; until then param filters referencing it pass rows
// through.
func (r *Registry) Publish(view, attr string, value any) {
	parameter := view + "." + attr
	r.mu.Lock()
	r.params[parameter] = value
	watchers := make([]func(), len(r.watchers[parameter]))
	copy(watchers, r.watchers[parameter])
	r.mu.Unlock()

	logger.Debug("view parameter published", "parameter", parameter)
	for _, fn := range watchers {
		fn()
	}
}

// Resolve returns the live value of a dotted parameter reference. A
// reference that nothing has published yet resolves to
// errhandling.ErrUnresolvedParameter.
func (r *Registry) Resolve(parameter string) (any, error) {
	if !strings.Contains(parameter, ".") {
		return nil, fmt.Errorf("%w: malformed parameter reference %q",
			errhandling.ErrSchemaMismatch, parameter)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.params[parameter]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errhandling.ErrUnresolvedParameter, parameter)
	}
	return value, nil
}

// Watch registers a callback invoked whenever the parameter is re-published.
func (r *Registry) Watch(parameter string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers[parameter] = append(r.watchers[parameter], fn)
}

// Group is one shared selection. A view publishing a selection into its
// group invalidates every subscribed sibling; the originating view is
// recorded so it can be exempted from its own selection.
type Group struct {
	name string

	mu          sync.RWMutex
	expression  string
	origin      string
	live        bool
	subscribers []func(origin string)
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// SetSelection publishes a selection expression from the named origin view
// and notifies subscribers. An empty expression clears the selection.
func (g *Group) SetSelection(expression, origin string) {
	g.mu.Lock()
	g.expression = expression
	g.origin = origin
	g.live = expression != ""
	subscribers := make([]func(string), len(g.subscribers))
	copy(subscribers, g.subscribers)
	g.mu.Unlock()

	logger.Debug("selection changed",
		"group", g.name, "origin", origin, "live", expression != "")
	for _, fn := range subscribers {
		fn(origin)
	}
}

// Selection returns the current expression and its origin view. ok is false
// when no selection is live.
func (g *Group) Selection() (expression, origin string, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.expression, g.origin, g.live
}

// Clear drops the selection and notifies subscribers.
func (g *Group) Clear() {
	g.SetSelection("", "")
}

// Subscribe registers a callback invoked with the origin view after every
// selection change.
func (g *Group) Subscribe(fn func(origin string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}
