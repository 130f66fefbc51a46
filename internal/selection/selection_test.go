package selection

import (
	"errors"
	"testing"

	"github.com/yougis/lumen/internal/errhandling"
)

func TestResolve_UnpublishedParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("scatter.selection_expr")
	if !errors.Is(err, errhandling.ErrUnresolvedParameter) {
		t.Fatalf("expected unresolved parameter, got %v", err)
	}
}

func TestResolve_Malformed(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("scatter")
	if !errors.Is(err, errhandling.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestPublishAndResolve(t *testing.T) {
	r := NewRegistry()
	notified := 0
	r.Watch("scatter.selection_expr", func() { notified++ })

	r.Publish("scatter", "selection_expr", `species == "Adelie"`)

	value, err := r.Resolve("scatter.selection_expr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != `species == "Adelie"` {
		t.Errorf("got %v", value)
	}
	if notified != 1 {
		t.Errorf("got %d watcher calls, want 1", notified)
	}
}

func TestGroup_BroadcastsToSubscribers(t *testing.T) {
	r := NewRegistry()
	g := r.Group("linked")
	if r.Group("linked") != g {
		t.Fatal("Group must return the same instance per name")
	}

	var origins []string
	g.Subscribe(func(origin string) { origins = append(origins, origin) })
	g.Subscribe(func(origin string) { origins = append(origins, origin) })

	g.SetSelection(`mass > 4000`, "scatter")

	if len(origins) != 2 || origins[0] != "scatter" {
		t.Fatalf("got notifications %v, want two from scatter", origins)
	}
	expression, origin, ok := g.Selection()
	if !ok || expression != `mass > 4000` || origin != "scatter" {
		t.Errorf("Selection() = %q, %q, %v", expression, origin, ok)
	}

	g.Clear()
	if _, _, ok = g.Selection(); ok {
		t.Error("selection still live after Clear")
	}
}
