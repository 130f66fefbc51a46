package transforms

import (
	"context"
	"fmt"
	"sync"

	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("history", newHistory)
}

// defaultHistoryRows bounds the accumulated window when the specification
// does not set one.
const defaultHistoryRows = 1000

// historyTransform accumulates the rows of successive computations into a
// sliding window, so a view over a live source can show its recent past.
// State is per transform instance, hence per pipeline.
//
// Apply stages the extended window in pending; the window only advances on
// Commit, so a superseded computation leaves the history untouched.
type historyTransform struct {
	maxRows int

	mu      sync.Mutex
	window  *dataset.Dataset
	pending *dataset.Dataset
}

func newHistory(options map[string]any) (Transform, error) {
	maxRows := optInt(options, "max_rows", defaultHistoryRows)
	if maxRows <= 0 {
		return nil, fmt.Errorf("'max_rows' must be positive")
	}
	return &historyTransform{maxRows: maxRows}, nil
}

func (t *historyTransform) Name() string { return "history" }

func (t *historyTransform) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.window == nil {
		window, err := ds.Tail(t.maxRows)
		if err != nil {
			return nil, err
		}
		t.pending = window
		return window, nil
	}

	appended, err := t.window.Append(ds)
	if err != nil {
		return nil, fmt.Errorf("incoming rows do not match history window: %w", err)
	}
	window, err := appended.Tail(t.maxRows)
	if err != nil {
		return nil, err
	}
	t.pending = window
	return window, nil
}

// Commit advances the window to the staged result.
func (t *historyTransform) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.window = t.pending
		t.pending = nil
	}
}

// Discard drops the staged result, keeping the committed window.
func (t *historyTransform) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
}
