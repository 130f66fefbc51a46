// Package transforms implements the reshaping stages of a view pipeline.
// A transform consumes one Dataset and produces another; transforms are
// instantiated per pipeline from their specification, so stateful kinds
// such as history keep their state per consumer.
package transforms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/pkg/dataset"
)

// Transform is one reshaping stage.
type Transform interface {
	// Name returns the transform type name.
	Name() string

	// Apply produces the transformed dataset. Implementations must not
	// mutate the input.
	Apply(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Stateful is implemented by transforms that carry state across
// applications, such as history. Apply must only stage its state change;
// the owning pipeline calls Commit when the computation's result is kept
// and Discard when it is superseded or fails, so a discarded computation
// leaves no trace in the transform.
type Stateful interface {
	Commit()
	Discard()
}

// Constructor builds a transform from its options map.
type Constructor func(options map[string]any) (Transform, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a transform type available to New. It panics on duplicate
// registration, which indicates a programming error.
func Register(transformType string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[transformType]; dup {
		panic(fmt.Sprintf("transforms: duplicate registration of type %q", transformType))
	}
	registry[transformType] = c
}

// Types returns the registered transform type names, sorted.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New builds one transform from its specification.
func New(spec config.TransformSpec) (Transform, error) {
	registryMu.RLock()
	c, ok := registry[spec.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transform type %q", spec.Type)
	}
	t, err := c(spec.Options)
	if err != nil {
		return nil, fmt.Errorf("transform %q: %w", spec.Type, err)
	}
	return t, nil
}

// Chain is an ordered sequence of transforms applied front to back.
type Chain []Transform

// FromSpecs instantiates a transform chain.
func FromSpecs(specs []config.TransformSpec) (Chain, error) {
	chain := make(Chain, 0, len(specs))
	for _, spec := range specs {
		t, err := New(spec)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// Apply runs the chain. A failing stage aborts the run with its position and
// type attached.
func (c Chain) Apply(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	var err error
	for i, t := range c {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		ds, err = t.Apply(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %d (%s): %v", errhandling.ErrTransform, i, t.Name(), err)
		}
	}
	return ds, nil
}

// Commit publishes the staged state of every stateful transform in the
// chain.
func (c Chain) Commit() {
	for _, t := range c {
		if s, ok := t.(Stateful); ok {
			s.Commit()
		}
	}
}

// Discard drops the staged state of every stateful transform in the chain.
func (c Chain) Discard() {
	for _, t := range c {
		if s, ok := t.(Stateful); ok {
			s.Discard()
		}
	}
}

// Option helpers. Specification options arrive as decoded YAML/JSON, so
// numbers may be int, int64 or float64.

func optString(options map[string]any, key, def string) string {
	if v, ok := options[key].(string); ok {
		return v
	}
	return def
}

func optInt(options map[string]any, key string, def int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func optStrings(options map[string]any, key string) []string {
	switch v := options[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
