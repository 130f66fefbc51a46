// Package pipeline implements the computation unit feeding one view. A
// pipeline pulls its table from a source, narrows it through the filters
// that apply, reshapes it through a transform chain, and memoizes the result
// until something it depends on changes.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/internal/source"
	"github.com/yougis/lumen/internal/transforms"
	"github.com/yougis/lumen/pkg/dataset"
)

// State of a pipeline. A pipeline starts Stale, moves to Computing while a
// Data call is recomputing, and rests at Fresh until invalidated.
type State int

// Pipeline states.
const (
	Stale State = iota
	Computing
	Fresh
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Stale:
		return "stale"
	case Computing:
		return "computing"
	case Fresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// Config assembles a pipeline.
type Config struct {
	// ID identifies the pipeline in logs, conventionally "target/view".
	ID string

	// Table is the source table this pipeline consumes.
	Table string

	// Source provides the table.
	Source source.Source

	// Filters are the source's filters. Only those applying to Table are
	// wired and applied.
	Filters []*filters.Filter

	// Transforms is the view's transform chain.
	Transforms transforms.Chain

	// Resolve resolves param filter references. May be nil when no param
	// filters exist.
	Resolve filters.Resolver

	// Watch registers invalidation callbacks for param filter references.
	// May be nil.
	Watch func(parameter string, fn func())

	// Target and View name the owning components for logging.
	Target string
	View   string
}

// Pipeline is safe for concurrent use. Reads while Fresh are idempotent and
// lock-cheap; a recomputation that loses a race with a newer invalidation
// discards its result and recomputes.
type Pipeline struct {
	id      string
	table   string
	source  source.Source
	filters []*filters.Filter
	chain   transforms.Chain
	resolve filters.Resolver
	logCtx  logger.ComputeContext

	mu         sync.Mutex
	cond       *sync.Cond
	state      State
	generation uint64
	memoKey    string
	data       *dataset.Dataset
	err        error
	listeners  []func(reason string)
}

// New assembles a pipeline and wires its invalidation triggers: widget
// filter changes and param filter re-publications.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("pipeline %q: source is required", cfg.ID)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("pipeline %q: table is required", cfg.ID)
	}
	p := &Pipeline{
		id:      cfg.ID,
		table:   cfg.Table,
		source:  cfg.Source,
		chain:   cfg.Transforms,
		resolve: cfg.Resolve,
		state:   Stale,
		logCtx: logger.ComputeContext{
			PipelineID: cfg.ID,
			Target:     cfg.Target,
			View:       cfg.View,
			Table:      cfg.Table,
		},
	}
	p.cond = sync.NewCond(&p.mu)

	for _, f := range cfg.Filters {
		if !f.AppliesTo(cfg.Table) {
			continue
		}
		p.filters = append(p.filters, f)
		name := f.Name()
		f.OnChange(func() { p.Invalidate("filter " + name) })
		if f.Kind() == "param" && cfg.Watch != nil {
			parameter := f.Parameter()
			cfg.Watch(parameter, func() { p.Invalidate("parameter " + parameter) })
		}
	}
	return p, nil
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string { return p.id }

// Table returns the consumed table name.
func (p *Pipeline) Table() string { return p.table }

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error of the last failed computation, or nil.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// OnInvalidate registers a listener called after every invalidation with its
// reason. Consumers use it to schedule recomputation.
func (p *Pipeline) OnInvalidate(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Invalidate marks the pipeline stale. A computation in flight when the
// invalidation arrives discards its result: the newest writer wins.
func (p *Pipeline) Invalidate(reason string) {
	p.mu.Lock()
	p.generation++
	if p.state == Fresh {
		p.state = Stale
	}
	listeners := make([]func(string), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	logger.Debug("pipeline invalidated", "pipeline_id", p.id, "reason", reason)
	for _, fn := range listeners {
		fn(reason)
	}
}

// Data returns the pipeline's dataset, recomputing only when stale. Repeated
// calls on a Fresh pipeline return the identical dataset. A failed
// computation leaves the pipeline Stale and surfaces the error; it is not
// retried internally.
func (p *Pipeline) Data(ctx context.Context) (*dataset.Dataset, error) {
	for {
		p.mu.Lock()
		key := p.currentKey()
		if p.state == Fresh && p.memoKey == key {
			data := p.data
			p.mu.Unlock()
			return data, nil
		}
		if p.state == Computing {
			// Another goroutine is already computing; wait for it and
			// re-evaluate rather than duplicating the work.
			p.cond.Wait()
			p.mu.Unlock()
			continue
		}
		p.state = Computing
		startGen := p.generation
		p.mu.Unlock()

		data, err := p.compute(ctx)

		p.mu.Lock()
		if err != nil {
			p.chain.Discard()
			p.state = Stale
			p.err = err
			p.cond.Broadcast()
			p.mu.Unlock()
			return nil, err
		}
		if p.generation != startGen {
			// An invalidation arrived mid-computation; the result is
			// already outdated. Staged transform state goes with it so
			// stateful stages such as history see one computation, not two.
			p.chain.Discard()
			p.state = Stale
			p.cond.Broadcast()
			p.mu.Unlock()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		p.chain.Commit()
		p.state = Fresh
		p.memoKey = key
		p.data = data
		p.err = nil
		p.cond.Broadcast()
		p.mu.Unlock()
		return data, nil
	}
}

// compute runs the source, filter and transform stages.
func (p *Pipeline) compute(ctx context.Context) (*dataset.Dataset, error) {
	start := time.Now()
	logger.LogComputeStart(p.logCtx)

	stageCtx := p.logCtx
	stageCtx.Stage = "source"
	stageStart := time.Now()
	ds, err := p.source.GetTable(ctx, p.table)
	if err != nil {
		logger.LogComputeEnd(p.logCtx, 0, time.Since(start), err)
		return nil, err
	}
	logger.LogStage(stageCtx, ds.NumRows(), time.Since(stageStart))

	stageCtx.Stage = "filter"
	stageStart = time.Now()
	for _, f := range p.filters {
		ds, err = f.Apply(ds, p.resolve)
		if err != nil {
			err = fmt.Errorf("filter %q: %w", f.Name(), err)
			logger.LogComputeEnd(p.logCtx, 0, time.Since(start), err)
			return nil, err
		}
	}
	logger.LogStage(stageCtx, ds.NumRows(), time.Since(stageStart))

	stageCtx.Stage = "transform"
	stageStart = time.Now()
	ds, err = p.chain.Apply(ctx, ds)
	if err != nil {
		logger.LogComputeEnd(p.logCtx, 0, time.Since(start), err)
		return nil, err
	}
	logger.LogStage(stageCtx, ds.NumRows(), time.Since(stageStart))

	logger.LogComputeEnd(p.logCtx, ds.NumRows(), time.Since(start), nil)
	return ds, nil
}

// currentKey derives the structural memo key: the source table version plus
// every applied filter's live state. Two computations with equal keys would
// produce equal results, so a Fresh pipeline with a matching key serves its
// cached dataset. Callers must hold p.mu.
func (p *Pipeline) currentKey() string {
	h := sha256.New()
	h.Write([]byte(p.table))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(p.source.Version(p.table), 10)))
	for _, f := range p.filters {
		h.Write([]byte{0})
		h.Write([]byte(f.Name()))
		h.Write([]byte{'='})
		if f.Kind() == "param" {
			fmt.Fprintf(h, "%v", p.resolvedParam(f))
		} else {
			fmt.Fprintf(h, "%v", f.Value())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// resolvedParam folds a param filter's live value into the memo key. An
// unresolved reference keys as pass-through, matching how Apply treats it.
func (p *Pipeline) resolvedParam(f *filters.Filter) any {
	if p.resolve == nil {
		return "<pass>"
	}
	value, err := p.resolve(f.Parameter())
	if err != nil {
		if errors.Is(err, errhandling.ErrUnresolvedParameter) {
			return "<pass>"
		}
		return "<error>"
	}
	return value
}
