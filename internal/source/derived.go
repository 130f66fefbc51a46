package source

import (
	"context"
	"fmt"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("derived", newDerivedSource)
}

// constraint is a fixed filter value a derived source applies to every table
// it serves.
type constraint struct {
	field string
	table string
	value any
}

// DerivedSource mirrors another source with fixed filter values applied.
// It lets several targets share one fetched dataset while observing
// different slices of it.
type DerivedSource struct {
	name        string
	upstream    Source
	constraints []constraint
}

// newDerivedSource builds a DerivedSource from its specification. Filters
// declared on the source with a default value become fixed constraints.
func newDerivedSource(name string, spec config.SourceSpec, _ string, resolve Resolver) (Source, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("derived source requires 'source'")
	}
	upstream, err := resolve(spec.Source)
	if err != nil {
		return nil, err
	}

	s := &DerivedSource{name: name, upstream: upstream}
	for filterName, f := range spec.Filters {
		if f.Type != config.FilterKindWidget {
			return nil, fmt.Errorf("derived source filter %q must be a widget filter", filterName)
		}
		if f.Default == nil {
			return nil, fmt.Errorf("derived source filter %q requires a fixed 'default' value", filterName)
		}
		s.constraints = append(s.constraints, constraint{
			field: f.Field,
			table: f.Table,
			value: f.Default,
		})
	}
	return s, nil
}

// Name implements Source.
func (s *DerivedSource) Name() string { return s.name }

// Tables implements Source.
func (s *DerivedSource) Tables(ctx context.Context) ([]string, error) {
	return s.upstream.Tables(ctx)
}

// GetTable implements Source. The upstream table is narrowed by every
// constraint that applies to it.
func (s *DerivedSource) GetTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	ds, err := s.upstream.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, c := range s.constraints {
		if c.table != "" && c.table != table {
			continue
		}
		ds, err = filters.ApplyConstraint(ds, c.field, c.value)
		if err != nil {
			return nil, fmt.Errorf("derived source %q: %w", s.name, err)
		}
	}
	return ds, nil
}

// Schema implements Source. The schema is inferred from the narrowed data so
// enumerations and bounds reflect what this source actually serves.
func (s *DerivedSource) Schema(ctx context.Context, table string) (dataset.Schema, error) {
	ds, err := s.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return ds.InferSchema(), nil
}

// Version implements Source. Derived sources own no cache; invalidation
// tracks the upstream.
func (s *DerivedSource) Version(table string) uint64 { return s.upstream.Version(table) }

// ClearCache implements Source, delegating to the upstream.
func (s *DerivedSource) ClearCache(table string) { s.upstream.ClearCache(table) }
