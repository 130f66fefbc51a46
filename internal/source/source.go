// Package source provides data sources for the dashboard engine. A source
// owns a set of named tables, fetches them on demand, caches them in memory
// and optionally on disk, and exposes per-table version counters that
// pipelines use to detect invalidation.
//
// Source implementations register themselves by type name; sources are
// instantiated from a dashboard specification via FromSpec.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/pkg/dataset"
)

// Source is a provider of named tables.
//
// GetTable returns the full table as a Dataset; narrowing happens downstream
// in pipelines. Implementations cache fetched tables until ClearCache is
// called, and must be safe for concurrent use.
type Source interface {
	// Name returns the source's name from the specification.
	Name() string

	// Tables lists the table names this source provides.
	Tables(ctx context.Context) ([]string, error)

	// GetTable returns the named table, fetching it on cache miss.
	GetTable(ctx context.Context, table string) (*dataset.Dataset, error)

	// Schema returns the field schema of the named table.
	Schema(ctx context.Context, table string) (dataset.Schema, error)

	// Version returns the invalidation counter for table. It increases
	// every time the table's cache entry is cleared, so consumers can
	// detect that memoized results are stale.
	Version(table string) uint64

	// ClearCache invalidates cached data for table, or for every table
	// when table is empty.
	ClearCache(table string)
}

// Resolver looks up an already-built sibling source by name. Derived sources
// use it to bind their upstream.
type Resolver func(name string) (Source, error)

// Constructor builds a source from its specification. root is the directory
// relative paths resolve against.
type Constructor func(name string, spec config.SourceSpec, root string, resolve Resolver) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a source type available to New. It panics on duplicate
// registration, which indicates a programming error.
func Register(sourceType string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[sourceType]; dup {
		panic(fmt.Sprintf("source: duplicate registration of type %q", sourceType))
	}
	registry[sourceType] = c
}

// Types returns the registered source type names, sorted.
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

// New builds one source from its specification.
func New(name string, spec config.SourceSpec, root string, resolve Resolver) (Source, error) {
	registryMu.RLock()
	c, ok := registry[spec.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", spec.Type)
	}
	return c(name, spec, root, resolve)
}

// FromSpec builds every source declared in a dashboard specification.
// Derived sources may reference siblings in any declaration order; reference
// cycles are rejected.
func FromSpec(spec *config.DashboardSpec) (map[string]Source, error) {
	built := map[string]Source{}
	building := map[string]bool{}

	var resolve Resolver
	resolve = func(name string) (Source, error) {
		if s, ok := built[name]; ok {
			return s, nil
		}
		declared, ok := spec.Sources[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		if building[name] {
			return nil, fmt.Errorf("source dependency cycle through %q", name)
		}
		building[name] = true
		defer delete(building, name)

		s, err := New(name, declared, spec.Root, resolve)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		built[name] = s
		return s, nil
	}

	for name := range spec.Sources {
		if _, err := resolve(name); err != nil {
			return nil, err
		}
	}
	return built, nil
}

// cacheDirFor resolves a source's cache directory against the specification
// root. Empty stays empty, which disables the disk cache.
func cacheDirFor(spec config.SourceSpec, root string) string {
	if spec.CacheDir == "" {
		return ""
	}
	if filepath.IsAbs(spec.CacheDir) {
		return spec.CacheDir
	}
	return filepath.Join(root, spec.CacheDir)
}
