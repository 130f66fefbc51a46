package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/pkg/dataset"
)

// cacheFileRegex strips characters that are unsafe in cache file names.
var cacheFileRegex = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// tableCache is the per-source table cache. It layers an in-memory map over
// an optional on-disk Parquet cache and tracks a version counter per table,
// bumped on every invalidation so pipelines can detect stale memo keys.
//
// The last successfully fetched dataset per table survives invalidation, so
// a failing refresh can degrade to it instead of erroring.
type tableCache struct {
	source string
	dir    string

	mu       sync.RWMutex
	mem      map[string]*dataset.Dataset
	lastGood map[string]*dataset.Dataset
	schemas  map[string]dataset.Schema
	versions map[string]uint64
}

// newTableCache creates a cache for the named source. dir enables the disk
// layer when non-empty; it is created on first use.
func newTableCache(source, dir string) *tableCache {
	return &tableCache{
		source:   source,
		dir:      dir,
		mem:      map[string]*dataset.Dataset{},
		lastGood: map[string]*dataset.Dataset{},
		schemas:  map[string]dataset.Schema{},
		versions: map[string]uint64{},
	}
}

// get returns the cached dataset for table, consulting memory first and then
// the disk layer.
func (c *tableCache) get(ctx context.Context, table string) (*dataset.Dataset, bool) {
	c.mu.RLock()
	ds, ok := c.mem[table]
	c.mu.RUnlock()
	if ok {
		return ds, true
	}
	if c.dir == "" {
		return nil, false
	}
	ds, err := readParquet(ctx, c.tablePath(table))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("discarding unreadable cache file",
				"source", c.source, "table", table, "error", err.Error())
		}
		return nil, false
	}
	c.mu.Lock()
	c.mem[table] = ds
	c.lastGood[table] = ds
	c.mu.Unlock()
	return ds, true
}

// put stores a freshly fetched dataset in memory, records it as last known
// good, and writes it through to disk when the disk layer is enabled. Disk
// write failures are logged, not surfaced: the cache is an optimization.
func (c *tableCache) put(table string, ds *dataset.Dataset) {
	c.mu.Lock()
	c.mem[table] = ds
	c.lastGood[table] = ds
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := writeParquet(c.tablePath(table), ds); err != nil {
		logger.Warn("cache write failed",
			"source", c.source, "table", table, "error", err.Error())
	}
}

// lastKnownGood returns the most recent successfully fetched dataset for
// table, if any. Unlike get it is not cleared by invalidation.
func (c *tableCache) lastKnownGood(table string) (*dataset.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.lastGood[table]
	return ds, ok
}

// clear invalidates cached data. An empty table clears every table. The
// version counter of each cleared table is bumped; last-known-good copies
// are retained in memory for degraded reads.
func (c *tableCache) clear(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if table == "" {
		for t := range c.mem {
			c.versions[t]++
		}
		c.mem = map[string]*dataset.Dataset{}
		c.schemas = map[string]dataset.Schema{}
	} else {
		delete(c.mem, table)
		delete(c.schemas, table)
		c.versions[table]++
	}

	if c.dir == "" {
		return
	}
	if table == "" {
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".parquet" {
				os.Remove(filepath.Join(c.dir, e.Name()))
			}
		}
		os.Remove(c.schemaPath())
	} else {
		os.Remove(c.tablePath(table))
	}
}

// version returns the invalidation counter for table.
func (c *tableCache) version(table string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[table]
}

// schema returns the cached schema for table, loading the schema file from
// disk on first miss.
func (c *tableCache) schema(table string) (dataset.Schema, bool) {
	c.mu.RLock()
	s, ok := c.schemas[table]
	c.mu.RUnlock()
	if ok {
		return s, true
	}
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.schemaPath())
	if err != nil {
		return nil, false
	}
	var all map[string]dataset.Schema
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, false
	}
	c.mu.Lock()
	for t, ts := range all {
		if _, exists := c.schemas[t]; !exists {
			c.schemas[t] = ts
		}
	}
	s, ok = c.schemas[table]
	c.mu.Unlock()
	return s, ok
}

// putSchema caches the schema for table and persists the full schema map of
// the source as a single JSON file.
func (c *tableCache) putSchema(table string, s dataset.Schema) {
	c.mu.Lock()
	c.schemas[table] = s
	all := make(map[string]dataset.Schema, len(c.schemas))
	for t, ts := range c.schemas {
		all[t] = ts
	}
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return
	}
	if err := atomicWrite(c.schemaPath(), data); err != nil {
		logger.Warn("schema cache write failed",
			"source", c.source, "error", err.Error())
	}
}

// tablePath returns the cache file path for a table.
func (c *tableCache) tablePath(table string) string {
	return filepath.Join(c.dir, cacheFileRegex.ReplaceAllString(table, "_")+".parquet")
}

// schemaPath returns the schema cache file path for the source.
func (c *tableCache) schemaPath() string {
	return filepath.Join(c.dir, cacheFileRegex.ReplaceAllString(c.source, "_")+".json")
}

// readParquet loads a cached Parquet file back into a Dataset.
func readParquet(ctx context.Context, path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parquetToDataset(ctx, data)
}

// parquetToDataset decodes Parquet bytes into a Dataset via Arrow.
func parquetToDataset(ctx context.Context, data []byte) (*dataset.Dataset, error) {
	pf, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening parquet data: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader: %w", err)
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading parquet data: %w", err)
	}
	defer table.Release()

	return dataset.FromArrow(table)
}

// writeParquet persists a Dataset as a Parquet file. The write goes through
// a temporary file renamed into place, so readers never observe a partial
// file.
func writeParquet(path string, ds *dataset.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	table, err := ds.ToArrow()
	if err != nil {
		return err
	}
	defer table.Release()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	writer, err := pqarrow.NewFileWriter(table.Schema(), tmp, props, arrowProps)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, table.NumRows()); err != nil {
		writer.Close()
		return fmt.Errorf("writing parquet data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	tmp.Close()
	return os.Rename(tmp.Name(), path)
}

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
