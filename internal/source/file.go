package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/httpconfig"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("file", newFileSource)
}

// FileSource loads tables from CSV, JSON or Parquet files, addressed by
// local path or HTTP URL.
type FileSource struct {
	name    string
	root    string
	tables  map[string]string
	cache   *tableCache
	client  *http.Client
	httpcfg *httpconfig.Config
	retry   errhandling.RetryConfig
}

// newFileSource builds a FileSource from its specification.
func newFileSource(name string, spec config.SourceSpec, root string, _ Resolver) (Source, error) {
	if len(spec.Tables) == 0 {
		return nil, fmt.Errorf("file source requires at least one table")
	}
	httpcfg, err := httpconfig.FromOptions(spec.Options)
	if err != nil {
		return nil, fmt.Errorf("file source %q: %w", name, err)
	}
	return &FileSource{
		name:    name,
		root:    root,
		tables:  spec.Tables,
		cache:   newTableCache(name, cacheDirFor(spec, root)),
		client:  httpcfg.NewClient(),
		httpcfg: httpcfg,
		retry:   errhandling.DefaultRetryConfig(),
	}, nil
}

// Name implements Source.
func (s *FileSource) Name() string { return s.name }

// Tables implements Source.
func (s *FileSource) Tables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTable implements Source. A fetch failure degrades to the last known
// good dataset when one exists; otherwise it surfaces as source unavailable.
func (s *FileSource) GetTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	location, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: source %q has no table %q",
			errhandling.ErrSchemaMismatch, s.name, table)
	}
	if ds, hit := s.cache.get(ctx, table); hit {
		return ds, nil
	}

	var ds *dataset.Dataset
	err := errhandling.Do(ctx, s.retry, "fetch "+s.name+"/"+table, func(ctx context.Context) error {
		var fetchErr error
		ds, fetchErr = s.fetch(ctx, location)
		return fetchErr
	})
	if err != nil {
		switch errhandling.ClassifyError(err).Category {
		case errhandling.CategoryConfig, errhandling.CategoryData:
			// Bad declarations do not degrade, they surface.
			return nil, err
		}
		if stale, ok := s.cache.lastKnownGood(table); ok {
			logger.Warn("table fetch failed, serving last known good data",
				"source", s.name, "table", table, "error", err.Error())
			return stale, nil
		}
		return nil, fmt.Errorf("%w: table %q: %v", errhandling.ErrSourceUnavailable, table, err)
	}

	s.cache.put(table, ds)
	return ds, nil
}

// Schema implements Source.
func (s *FileSource) Schema(ctx context.Context, table string) (dataset.Schema, error) {
	if schema, ok := s.cache.schema(table); ok {
		return schema, nil
	}
	ds, err := s.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	schema := ds.InferSchema()
	s.cache.putSchema(table, schema)
	return schema, nil
}

// Version implements Source.
func (s *FileSource) Version(table string) uint64 { return s.cache.version(table) }

// ClearCache implements Source.
func (s *FileSource) ClearCache(table string) { s.cache.clear(table) }

// fetch loads and decodes one table location.
func (s *FileSource) fetch(ctx context.Context, location string) (*dataset.Dataset, error) {
	data, err := s.read(ctx, location)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(stripQuery(location))) {
	case ".csv":
		return decodeCSV(data)
	case ".json":
		return decodeJSONRecords(data)
	case ".parquet", ".parq":
		return parquetToDataset(ctx, data)
	default:
		return nil, fmt.Errorf("%w: unsupported table format %q",
			errhandling.ErrSchemaMismatch, filepath.Ext(location))
	}
}

// read returns the raw bytes at a location, local or remote.
func (s *FileSource) read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return fetchURL(ctx, s.client, s.httpcfg, location)
	}
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing file will not appear by retrying.
			return nil, &errhandling.ClassifiedError{
				Category:    errhandling.CategoryUnknown,
				Retryable:   false,
				Message:     "table file not found: " + path,
				OriginalErr: err,
			}
		}
		return nil, err
	}
	return data, nil
}

// stripQuery drops a URL query string so extension detection works on URLs.
func stripQuery(location string) string {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		return location[:i]
	}
	return location
}

// fetchURL performs a GET and returns the body, classifying non-2xx
// responses for the retry logic.
func fetchURL(ctx context.Context, client *http.Client, httpcfg *httpconfig.Config, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpcfg.ApplyTo(req)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errhandling.ClassifyHTTPStatus(resp.StatusCode, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// decodeCSV parses CSV bytes into a Dataset. The first row is the header;
// cell types are inferred per column by FromRecords after scalar parsing.
func decodeCSV(data []byte) (*dataset.Dataset, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing CSV: %v", errhandling.ErrSchemaMismatch, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty CSV document", errhandling.ErrSchemaMismatch)
	}
	header := rows[0]
	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = parseCSVValue(row[i])
			}
		}
		records = append(records, rec)
	}
	ds, err := dataset.FromRecords(records, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errhandling.ErrSchemaMismatch, err)
	}
	return ds, nil
}

// parseCSVValue infers a scalar from a CSV cell. Empty cells become nil.
func parseCSVValue(cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "NA" || cell == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(cell); err == nil {
		return b
	}
	if t, err := time.Parse(time.RFC3339, cell); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", cell); err == nil {
		return t
	}
	return cell
}

// decodeJSONRecords parses a JSON array of objects into a Dataset.
func decodeJSONRecords(data []byte) (*dataset.Dataset, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON records: %v", errhandling.ErrSchemaMismatch, err)
	}
	ds, err := dataset.FromRecords(records, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errhandling.ErrSchemaMismatch, err)
	}
	return ds, nil
}
