package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/httpconfig"
	"github.com/yougis/lumen/internal/logger"
	"github.com/yougis/lumen/pkg/dataset"
)

func init() {
	Register("rest", newRESTSource)
}

// RESTSource queries a REST endpoint implementing the dashboard data
// protocol: GET {url}/schema returns a map of table names to field schemas,
// GET {url}/data?table={name} returns the table as a JSON array of records.
type RESTSource struct {
	name    string
	url     string
	cache   *tableCache
	client  *http.Client
	httpcfg *httpconfig.Config
	retry   errhandling.RetryConfig
}

// newRESTSource builds a RESTSource from its specification.
func newRESTSource(name string, spec config.SourceSpec, root string, _ Resolver) (Source, error) {
	if spec.URL == "" {
		return nil, fmt.Errorf("rest source requires 'url'")
	}
	httpcfg, err := httpconfig.FromOptions(spec.Options)
	if err != nil {
		return nil, fmt.Errorf("rest source %q: %w", name, err)
	}
	return &RESTSource{
		name:    name,
		url:     strings.TrimRight(spec.URL, "/"),
		cache:   newTableCache(name, cacheDirFor(spec, root)),
		client:  httpcfg.NewClient(),
		httpcfg: httpcfg,
		retry:   errhandling.DefaultRetryConfig(),
	}, nil
}

// Name implements Source.
func (s *RESTSource) Name() string { return s.name }

// Tables implements Source. The table list is the key set of the remote
// schema document.
func (s *RESTSource) Tables(ctx context.Context) ([]string, error) {
	schemas, err := s.fetchSchemas(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTable implements Source.
func (s *RESTSource) GetTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	if ds, hit := s.cache.get(ctx, table); hit {
		return ds, nil
	}

	endpoint := s.url + "/data?" + url.Values{"table": {table}}.Encode()
	var ds *dataset.Dataset
	err := errhandling.Do(ctx, s.retry, "fetch "+s.name+"/"+table, func(ctx context.Context) error {
		data, fetchErr := fetchURL(ctx, s.client, s.httpcfg, endpoint)
		if fetchErr != nil {
			return fetchErr
		}
		ds, fetchErr = decodeJSONRecords(data)
		return fetchErr
	})
	if err != nil {
		switch errhandling.ClassifyError(err).Category {
		case errhandling.CategoryConfig, errhandling.CategoryData:
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

// Schema implements Source. The remote schema is preferred; when the
// endpoint does not serve one for the table, the schema is inferred from the
// fetched data.
func (s *RESTSource) Schema(ctx context.Context, table string) (dataset.Schema, error) {
	if schema, ok := s.cache.schema(table); ok {
		return schema, nil
	}
	schemas, err := s.fetchSchemas(ctx, table)
	if err == nil {
		if schema, ok := schemas[table]; ok {
			s.cache.putSchema(table, schema)
			return schema, nil
		}
	}
	ds, dsErr := s.GetTable(ctx, table)
	if dsErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, dsErr
	}
	schema := ds.InferSchema()
	s.cache.putSchema(table, schema)
	return schema, nil
}

// Version implements Source.
func (s *RESTSource) Version(table string) uint64 { return s.cache.version(table) }

// ClearCache implements Source.
func (s *RESTSource) ClearCache(table string) { s.cache.clear(table) }

// fetchSchemas retrieves the schema document, optionally restricted to one
// table.
func (s *RESTSource) fetchSchemas(ctx context.Context, table string) (map[string]dataset.Schema, error) {
	endpoint := s.url + "/schema"
	if table != "" {
		endpoint += "?" + url.Values{"table": {table}}.Encode()
	}
	var schemas map[string]dataset.Schema
	err := errhandling.Do(ctx, s.retry, "schema "+s.name, func(ctx context.Context) error {
		data, fetchErr := fetchURL(ctx, s.client, s.httpcfg, endpoint)
		if fetchErr != nil {
			return fetchErr
		}
		if decodeErr := json.Unmarshal(data, &schemas); decodeErr != nil {
			return fmt.Errorf("%w: parsing schema document: %v",
				errhandling.ErrSchemaMismatch, decodeErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: schema for %q: %v", errhandling.ErrSourceUnavailable, s.name, err)
	}
	return schemas, nil
}
