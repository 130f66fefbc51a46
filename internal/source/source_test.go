package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/errhandling"
	"github.com/yougis/lumen/internal/filters"
	"github.com/yougis/lumen/pkg/dataset"
)

const penguinsCSV = `species,island,mass,year
Adelie,Torgersen,3750,2007
Adelie,Biscoe,3800,2007
Gentoo,Biscoe,5400,2008
Chinstrap,Dream,3700,2009
`

func writeTestTable(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test table: %v", err)
	}
	return path
}

func newTestFileSource(t *testing.T, cacheDir string) Source {
	t.Helper()
	dir := t.TempDir()
	writeTestTable(t, dir, "penguins.csv", penguinsCSV)
	s, err := New("penguins", config.SourceSpec{
		Type:     "file",
		CacheDir: cacheDir,
		Tables:   map[string]string{"penguins": "penguins.csv"},
	}, dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFileSource_GetTable(t *testing.T) {
	s := newTestFileSource(t, "")
	ds, err := s.GetTable(context.Background(), "penguins")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if ds.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", ds.NumRows())
	}
	mass, err := ds.Column("mass")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if mass.Type != dataset.Int {
		t.Errorf("mass inferred as %s, want integer", mass.Type)
	}
	if mass.Values[0] != int64(3750) {
		t.Errorf("got %v, want 3750", mass.Values[0])
	}
}

func TestFileSource_UnknownTable(t *testing.T) {
	s := newTestFileSource(t, "")
	_, err := s.GetTable(context.Background(), "missing")
	if !errors.Is(err, errhandling.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	s, err := New("broken", config.SourceSpec{
		Type:   "file",
		Tables: map[string]string{"gone": "does-not-exist.csv"},
	}, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.GetTable(context.Background(), "gone")
	if !errors.Is(err, errhandling.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestFileSource_DiskCacheSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	tablePath := writeTestTable(t, dir, "penguins.csv", penguinsCSV)

	spec := config.SourceSpec{
		Type:     "file",
		CacheDir: cacheDir,
		Tables:   map[string]string{"penguins": "penguins.csv"},
	}
	s, err := New("penguins", spec, dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err = s.GetTable(context.Background(), "penguins"); err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if _, err = os.Stat(filepath.Join(cacheDir, "penguins.parquet")); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	// A fresh instance must serve from the disk cache even when the
	// original file is gone.
	if err = os.Remove(tablePath); err != nil {
		t.Fatalf("removing table file: %v", err)
	}
	s2, err := New("penguins", spec, dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ds, err := s2.GetTable(context.Background(), "penguins")
	if err != nil {
		t.Fatalf("GetTable from cache: %v", err)
	}
	if ds.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", ds.NumRows())
	}
}

func TestFileSource_ClearCacheBumpsVersion(t *testing.T) {
	s := newTestFileSource(t, "")
	if _, err := s.GetTable(context.Background(), "penguins"); err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	before := s.Version("penguins")
	s.ClearCache("penguins")
	if after := s.Version("penguins"); after != before+1 {
		t.Errorf("version not bumped: %d -> %d", before, after)
	}
}

func TestFileSource_Schema(t *testing.T) {
	s := newTestFileSource(t, "")
	schema, err := s.Schema(context.Background(), "penguins")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	species, ok := schema["species"]
	if !ok {
		t.Fatal("schema missing species field")
	}
	if species.Type != "string" {
		t.Errorf("species type %q, want string", species.Type)
	}
	if len(species.Enum) != 3 {
		t.Errorf("species enum %v, want 3 values", species.Enum)
	}
	mass := schema["mass"]
	if mass.Min != 3700 || mass.Max != 5400 {
		t.Errorf("mass bounds [%v, %v], want [3700, 5400]", mass.Min, mass.Max)
	}
}

func TestRESTSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"readings": {"value": {"name": "value", "type": "number"}}}`))
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("table") != "readings" {
			http.Error(w, "unknown table", http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"value": 1.5}, {"value": 2.5}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s, err := New("sensor", config.SourceSpec{Type: "rest", URL: server.URL}, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tables, err := s.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(tables) != 1 || tables[0] != "readings" {
		t.Errorf("got tables %v, want [readings]", tables)
	}

	ds, err := s.GetTable(context.Background(), "readings")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if ds.NumRows() != 2 {
		t.Errorf("got %d rows, want 2", ds.NumRows())
	}

	schema, err := s.Schema(context.Background(), "readings")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if schema["value"].Type != "number" {
		t.Errorf("got type %q, want number", schema["value"].Type)
	}
}

func TestRESTSource_SendsConfiguredHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Write([]byte(`[{"value": 1.5}]`))
	}))
	defer server.Close()

	s, err := New("sensor", config.SourceSpec{
		Type: "rest",
		URL:  server.URL,
		Options: map[string]any{
			"headers": map[string]any{"X-Api-Key": "secret"},
			"auth":    map[string]any{"type": "bearer", "token": "tok"},
		},
	}, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ds, err := s.GetTable(context.Background(), "readings")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if ds.NumRows() != 1 {
		t.Errorf("got %d rows, want 1", ds.NumRows())
	}
}

func TestRESTSource_InvalidHTTPOptions(t *testing.T) {
	_, err := New("sensor", config.SourceSpec{
		Type:    "rest",
		URL:     "http://example.test",
		Options: map[string]any{"auth": map[string]any{"type": "digest"}},
	}, "", nil)
	if err == nil {
		t.Fatal("expected error for unknown auth type")
	}
}

func TestRESTSource_ClientErrorDoesNotDegrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	s, err := New("sensor", config.SourceSpec{Type: "rest", URL: server.URL}, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.GetTable(context.Background(), "readings")
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	var classified *errhandling.ClassifiedError
	if !errors.As(err, &classified) || classified.Category != errhandling.CategoryConfig {
		t.Fatalf("expected config category, got %v", err)
	}
}

func TestDerivedSource(t *testing.T) {
	dir := t.TempDir()
	writeTestTable(t, dir, "penguins.csv", penguinsCSV)
	spec := &config.DashboardSpec{
		Root: dir,
		Sources: map[string]config.SourceSpec{
			"penguins": {
				Type:   "file",
				Tables: map[string]string{"penguins": "penguins.csv"},
			},
			"adelie": {
				Type:   "derived",
				Source: "penguins",
				Filters: map[string]config.FilterSpec{
					"species": {Type: config.FilterKindWidget, Field: "species", Default: "Adelie"},
				},
			},
		},
	}
	sources, err := FromSpec(spec)
	if err != nil {
		t.Fatalf("FromSpec: %v", err)
	}
	ds, err := sources["adelie"].GetTable(context.Background(), "penguins")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if ds.NumRows() != 2 {
		t.Errorf("got %d rows, want 2", ds.NumRows())
	}

	// Invalidation tracks the upstream cache.
	sources["penguins"].ClearCache("")
	if v := sources["adelie"].Version("penguins"); v != 1 {
		t.Errorf("derived version %d, want 1", v)
	}
}

func TestFromSpec_Cycle(t *testing.T) {
	spec := &config.DashboardSpec{
		Sources: map[string]config.SourceSpec{
			"a": {Type: "derived", Source: "b"},
			"b": {Type: "derived", Source: "a"},
		},
	}
	if _, err := FromSpec(spec); err == nil {
		t.Fatal("expected cycle error")
	}
}

// referencePenguinsCSV builds the reference penguin census: 345 rows, of
// which 152 are Adelie, 124 Gentoo and 69 Chinstrap.
func referencePenguinsCSV() string {
	var sb strings.Builder
	sb.WriteString("species,island,sex,bill_length_mm,bill_depth_mm,body_mass_g\n")
	groups := []struct {
		species string
		island  string
		n       int
	}{
		{"Adelie", "Torgersen", 152},
		{"Gentoo", "Biscoe", 124},
		{"Chinstrap", "Dream", 69},
	}
	for _, g := range groups {
		for i := 0; i < g.n; i++ {
			sex := "male"
			if i%2 == 1 {
				sex = "female"
			}
			fmt.Fprintf(&sb, "%s,%s,%s,%.1f,%.1f,%d\n",
				g.species, g.island, sex,
				38.0+float64(i%20), 16.5+0.5*float64(i%6), 3500+25*(i%40))
		}
	}
	return sb.String()
}

func TestPenguinsReferenceScenario(t *testing.T) {
	dir := t.TempDir()
	writeTestTable(t, dir, "penguins.csv", referencePenguinsCSV())
	s, err := New("penguins", config.SourceSpec{
		Type:   "file",
		Tables: map[string]string{"penguins": "penguins.csv"},
	}, dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ds, err := s.GetTable(context.Background(), "penguins")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if ds.NumRows() != 345 {
		t.Fatalf("got %d rows, want 345", ds.NumRows())
	}

	species, err := filters.New("species", config.FilterSpec{
		Type: config.FilterKindWidget, Field: "species",
	})
	if err != nil {
		t.Fatalf("filters.New: %v", err)
	}
	species.SetValue("Adelie")
	out, err := species.Apply(ds, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 152 {
		t.Errorf("got %d Adelie rows, want 152", out.NumRows())
	}
	col, err := out.Column("species")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	for _, v := range col.Values {
		if v != "Adelie" {
			t.Fatalf("unexpected species %v in filtered rows", v)
		}
	}
}
