package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
config:
  title: Station Monitor
sources:
  stations:
    type: file
    tables:
      readings: data/readings.csv
targets:
  - title: Overview
    source: stations
    views:
      latest:
        type: table
        table: readings
`

func TestParseYAMLString(t *testing.T) {
	result := ParseYAMLString(minimalYAML)
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Format != "yaml" {
		t.Errorf("Format = %q, want yaml", result.Format)
	}
	if _, ok := result.Data["sources"]; !ok {
		t.Error("parsed data missing 'sources'")
	}
}

func TestParseYAMLString_SyntaxError(t *testing.T) {
	result := ParseYAMLString("sources:\n  bad: [unclosed\n")
	if result.IsValid() {
		t.Fatal("expected a parse error")
	}
	if result.Errors[0].Type != ErrorTypeSyntax {
		t.Errorf("error type = %q, want %q", result.Errors[0].Type, ErrorTypeSyntax)
	}
	if result.Errors[0].Line == 0 {
		t.Error("expected a line number in the error")
	}
}

func TestParseYAMLString_NotAMapping(t *testing.T) {
	result := ParseYAMLString("- just\n- a\n- list\n")
	if result.IsValid() {
		t.Fatal("expected a format error")
	}
	if result.Errors[0].Type != ErrorTypeFormat {
		t.Errorf("error type = %q, want %q", result.Errors[0].Type, ErrorTypeFormat)
	}
}

func TestParseJSONString(t *testing.T) {
	result := ParseJSONString(`{"sources": {}, "targets": []}`)
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Format != "json" {
		t.Errorf("Format = %q, want json", result.Format)
	}
}

func TestParseJSONString_SyntaxErrorLine(t *testing.T) {
	result := ParseJSONString("{\n  \"sources\": {\n  \"broken\"\n}")
	if result.IsValid() {
		t.Fatal("expected a parse error")
	}
	if result.Errors[0].Line < 2 {
		t.Errorf("error line = %d, want the offending line", result.Errors[0].Line)
	}
}

func TestParseFile_DetectsFormat(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "dash.yaml")
	if err := os.WriteFile(yamlPath, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "dash.json")
	if err := os.WriteFile(jsonPath, []byte(`{"sources": {}, "targets": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if result := ParseFile(yamlPath); result.Format != "yaml" || !result.IsValid() {
		t.Errorf("yaml file: format %q, errors %v", result.Format, result.Errors)
	}
	if result := ParseFile(jsonPath); result.Format != "json" || !result.IsValid() {
		t.Errorf("json file: format %q, errors %v", result.Format, result.Errors)
	}
}

func TestParseFile_Missing(t *testing.T) {
	result := ParseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if result.IsValid() {
		t.Fatal("expected an error for a missing file")
	}
	if result.Errors[0].Type != ErrorTypeIO {
		t.Errorf("error type = %q, want %q", result.Errors[0].Type, ErrorTypeIO)
	}
}

func TestValidateSpec(t *testing.T) {
	parsed := ParseYAMLString(minimalYAML)
	if !parsed.IsValid() {
		t.Fatalf("parse: %v", parsed.Errors)
	}
	validation := ValidateSpec(parsed.Data)
	if !validation.Valid {
		t.Fatalf("expected a valid spec, got %v", validation.Errors)
	}
}

func TestValidateSpec_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing targets", "sources:\n  s:\n    type: file\n    tables:\n      t: t.csv\n"},
		{"unknown source type", strings.Replace(minimalYAML, "type: file", "type: ftp", 1)},
		{"widget filter without field", `
sources:
  s:
    type: file
    tables:
      t: t.csv
    filters:
      species:
        type: widget
targets:
  - title: T
    source: s
    views:
      v:
        type: table
        table: t
`},
		{"view without table", strings.Replace(minimalYAML, "        table: readings\n", "", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseYAMLString(tt.doc)
			if !parsed.IsValid() {
				t.Fatalf("parse: %v", parsed.Errors)
			}
			validation := ValidateSpec(parsed.Data)
			if validation.Valid {
				t.Error("expected validation to fail")
			}
			if len(validation.Errors) == 0 {
				t.Error("expected validation errors")
			}
		})
	}
}

func TestConvertToSpec(t *testing.T) {
	parsed := ParseYAMLString(`
config:
  title: Fleet
  layout: tabs
sources:
  fleet:
    type: rest
    url: http://example.test/api
    timeout_ms: 5000
    filters:
      region:
        type: widget
        field: region
targets:
  - title: Overview
    source: fleet
    filters: [region]
    views:
      map:
        type: scatter
        table: positions
        selection_group: linked
        transforms:
          - type: head
            n: 10
        color: region
`)
	if !parsed.IsValid() {
		t.Fatalf("parse: %v", parsed.Errors)
	}

	spec, err := ConvertToSpec(parsed.Data)
	if err != nil {
		t.Fatalf("ConvertToSpec: %v", err)
	}

	if spec.Config.Title != "Fleet" || spec.Config.Layout != "tabs" {
		t.Errorf("config = %+v", spec.Config)
	}
	src, ok := spec.Sources["fleet"]
	if !ok {
		t.Fatal("missing source 'fleet'")
	}
	if src.Type != "rest" || src.URL != "http://example.test/api" {
		t.Errorf("source = %+v", src)
	}
	if src.Options["timeout_ms"] == nil {
		t.Error("unrecognized source keys should land in Options")
	}
	if src.Filters["region"].Label != "region" {
		t.Errorf("filter label = %q, want field name fallback", src.Filters["region"].Label)
	}

	if len(spec.Targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(spec.Targets))
	}
	target := spec.Targets[0]
	if target.Filters[0] != "region" {
		t.Errorf("target filters = %v", target.Filters)
	}
	view := target.Views["map"]
	if view.SelectionGroup != "linked" {
		t.Errorf("selection group = %q", view.SelectionGroup)
	}
	if len(view.Transforms) != 1 || view.Transforms[0].Type != "head" {
		t.Errorf("transforms = %+v", view.Transforms)
	}
	if view.Options["color"] != "region" {
		t.Error("unrecognized view keys should land in Options")
	}
}

func TestConvertToSpec_UnknownSourceReference(t *testing.T) {
	parsed := ParseYAMLString(strings.Replace(minimalYAML, "source: stations", "source: nowhere", 1))
	if !parsed.IsValid() {
		t.Fatalf("parse: %v", parsed.Errors)
	}
	if _, err := ConvertToSpec(parsed.Data); err == nil {
		t.Error("expected an error for an unknown source reference")
	}
}

func TestConvertToSpec_DefaultConfig(t *testing.T) {
	parsed := ParseYAMLString(minimalYAML)
	spec, err := ConvertToSpec(parsed.Data)
	if err != nil {
		t.Fatalf("ConvertToSpec: %v", err)
	}
	if spec.Config.Layout != "grid" || spec.Config.NCols != 3 {
		t.Errorf("defaults not applied: %+v", spec.Config)
	}
}

func TestLoadString_ExpandsVariables(t *testing.T) {
	doc := `
variables:
  data_dir: data
sources:
  stations:
    type: file
    tables:
      readings: "{{variables.data_dir}}/readings.csv"
      extra: "{{variables.missing | default: \"fallback\"}}/extra.csv"
targets:
  - title: Overview
    source: stations
    views:
      latest:
        type: table
        table: readings
`
	spec, err := LoadString(doc, "yaml")
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	src := spec.Sources["stations"]
	if got := src.Tables["readings"]; got != "data/readings.csv" {
		t.Errorf("readings = %q, want data/readings.csv", got)
	}
	if got := src.Tables["extra"]; got != "fallback/extra.csv" {
		t.Errorf("extra = %q, want fallback/extra.csv", got)
	}
}

func TestLoadFile_SetsRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dash.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	spec, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !filepath.IsAbs(spec.Root) {
		t.Errorf("root %q is not absolute", spec.Root)
	}
	if filepath.Base(spec.Root) != filepath.Base(dir) {
		t.Errorf("root = %q, want the spec directory", spec.Root)
	}
}

func TestLoadString_InvalidSpec(t *testing.T) {
	if _, err := LoadString("sources: {}\ntargets: []\n", "yaml"); err == nil {
		t.Error("expected an error for an empty sources block")
	}
}
