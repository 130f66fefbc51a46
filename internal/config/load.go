package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yougis/lumen/internal/template"
)

// LoadFile reads, expands, parses, validates and converts a dashboard
// specification file. The returned spec carries the absolute directory of
// the file as its root, against which relative table paths and cache
// directories are resolved.
//
// Expansion happens on the raw document text, in two passes: the document is
// first parsed as-is to collect the `variables` block, then re-parsed after
// {{...}} substitution. This mirrors how the variables block itself must not
// contain template references.
func LoadFile(path string) (*DashboardSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading specification: %w", err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving specification root: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	spec, err := LoadString(string(content), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	spec.Root = root
	return spec, nil
}

// LoadString expands, parses, validates and converts a specification
// document given as a string. format is "yaml" or "json".
func LoadString(content, format string) (*DashboardSpec, error) {
	variables := map[string]interface{}{}
	if template.HasVariables(content) {
		// First pass without expansion, only to collect declared variables.
		if first := parseString(content, format); first.IsValid() {
			if vars, ok := first.Data["variables"].(map[string]interface{}); ok {
				variables = vars
			}
		}
		content = template.Expand(content, variables)
	}

	result := parseString(content, format)
	if !result.IsValid() {
		return nil, fmt.Errorf("parsing specification: %w", result.Errors[0])
	}

	validation := ValidateSpec(result.Data)
	if !validation.Valid {
		return nil, fmt.Errorf("invalid specification: %w", validation.Errors[0])
	}

	spec, err := ConvertToSpec(result.Data)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseString dispatches to the format-specific parser.
func parseString(content, format string) *ParseResult {
	if format == "json" {
		return ParseJSONString(content)
	}
	return ParseYAMLString(content)
}
