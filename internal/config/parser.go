package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a specification file, auto-detecting the format from the
// file extension (.json, .yaml, .yml). Unknown extensions are parsed as YAML,
// which is a superset of JSON.
func ParseFile(filepath string) *ParseResult {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return ParseJSONFile(filepath)
	default:
		return ParseYAMLFile(filepath)
	}
}

// ParseJSONFile parses a JSON specification file from the given path.
func ParseJSONFile(filepath string) *ParseResult {
	result := &ParseResult{FilePath: filepath, Format: "json"}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseJSONString(string(content))
	result.Data = parsed.Data
	result.Errors = parsed.Errors
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

// ParseJSONString parses JSON content from a string.
func ParseJSONString(content string) *ParseResult {
	result := &ParseResult{Format: "json"}

	content = strings.TrimSpace(content)
	if content == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected JSON object",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, jsonParseError(err, content))
		return result
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid specification: expected JSON object, got %T", data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = dataMap
	return result
}

// ParseYAMLFile parses a YAML specification file from the given path.
func ParseYAMLFile(filepath string) *ParseResult {
	result := &ParseResult{FilePath: filepath, Format: "yaml"}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseYAMLString(string(content))
	result.Data = parsed.Data
	result.Errors = parsed.Errors
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

// ParseYAMLString parses YAML content from a string.
func ParseYAMLString(content string) *ParseResult {
	result := &ParseResult{Format: "yaml"}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected YAML mapping",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, yamlParseError(err))
		return result
	}

	normalized := normalizeYAML(data)
	dataMap, ok := normalized.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid specification: expected YAML mapping, got %T", data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = dataMap
	return result
}

// yamlLineRegex extracts a line number from yaml.v3 error strings, which have
// the form "yaml: line N: ...".
var yamlLineRegex = regexp.MustCompile(`line (\d+):`)

// yamlParseError extracts location information from a YAML unmarshaling error.
func yamlParseError(err error) ParseError {
	parseErr := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
	if m := yamlLineRegex.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			parseErr.Line = line
		}
	}
	return parseErr
}

// jsonParseError extracts location information from a JSON unmarshaling error.
func jsonParseError(err error, content string) ParseError {
	parseErr := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Line = 1 + strings.Count(content[:syntaxErr.Offset], "\n")
	}
	return parseErr
}

// normalizeYAML converts yaml.v3's map[string]interface{} values recursively
// so that nested structures match what encoding/json would produce. yaml.v3
// already decodes mappings with string keys, but nested interface keys can
// appear for quoted numeric keys.
func normalizeYAML(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		for k, val := range tv {
			tv[k] = normalizeYAML(val)
		}
		return tv
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i, val := range tv {
			tv[i] = normalizeYAML(val)
		}
		return tv
	default:
		return v
	}
}
