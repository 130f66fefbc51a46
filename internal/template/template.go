// Package template provides variable expansion for dashboard specification
// documents. It supports substitution using {{env.NAME}} and
// {{variables.name}} syntax with optional default values, applied to the raw
// document text before parsing.
package template

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/yougis/lumen/internal/logger"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
)

// templateVarRegex matches template variables like {{env.HOME}} or
// {{variables.region | default: "eu"}}.
// Group 1: variable path, group 3: the default value (may be empty).
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]+?)(\s*\|\s*default:\s*"([^"]*)")?\s*\}\}`)

// Variable represents a parsed template variable.
type Variable struct {
	// FullMatch is the full matched string including {{ }}
	FullMatch string
	// Path is the variable path (e.g., "env.HOME", "variables.region")
	Path string
	// DefaultValue is the default if specified
	DefaultValue string
	// HasDefault reports whether a default value was specified
	HasDefault bool
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// ParseVariables extracts all template variables from a template string.
func ParseVariables(s string) []Variable {
	matches := templateVarRegex.FindAllStringSubmatch(s, -1)
	vars := make([]Variable, 0, len(matches))
	for _, m := range matches {
		vars = append(vars, Variable{
			FullMatch:    m[0],
			Path:         strings.TrimSpace(m[1]),
			DefaultValue: m[3],
			HasDefault:   m[2] != "",
		})
	}
	return vars
}

// Expand substitutes template variables in a specification document.
// The "env" namespace resolves against process environment variables; the
// "variables" namespace resolves against the supplied map. Unresolvable
// references without a default are left in place and logged, so that a
// later schema validation reports them in context.
func Expand(content string, variables map[string]interface{}) string {
	if !HasVariables(content) {
		return content
	}
	return templateVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		parsed := ParseVariables(match)
		if len(parsed) == 0 {
			return match
		}
		v := parsed[0]
		value, ok := resolve(v.Path, variables)
		if !ok {
			if v.HasDefault {
				return v.DefaultValue
			}
			logger.Warn("unresolved template variable",
				slog.String("path", v.Path),
			)
			return match
		}
		return value
	})
}

// resolve looks up a dotted variable path in its namespace.
func resolve(path string, variables map[string]interface{}) (string, bool) {
	namespace, name, found := strings.Cut(path, ".")
	if !found {
		return "", false
	}
	switch namespace {
	case "env":
		value, ok := os.LookupEnv(name)
		return value, ok
	case "variables":
		value, ok := variables[name]
		if !ok || value == nil {
			return "", false
		}
		return fmt.Sprintf("%v", value), true
	default:
		return "", false
	}
}
