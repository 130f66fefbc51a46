package httpconfig

import (
	"fmt"
)

// FromOptions extracts the HTTP settings from a source's free-form options
// map and validates them. Absent keys leave defaults in place; a nil options
// map yields a valid default configuration.
//
// Recognized keys:
//
//	headers:    map of header name to value
//	timeout_ms: request timeout in milliseconds
//	auth:       {type: basic|bearer, username, password, token}
func FromOptions(options map[string]any) (*Config, error) {
	cfg := &Config{}
	if options == nil {
		return cfg, nil
	}

	if raw, ok := options["headers"]; ok {
		headers, err := extractStringMap(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'headers': %w", err)
		}
		cfg.Headers = headers
	}

	if raw, ok := options["timeout_ms"]; ok {
		timeout, err := extractInt(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'timeout_ms': %w", err)
		}
		cfg.TimeoutMs = timeout
	}

	if raw, ok := options["auth"]; ok {
		auth, err := extractAuth(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'auth': %w", err)
		}
		cfg.Auth = auth
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractStringMap converts a decoded map value to string pairs.
func extractStringMap(raw any) (map[string]string, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a map, got %T", raw)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, isStr := v.(string)
		if !isStr {
			return nil, fmt.Errorf("value for %q must be a string, got %T", k, v)
		}
		out[k] = s
	}
	return out, nil
}

// extractInt converts a decoded numeric value. YAML decodes integers as int,
// JSON as float64.
func extractInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", raw)
}

// extractAuth converts a decoded auth block.
func extractAuth(raw any) (*AuthConfig, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a map, got %T", raw)
	}
	auth := &AuthConfig{}
	if v, isStr := m["type"].(string); isStr {
		auth.Type = v
	}
	if v, isStr := m["username"].(string); isStr {
		auth.Username = v
	}
	if v, isStr := m["password"].(string); isStr {
		auth.Password = v
	}
	if v, isStr := m["token"].(string); isStr {
		auth.Token = v
	}
	return auth, nil
}
