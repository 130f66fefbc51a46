package httpconfig

import (
	"fmt"
)

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must not be negative")
	}
	return c.Auth.validate()
}

// validate checks the authentication configuration.
func (a *AuthConfig) validate() error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthTypeBasic:
		if a.Username == "" {
			return fmt.Errorf("basic auth requires 'username'")
		}
	case AuthTypeBearer:
		if a.Token == "" {
			return fmt.Errorf("bearer auth requires 'token'")
		}
	case "":
		return fmt.Errorf("auth requires 'type' (basic or bearer)")
	default:
		return fmt.Errorf("unknown auth type %q", a.Type)
	}
	return nil
}
