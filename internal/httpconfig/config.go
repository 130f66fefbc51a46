// Package httpconfig provides shared HTTP settings for sources that fetch
// tables over HTTP. It centralizes header, timeout and authentication
// handling so the file and rest source types behave identically on the wire.
package httpconfig

import (
	"net/http"
	"time"
)

// Default configuration values
const (
	DefaultTimeoutMs = 30000
	DefaultTimeout   = 30 * time.Second
)

// Authentication types.
const (
	AuthTypeBasic  = "basic"
	AuthTypeBearer = "bearer"
)

// AuthConfig is the optional authentication configuration of a source.
type AuthConfig struct {
	// Type is the authentication scheme: "basic" or "bearer".
	Type string `json:"type"`

	// Username and Password for basic authentication.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Token for bearer authentication.
	Token string `json:"token,omitempty"`
}

// Config contains the HTTP settings of one source.
type Config struct {
	// Headers are custom HTTP headers included in every request.
	Headers map[string]string `json:"headers,omitempty"`

	// TimeoutMs is the request timeout in milliseconds (default 30000).
	TimeoutMs int `json:"timeout_ms,omitempty"`

	// Auth is the optional authentication configuration.
	Auth *AuthConfig `json:"auth,omitempty"`
}

// GetTimeout returns the timeout duration from TimeoutMs, or the default if
// not set.
func (c *Config) GetTimeout() time.Duration {
	if c != nil && c.TimeoutMs > 0 {
		return time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return DefaultTimeout
}

// NewClient builds an HTTP client honoring the configured timeout.
func (c *Config) NewClient() *http.Client {
	return &http.Client{Timeout: c.GetTimeout()}
}

// ApplyTo sets the configured headers and authentication on a request.
func (c *Config) ApplyTo(req *http.Request) {
	if c == nil {
		return
	}
	for name, value := range c.Headers {
		req.Header.Set(name, value)
	}
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case AuthTypeBasic:
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case AuthTypeBearer:
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	}
}
