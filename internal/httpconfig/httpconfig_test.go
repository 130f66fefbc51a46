package httpconfig

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFromOptions(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		want    Config
		wantErr string
	}{
		{
			name:    "nil options give defaults",
			options: nil,
			want:    Config{},
		},
		{
			name: "headers and timeout",
			options: map[string]any{
				"headers":    map[string]any{"X-Api-Key": "secret"},
				"timeout_ms": 5000,
			},
			want: Config{
				Headers:   map[string]string{"X-Api-Key": "secret"},
				TimeoutMs: 5000,
			},
		},
		{
			name: "json decoded timeout is float64",
			options: map[string]any{
				"timeout_ms": float64(1500),
			},
			want: Config{TimeoutMs: 1500},
		},
		{
			name: "basic auth",
			options: map[string]any{
				"auth": map[string]any{
					"type":     "basic",
					"username": "alice",
					"password": "pw",
				},
			},
			want: Config{Auth: &AuthConfig{Type: "basic", Username: "alice", Password: "pw"}},
		},
		{
			name: "bearer auth",
			options: map[string]any{
				"auth": map[string]any{"type": "bearer", "token": "tok"},
			},
			want: Config{Auth: &AuthConfig{Type: "bearer", Token: "tok"}},
		},
		{
			name:    "non-string header value",
			options: map[string]any{"headers": map[string]any{"X-Limit": 10}},
			wantErr: "headers",
		},
		{
			name:    "non-numeric timeout",
			options: map[string]any{"timeout_ms": "fast"},
			wantErr: "timeout_ms",
		},
		{
			name:    "negative timeout",
			options: map[string]any{"timeout_ms": -1},
			wantErr: "negative",
		},
		{
			name:    "auth without type",
			options: map[string]any{"auth": map[string]any{"token": "tok"}},
			wantErr: "type",
		},
		{
			name:    "basic auth without username",
			options: map[string]any{"auth": map[string]any{"type": "basic"}},
			wantErr: "username",
		},
		{
			name:    "bearer auth without token",
			options: map[string]any{"auth": map[string]any{"type": "bearer"}},
			wantErr: "token",
		},
		{
			name:    "unknown auth type",
			options: map[string]any{"auth": map[string]any{"type": "digest"}},
			wantErr: "digest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromOptions(tt.options)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromOptions: %v", err)
			}
			if cfg.TimeoutMs != tt.want.TimeoutMs {
				t.Errorf("TimeoutMs = %d, want %d", cfg.TimeoutMs, tt.want.TimeoutMs)
			}
			if len(cfg.Headers) != len(tt.want.Headers) {
				t.Errorf("Headers = %v, want %v", cfg.Headers, tt.want.Headers)
			}
			for k, v := range tt.want.Headers {
				if cfg.Headers[k] != v {
					t.Errorf("Headers[%q] = %q, want %q", k, cfg.Headers[k], v)
				}
			}
			if (cfg.Auth == nil) != (tt.want.Auth == nil) {
				t.Fatalf("Auth = %v, want %v", cfg.Auth, tt.want.Auth)
			}
			if cfg.Auth != nil && *cfg.Auth != *tt.want.Auth {
				t.Errorf("Auth = %+v, want %+v", *cfg.Auth, *tt.want.Auth)
			}
		})
	}
}

func TestGetTimeout(t *testing.T) {
	if got := (&Config{}).GetTimeout(); got != DefaultTimeout {
		t.Errorf("default timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := (&Config{TimeoutMs: 250}).GetTimeout(); got != 250*time.Millisecond {
		t.Errorf("timeout = %v, want 250ms", got)
	}
}

func TestApplyTo(t *testing.T) {
	cfg := &Config{
		Headers: map[string]string{"X-Api-Key": "secret"},
		Auth:    &AuthConfig{Type: AuthTypeBearer, Token: "tok"},
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.test/data", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	cfg.ApplyTo(req)

	if got := req.Header.Get("X-Api-Key"); got != "secret" {
		t.Errorf("X-Api-Key = %q, want %q", got, "secret")
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
	}
}

func TestApplyTo_BasicAuth(t *testing.T) {
	cfg := &Config{Auth: &AuthConfig{Type: AuthTypeBasic, Username: "alice", Password: "pw"}}
	req, err := http.NewRequest(http.MethodGet, "http://example.test/data", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	cfg.ApplyTo(req)

	user, pass, ok := req.BasicAuth()
	if !ok || user != "alice" || pass != "pw" {
		t.Errorf("BasicAuth = %q/%q/%v, want alice/pw/true", user, pass, ok)
	}
}
