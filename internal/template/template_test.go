package template

import "testing"

func TestHasVariables(t *testing.T) {
	if !HasVariables("path: {{env.HOME}}/data") {
		t.Error("expected template detection")
	}
	if HasVariables("path: /plain/data") {
		t.Error("expected no template detection")
	}
}

func TestParseVariables(t *testing.T) {
	vars := ParseVariables(`url: {{env.API_URL}} region: {{variables.region | default: "eu"}}`)
	if len(vars) != 2 {
		t.Fatalf("got %d variables, want 2", len(vars))
	}
	if vars[0].Path != "env.API_URL" || vars[0].HasDefault {
		t.Errorf("first = %+v", vars[0])
	}
	if vars[1].Path != "variables.region" || !vars[1].HasDefault || vars[1].DefaultValue != "eu" {
		t.Errorf("second = %+v", vars[1])
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("LUMEN_TEST_REGION", "pacific")

	tests := []struct {
		name      string
		content   string
		variables map[string]interface{}
		want      string
	}{
		{
			name:    "env variable",
			content: "region: {{env.LUMEN_TEST_REGION}}",
			want:    "region: pacific",
		},
		{
			name:      "declared variable",
			content:   "dir: {{variables.data_dir}}/files",
			variables: map[string]interface{}{"data_dir": "data"},
			want:      "dir: data/files",
		},
		{
			name:      "numeric variable is stringified",
			content:   "rate: {{variables.rate}}",
			variables: map[string]interface{}{"rate": 5000},
			want:      "rate: 5000",
		},
		{
			name:    "default applies when unresolved",
			content: `region: {{variables.region | default: "eu"}}`,
			want:    "region: eu",
		},
		{
			name:      "value wins over default",
			content:   `region: {{variables.region | default: "eu"}}`,
			variables: map[string]interface{}{"region": "atlantic"},
			want:      "region: atlantic",
		},
		{
			name:    "unresolved without default stays in place",
			content: "region: {{variables.region}}",
			want:    "region: {{variables.region}}",
		},
		{
			name:    "unknown namespace stays in place",
			content: "x: {{secrets.key}}",
			want:    "x: {{secrets.key}}",
		},
		{
			name:    "no templates",
			content: "plain text",
			want:    "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.content, tt.variables); got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
