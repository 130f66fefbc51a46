package pathutil

import "testing"

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple relative", "scripts/enrich.js", false},
		{"absolute", "/opt/dashboards/enrich.js", false},
		{"current dir segment", "./scripts/enrich.js", false},
		{"empty", "", true},
		{"null byte", "scripts/\x00.js", true},
		{"bare traversal", "..", true},
		{"leading traversal", "../etc/passwd", true},
		{"embedded traversal", "scripts/../etc/passwd", true},
		{"dotdot in name is fine", "scripts/..enrich.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
