package errors

import (
	"strings"
	"testing"
)

func TestValidateModuleID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "catalog", false},
		{"valid dotted", "Acme.Catalog", false},
		{"valid with dash", "acme-catalog", false},
		{"valid with underscore", "acme_catalog", false},
		{"single char", "a", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path traversal", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"leading dot", ".hidden", true},
		{"trailing dash", "foo-", true},
		{"space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModuleID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidModuleID) {
				t.Errorf("ValidateModuleID(%q) code = %v", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://feed.example.com/modules.json", false},
		{"http", "http://localhost:8090/modules.json", false},
		{"empty", "", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "feed.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
