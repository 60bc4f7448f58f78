package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple name", "print", nil},
		{"hyphen and digits", "print-a3-2", nil},
		{"underscore mixed case", "Print_Landscape", nil},
		{"empty", "", ErrInvalidAssetName},
		{"too long", strings.Repeat("p", MaxAssetNameLength+1), ErrInvalidAssetName},
		{"forward slash", "planner/print", ErrInvalidAssetName},
		{"backslash", "planner\\print", ErrInvalidAssetName},
		{"parent traversal", "../print", ErrInvalidAssetName},
		{"extension", "print.css", ErrInvalidAssetName},
		{"hidden file", ".print", ErrInvalidAssetName},
		{"absolute path", "/etc/passwd", ErrInvalidAssetName},
		{"two dots", "..", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAssetName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAssetName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
