package assets

import (
	"fmt"
	"strings"
)

// MaxAssetNameLength bounds style names.
const MaxAssetNameLength = 64

// ValidateAssetName checks that a style name is safe to use as a filename:
// non-empty, short, and free of separators and dots.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if len(name) > MaxAssetNameLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrInvalidAssetName, len(name), MaxAssetNameLength)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
