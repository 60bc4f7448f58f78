// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrSourceUnreadable       = errors.New("source file unreadable")
)

// CopyWithSuffix creates a temp file in dir named prefix*.extension holding
// the bytes of src followed by suffix. An empty dir means os.TempDir().
// On failure nothing is left on disk. Errors opening src wrap
// ErrSourceUnreadable.
func CopyWithSuffix(dir, prefix, extension, src string, suffix []byte) (path string, err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", err
	}

	in, err := os.Open(src) // #nosec G304 -- operator-configured stylesheet
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.CreateTemp(dir, prefix+"*."+extension)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path = out.Name()
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(path)
			path = ""
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	if _, err = out.Write(suffix); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err = out.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return path, nil
}

// ValidateExtension checks that the extension is safe for use in file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// NonEmptyFile returns true if path is a regular file with at least one byte.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// EnsureDir creates dir and its parents with mode 0o755.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- served by the web root
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// Within reports whether target lies inside root once both are cleaned.
func Within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
