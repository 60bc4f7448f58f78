package fileutil_test

// Notes:
// - CopyWithSuffix write and close failures are not exercised; triggering
//   them needs a full disk. Removal on failure is covered through the
//   unreadable source and bad extension paths.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-planprint/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "css", extension: "css"},
		{name: "png", extension: "png"},
		{name: "empty", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "forward slash", extension: "../etc/passwd", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash", extension: "..\\windows", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte", extension: "css\x00exe", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCopyWithSuffix - Base copy plus appended rules
// ---------------------------------------------------------------------------

func TestCopyWithSuffix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "base.css")
	if err := os.WriteFile(src, []byte("a{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	path, err := fileutil.CopyWithSuffix(dir, "print", "css", src, []byte("b{}\n"))
	if err != nil {
		t.Fatalf("CopyWithSuffix() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(path), "print") || filepath.Ext(path) != ".css" {
		t.Errorf("path = %q, want print*.css", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a{}\nb{}\n" {
		t.Errorf("content = %q, want %q", got, "a{}\nb{}\n")
	}
}

func TestCopyWithSuffix_UnreadableSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := fileutil.CopyWithSuffix(dir, "print", "css", filepath.Join(dir, "missing.css"), nil)
	if !errors.Is(err, fileutil.ErrSourceUnreadable) {
		t.Fatalf("error = %v, want ErrSourceUnreadable", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("left %d files behind", len(entries))
	}
}

func TestCopyWithSuffix_InvalidExtension(t *testing.T) {
	t.Parallel()

	_, err := fileutil.CopyWithSuffix(t.TempDir(), "print", "../css", "whatever", nil)
	if !errors.Is(err, fileutil.ErrExtensionPathTraversal) {
		t.Errorf("error = %v, want ErrExtensionPathTraversal", err)
	}
}

func TestCopyWithSuffix_MissingDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "base.css")
	if err := os.WriteFile(src, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := fileutil.CopyWithSuffix(filepath.Join(dir, "nope"), "print", "css", src, nil)
	if err == nil {
		t.Fatal("expected error for missing temp dir")
	}
	if errors.Is(err, fileutil.ErrSourceUnreadable) {
		t.Errorf("error = %v, should not be ErrSourceUnreadable", err)
	}
}

// ---------------------------------------------------------------------------
// TestFileExists / TestNonEmptyFile
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", file, true},
		{"directory", dir, false},
		{"missing", filepath.Join(dir, "b.png"), false},
	}
	for _, tt := range tests {
		if got := fileutil.FileExists(tt.path); got != tt.want {
			t.Errorf("%s: FileExists() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNonEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	full := filepath.Join(dir, "full.png")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte{0x89, 'P', 'N', 'G'}, 0o600); err != nil {
		t.Fatal(err)
	}

	if fileutil.NonEmptyFile(empty) {
		t.Error("NonEmptyFile(empty) = true")
	}
	if !fileutil.NonEmptyFile(full) {
		t.Error("NonEmptyFile(full) = false")
	}
	if fileutil.NonEmptyFile(dir) {
		t.Error("NonEmptyFile(dir) = true")
	}
}

// ---------------------------------------------------------------------------
// TestWithin / TestEnsureDir / TestIsURL
// ---------------------------------------------------------------------------

func TestWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root, target string
		want         bool
	}{
		{"/srv/web", "/srv/web/print/a.png", true},
		{"/srv/web", "/srv/web", true},
		{"/srv/web", "/srv/web/../etc/passwd", false},
		{"/srv/web", "/srv/website/a.png", false},
		{"/srv/web", "/srv/web/..data/a.png", true},
	}
	for _, tt := range tests {
		if got := fileutil.Within(tt.root, tt.target); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.root, tt.target, got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b", "print")
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Errorf("second EnsureDir() error = %v", err)
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]bool{
		"http://planner:8080":  true,
		"https://planner":      true,
		"planner:8080":         false,
		"/planner/index":       false,
		"ftp://planner/a.html": false,
	} {
		if got := fileutil.IsURL(s); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", s, got, want)
		}
	}
}
