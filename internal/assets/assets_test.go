package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubLoader struct {
	css string
	err error
}

func (s stubLoader) LoadStyle(string) (string, error) { return s.css, s.err }

func TestEnsureBaseStylesheet(t *testing.T) {
	t.Parallel()

	t.Run("installs embedded style", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path, err := EnsureBaseStylesheet(root, nil)
		if err != nil {
			t.Fatalf("EnsureBaseStylesheet() error = %v", err)
		}
		if path != filepath.Join(root, "planner", "css", "print.css") {
			t.Errorf("path = %q", path)
		}
		got, _ := os.ReadFile(path)
		want, _ := LoadStyle(BaseStyleName)
		if string(got) != want {
			t.Error("installed file differs from the embedded style")
		}
	})

	t.Run("keeps an existing file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path := filepath.Join(root, BaseStylesheetPath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("/* deployed */"), 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := EnsureBaseStylesheet(root, stubLoader{css: "/* new */"})
		if err != nil || got != path {
			t.Fatalf("EnsureBaseStylesheet() = %q, %v", got, err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "/* deployed */" {
			t.Errorf("existing file overwritten: %q", data)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		first, err := EnsureBaseStylesheet(root, stubLoader{css: "a{}"})
		if err != nil {
			t.Fatal(err)
		}
		second, err := EnsureBaseStylesheet(root, stubLoader{err: errors.New("must not be called")})
		if err != nil || second != first {
			t.Errorf("second call = %q, %v", second, err)
		}
	})

	t.Run("loader error", func(t *testing.T) {
		t.Parallel()

		_, err := EnsureBaseStylesheet(t.TempDir(), stubLoader{err: ErrStyleNotFound})
		if !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})

	t.Run("unwritable web root", func(t *testing.T) {
		t.Parallel()

		root := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(root, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := EnsureBaseStylesheet(root, stubLoader{css: "a{}"})
		if !errors.Is(err, ErrAssetWrite) {
			t.Errorf("error = %v, want ErrAssetWrite", err)
		}
	})
}
