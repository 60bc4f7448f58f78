package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-planprint/internal/fileutil"
)

// BaseStyleName is the style overlays are generated from.
const BaseStyleName = "print"

// BaseStylesheetPath is where the planning view serves its print rules,
// relative to the web root.
var BaseStylesheetPath = filepath.Join("planner", "css", "print.css")

// LoadStyle loads a built-in CSS style by name.
func LoadStyle(name string) (string, error) {
	return NewEmbeddedLoader().LoadStyle(name)
}

// EnsureBaseStylesheet installs the base print style under webRoot unless a
// file is already there, and returns its path. An existing file is never
// overwritten so deployments keep their own rules.
func EnsureBaseStylesheet(webRoot string, loader StyleLoader) (string, error) {
	path := filepath.Join(webRoot, BaseStylesheetPath)
	if fileutil.FileExists(path) {
		return path, nil
	}
	if loader == nil {
		loader = NewEmbeddedLoader()
	}

	css, err := loader.LoadStyle(BaseStyleName)
	if err != nil {
		return "", err
	}
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetWrite, err)
	}
	if err := os.WriteFile(path, []byte(css), 0o644); err != nil { // #nosec G306 -- served to the renderer as a public stylesheet
		return "", fmt.Errorf("%w: %v", ErrAssetWrite, err)
	}
	return path, nil
}
