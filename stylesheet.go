package planprint

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/fileutil"
)

// Overlay is a stylesheet handed to the renderer. When generation succeeded
// it is a temp file owned by the caller, removed by Release.
type Overlay struct {
	Path    string
	applied bool
	keep    bool
	once    sync.Once
}

// Applied reports whether the print rules were written. When false, Path is
// the unmodified base stylesheet.
func (o *Overlay) Applied() bool { return o.applied }

// Release removes the generated file. It never touches the base stylesheet
// and is safe to call more than once.
func (o *Overlay) Release() error {
	if o == nil || !o.applied || o.keep {
		return nil
	}
	var err error
	o.once.Do(func() {
		if rmErr := os.Remove(o.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = fmt.Errorf("removing overlay %s: %w", o.Path, rmErr)
		}
	})
	return err
}

// StylesheetGenerator writes per-capture overlays next to the base stylesheet.
type StylesheetGenerator struct {
	dir    string
	keep   bool
	logger *zap.Logger
}

// NewStylesheetGenerator creates a generator writing into dir (empty means
// the platform temp dir). With keep set, Release leaves files on disk.
func NewStylesheetGenerator(dir string, keep bool, logger *zap.Logger) *StylesheetGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StylesheetGenerator{dir: dir, keep: keep, logger: logger}
}

// Generate copies basePath into a new print*.css file and appends the print
// rules for p. Failures are logged and recovered: the returned overlay then
// points at basePath with Applied() false.
func (g *StylesheetGenerator) Generate(basePath string, p OverlayParams) *Overlay {
	path, err := fileutil.CopyWithSuffix(g.dir, "print", "css", basePath, []byte(buildOverlayCSS(p)))
	if err != nil {
		if errors.Is(err, fileutil.ErrSourceUnreadable) {
			err = fmt.Errorf("%w: %v", ErrStylesheetUnreadable, err)
		}
		g.logger.Error("could not generate print stylesheet, using base stylesheet",
			zap.String("base", basePath), zap.Error(err))
		return &Overlay{Path: basePath}
	}
	g.logger.Debug("generated print stylesheet", zap.String("path", path))
	return &Overlay{Path: path, applied: true, keep: g.keep}
}

// GenerateOverlay is Generate on a generator using the platform temp dir.
func GenerateOverlay(basePath string, p OverlayParams) *Overlay {
	return NewStylesheetGenerator("", false, nil).Generate(basePath, p)
}
