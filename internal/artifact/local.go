package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/alnah/go-planprint/internal/fileutil"
)

// Sentinel errors for artifact operations.
var (
	ErrInvalidRoot = errors.New("invalid artifact root")
	ErrNotFound    = errors.New("artifact not found")
	ErrUpload      = errors.New("artifact upload failed")
	ErrInvalidS3   = errors.New("invalid S3 configuration")
)

// DefaultDir is the web root subdirectory artifacts are written to.
const DefaultDir = "print"

// Extension of every capture.
const Extension = "png"

// Artifact is one allocated capture destination.
type Artifact struct {
	ID      string
	Path    string // absolute filesystem path handed to the renderer
	URLPath string // path under the web root, e.g. /print/<id>.png
}

// Store allocates and publishes artifacts.
type Store interface {
	// Allocate reserves a fresh, unique destination.
	Allocate() (Artifact, error)
	// Publish makes a finished artifact reachable and returns where.
	Publish(ctx context.Context, a Artifact) (string, error)
}

// Compile-time interface checks.
var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*S3Store)(nil)
)

// LocalStore keeps artifacts under a web root directory.
type LocalStore struct {
	root string
	dir  string
}

// NewLocalStore creates a store rooted at root. The print directory is
// created on first allocation.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	return &LocalStore{root: abs, dir: DefaultDir}, nil
}

// Root returns the absolute web root.
func (s *LocalStore) Root() string { return s.root }

// Dir returns the absolute directory artifacts are written to.
func (s *LocalStore) Dir() string { return filepath.Join(s.root, s.dir) }

// Allocate returns a new artifact named after a random UUID.
func (s *LocalStore) Allocate() (Artifact, error) {
	if err := fileutil.EnsureDir(s.Dir()); err != nil {
		return Artifact{}, err
	}
	id := uuid.NewString()
	name := id + "." + Extension
	return Artifact{
		ID:      id,
		Path:    filepath.Join(s.Dir(), name),
		URLPath: path.Join("/", s.dir, name),
	}, nil
}

// Publish returns the artifact's path under the web root. The file is not
// checked; callers wanting that use Exists first.
func (s *LocalStore) Publish(_ context.Context, a Artifact) (string, error) {
	return a.URLPath, nil
}

// Exists reports whether the renderer produced a non-empty file for a.
func Exists(a Artifact) bool {
	return fileutil.NonEmptyFile(a.Path)
}
