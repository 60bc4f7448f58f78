package planprint

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/callback"
	"github.com/alnah/go-planprint/internal/metrics"
)

// DefaultView is the planning view printed when a request names none.
const DefaultView = "/planner/index"

// EntryPointOrder selects the order shown by the planning view.
const EntryPointOrder = "order"

// ParamExpanded asks for every container to be expanded before capture.
const ParamExpanded = "expanded"

// RenderRequest describes one capture of a planning view.
type RenderRequest struct {
	View        string            // view path on the planning upstream (default DefaultView)
	EntryPoints map[string]string // bound on the forwarded request only
	Params      map[string]string // display toggles, passed through on the capture URL
	Expanded    bool
	TaskCount   int           // used when Layout is nil
	Layout      PlannerLayout // optional
}

// Validate checks that the request can be captured.
func (r RenderRequest) Validate() error {
	if r.View != "" && !strings.HasPrefix(r.View, "/") {
		return fmt.Errorf("%w: view %q must be an absolute path", ErrInvalidRequest, r.View)
	}
	if r.TaskCount < 0 {
		return fmt.Errorf("%w: negative task count %d", ErrInvalidRequest, r.TaskCount)
	}
	for k := range r.Params {
		if k == "" {
			return fmt.Errorf("%w: empty parameter name", ErrInvalidRequest)
		}
	}
	for k := range r.EntryPoints {
		if k == "" {
			return fmt.Errorf("%w: empty entry point name", ErrInvalidRequest)
		}
	}
	return nil
}

func (r RenderRequest) view() string {
	if r.View == "" {
		return DefaultView
	}
	return r.View
}

// ExpandedByDefault reports whether params ask for expanded containers.
func ExpandedByDefault(params map[string]string) bool {
	switch strings.ToLower(params[ParamExpanded]) {
	case "true", "1", ParamValueAll:
		return true
	}
	return false
}

// Result describes a finished capture.
type Result struct {
	JobID          string
	Path           string // where the caller is sent: web path or download URL
	ArtifactPath   string // file the renderer was asked to write
	State          string
	Duration       time.Duration
	Layout         Layout
	OverlayApplied bool
}

// ViewHandler returns the handler serving view with entryPoints bound for
// that request only. It backs every capture callback.
type ViewHandler func(view string, entryPoints map[string]string) http.Handler

// KillMode selects how a timed-out renderer is terminated.
type KillMode string

const (
	// KillProcessGroup kills only the capture's own process group.
	KillProcessGroup KillMode = "process-group"
	// KillByName kills every process running the renderer binary.
	KillByName KillMode = "name"
)

// Backend selects the renderer implementation.
type Backend string

const (
	BackendExec Backend = "exec"
	BackendRod  Backend = "rod"
)

// Renderer defaults.
const (
	DefaultRendererBinary = "wk2img"
	DefaultTimeout        = 30 * time.Second
	DefaultCaptureDelay   = 10 * time.Second
)

// Option configures a Printer.
type Option func(*Printer)

// printerConfig holds internal configuration for Printer.
type printerConfig struct {
	timeout        time.Duration
	delay          time.Duration
	webRoot        string
	baseStylesheet string
	overlayDir     string
	keepOverlays   bool
	computedHeight bool
	strict         bool
	baseURL        string
	poolSize       int
	binary         string
	killMode       KillMode
	backend        Backend
}

// WithTimeout sets the hard limit for one capture.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("planprint: WithTimeout duration must be positive")
	}
	return func(p *Printer) {
		p.cfg.timeout = d
	}
}

// WithCaptureDelay sets how long the renderer waits before capturing.
// Panics if d < 0.
func WithCaptureDelay(d time.Duration) Option {
	if d < 0 {
		panic("planprint: WithCaptureDelay duration must not be negative")
	}
	return func(p *Printer) {
		p.cfg.delay = d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Printer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWebRoot sets the directory captures and the base stylesheet live in.
func WithWebRoot(dir string) Option {
	return func(p *Printer) {
		p.cfg.webRoot = dir
	}
}

// WithBaseStylesheet overrides <webroot>/planner/css/print.css.
func WithBaseStylesheet(path string) Option {
	return func(p *Printer) {
		p.cfg.baseStylesheet = path
	}
}

// WithOverlayDir sets where generated stylesheets are written.
func WithOverlayDir(dir string) Option {
	return func(p *Printer) {
		p.cfg.overlayDir = dir
	}
}

// WithKeepOverlays leaves generated stylesheets on disk after each capture.
func WithKeepOverlays() Option {
	return func(p *Printer) {
		p.cfg.keepOverlays = true
	}
}

// WithComputedHeight sizes the capture to the whole task list instead of
// DefaultCaptureHeight.
func WithComputedHeight() Option {
	return func(p *Printer) {
		p.cfg.computedHeight = true
	}
}

// WithStrictCapture fails a capture whose artifact is missing or empty.
func WithStrictCapture() Option {
	return func(p *Printer) {
		p.cfg.strict = true
	}
}

// WithBaseURL sets the scheme://host:port the renderer reaches callbacks
// on. Without it the address of the serving connection is used.
func WithBaseURL(u string) Option {
	return func(p *Printer) {
		p.cfg.baseURL = u
	}
}

// WithPoolSize bounds concurrent captures. Zero picks a size from
// GOMAXPROCS.
func WithPoolSize(n int) Option {
	return func(p *Printer) {
		p.cfg.poolSize = n
	}
}

// WithRendererBinary sets the external renderer executable.
func WithRendererBinary(path string) Option {
	return func(p *Printer) {
		p.cfg.binary = path
	}
}

// WithKillMode selects how timed-out renderers are terminated.
func WithKillMode(m KillMode) Option {
	return func(p *Printer) {
		p.cfg.killMode = m
	}
}

// WithBackend selects the renderer implementation.
func WithBackend(b Backend) Option {
	return func(p *Printer) {
		p.cfg.backend = b
	}
}

// WithRendererFactory replaces the backend with custom renderers.
func WithRendererFactory(f func() Renderer) Option {
	return func(p *Printer) {
		p.factory = f
	}
}

// WithRegistry shares a callback registry, typically one mounted on the
// serving router.
func WithRegistry(r *callback.Registry) Option {
	return func(p *Printer) {
		p.registry = r
	}
}

// WithArtifactStore replaces the local web root store.
func WithArtifactStore(s artifact.Store) Option {
	return func(p *Printer) {
		p.store = s
	}
}

// WithViewHandler sets the handler backing capture callbacks.
func WithViewHandler(h ViewHandler) Option {
	return func(p *Printer) {
		p.view = h
	}
}

// WithMetrics records captures on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Printer) {
		p.metrics = m
	}
}
