package planprint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/callback"
	"github.com/alnah/go-planprint/internal/metrics"
	"github.com/alnah/go-planprint/internal/reqctx"
)

// Printer captures planning views to images. Create with NewPrinter, call
// Print from request handlers and Close on shutdown.
type Printer struct {
	cfg          printerConfig
	logger       *zap.Logger
	registry     *callback.Registry
	ownsRegistry bool
	store        artifact.Store
	styles       *StylesheetGenerator
	factory      func() Renderer
	pool         *RendererPool
	metrics      *metrics.Metrics
	view         ViewHandler
	baseURL      *url.URL
}

// NewPrinter creates a Printer. By default captures run the wk2img binary
// with a 30s timeout and 10s capture delay, artifacts land in
// <tmp>/planprint/print and callbacks are served by a private registry
// (mount it with Registry).
func NewPrinter(opts ...Option) (*Printer, error) {
	p := &Printer{
		cfg: printerConfig{
			timeout:  DefaultTimeout,
			delay:    DefaultCaptureDelay,
			webRoot:  filepath.Join(os.TempDir(), "planprint"),
			binary:   DefaultRendererBinary,
			killMode: KillProcessGroup,
			backend:  BackendExec,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.cfg.validate(); err != nil {
		return nil, err
	}

	if p.cfg.baseURL != "" {
		u, err := url.Parse(p.cfg.baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: base URL %q must be scheme://host[:port]", ErrInvalidConfig, p.cfg.baseURL)
		}
		p.baseURL = u
	}

	if p.cfg.baseStylesheet == "" {
		p.cfg.baseStylesheet = filepath.Join(p.cfg.webRoot, "planner", "css", "print.css")
	}

	if p.store == nil {
		store, err := artifact.NewLocalStore(p.cfg.webRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		p.store = store
	}

	if p.registry == nil {
		regOpts := []callback.Option{callback.WithLogger(p.logger)}
		if p.metrics != nil {
			regOpts = append(regOpts, callback.WithObserver(p.metrics))
		}
		p.registry = callback.NewRegistry(callback.DefaultPrefix, regOpts...)
		p.ownsRegistry = true
	}

	if p.view == nil {
		p.view = p.unconfiguredView
	}

	if p.factory == nil {
		p.factory = p.defaultFactory()
	}

	p.styles = NewStylesheetGenerator(p.cfg.overlayDir, p.cfg.keepOverlays, p.logger)
	p.pool = NewRendererPool(ResolvePoolSize(p.cfg.poolSize), p.factory)
	return p, nil
}

func (c printerConfig) validate() error {
	if c.timeout <= c.delay {
		return fmt.Errorf("%w: timeout %v must exceed capture delay %v", ErrInvalidConfig, c.timeout, c.delay)
	}
	if c.webRoot == "" {
		return fmt.Errorf("%w: empty web root", ErrInvalidConfig)
	}
	switch c.killMode {
	case KillProcessGroup, KillByName:
	default:
		return fmt.Errorf("%w: unknown kill mode %q", ErrInvalidConfig, c.killMode)
	}
	switch c.backend {
	case BackendExec:
		if c.binary == "" {
			return fmt.Errorf("%w: empty renderer binary", ErrInvalidConfig)
		}
	case BackendRod:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.backend)
	}
	if c.poolSize < 0 {
		return fmt.Errorf("%w: negative pool size %d", ErrInvalidConfig, c.poolSize)
	}
	return nil
}

func (p *Printer) defaultFactory() func() Renderer {
	if p.cfg.backend == BackendRod {
		return func() Renderer { return NewRodRenderer(p.cfg.timeout, p.logger) }
	}
	return func() Renderer {
		return NewExecRenderer(p.cfg.binary, p.cfg.timeout, p.cfg.killMode, p.logger)
	}
}

// unconfiguredView answers callbacks when no planning view is wired.
func (p *Printer) unconfiguredView(view string, _ map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p.logger.Error("callback served without a planning view", zap.String("view", view))
		http.Error(w, "planning view not configured", http.StatusServiceUnavailable)
	})
}

// Registry returns the callback registry captures register on.
func (p *Printer) Registry() *callback.Registry { return p.registry }

// Print captures the view described by req. It blocks until the renderer
// has exited or been killed.
//
// A non-nil Result is returned as soon as a capture was attempted, together
// with any capture error, so callers can still redirect to Result.Path.
// A failed capture that left a file behind is still published; without a
// file Result.Path stays the local /print/ path.
// Validation, host resolution and allocation failures return a nil Result.
// With strict capture a missing artifact yields ErrCaptureMissing.
func (p *Printer) Print(ctx context.Context, req RenderRequest) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := p.logger.With(zap.String("job", jobID))
	layout := ComputeLayout(req, p.cfg.computedHeight)

	art, err := p.store.Allocate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactAllocate, err)
	}

	base, err := p.resolveBase(ctx)
	if err != nil {
		log.Error("could not resolve callback host", zap.Error(err))
		return nil, err
	}

	waitStart := time.Now()
	r, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	p.metrics.PoolWait(time.Since(waitStart))

	// The overlay and the callback only exist once a renderer is ready, so
	// time spent queued for the pool never eats into the callback TTL.
	overlay := p.styles.Generate(p.cfg.baseStylesheet, overlayParamsFor(req, layout))
	if !overlay.Applied() {
		p.metrics.OverlayFallback()
	}
	defer func() {
		if err := overlay.Release(); err != nil {
			log.Warn("could not remove print stylesheet", zap.Error(err))
		}
	}()

	handler := reqctx.Capture(ctx).Wrap(p.view(req.view(), req.EntryPoints))
	cbPath, cancel := p.registry.Register(handler)
	defer cancel()

	spec := CaptureSpec{
		JobID:   jobID,
		URL:     captureURL(base, cbPath, req.Params),
		Width:   layout.TotalWidth,
		Height:  layout.Height,
		Delay:   p.cfg.delay,
		CSSPath: overlay.Path,
		Output:  art.Path,
	}
	log.Info("print requested",
		zap.String("view", req.view()),
		zap.Strings("args", CaptureArgs(spec)))

	p.metrics.CaptureStarted()
	report, capErr := r.Capture(ctx, spec)
	p.pool.Release(r)
	p.metrics.CaptureFinished(r.Backend(), report.State, report.Duration)

	result = &Result{
		JobID:          jobID,
		Path:           art.URLPath,
		ArtifactPath:   art.Path,
		State:          report.State,
		Duration:       report.Duration,
		Layout:         layout,
		OverlayApplied: overlay.Applied(),
	}

	if capErr != nil {
		log.Error("capture failed", zap.String("state", report.State), zap.Error(capErr))
		if !artifact.Exists(art) {
			if p.cfg.strict {
				return result, errors.Join(ErrCaptureMissing, capErr)
			}
			return result, capErr
		}
		// A killed renderer may still have written a partial capture; publish
		// it so Result.Path points where the store serves artifacts.
		if published, err := p.store.Publish(ctx, art); err != nil {
			log.Warn("could not publish partial capture", zap.Error(err))
		} else {
			result.Path = published
		}
		return result, capErr
	}

	if p.cfg.strict && !artifact.Exists(art) {
		log.Error("renderer exited without writing the capture", zap.String("output", art.Path))
		return result, fmt.Errorf("%w: %s", ErrCaptureMissing, art.Path)
	}

	published, err := p.store.Publish(ctx, art)
	if err != nil {
		log.Error("could not publish capture", zap.Error(err))
		return result, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	result.Path = published
	log.Info("print finished", zap.String("path", published), zap.Duration("elapsed", report.Duration))
	return result, nil
}

// PrintOrder captures the default view showing orderID.
func (p *Printer) PrintOrder(ctx context.Context, orderID string, params map[string]string, layout PlannerLayout) (*Result, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: empty order id", ErrInvalidRequest)
	}
	return p.Print(ctx, RenderRequest{
		View:        DefaultView,
		EntryPoints: map[string]string{EntryPointOrder: orderID},
		Params:      params,
		Expanded:    ExpandedByDefault(params),
		Layout:      layout,
	})
}

// Close releases renderer resources and, when the Printer created it, the
// callback registry.
func (p *Printer) Close() error {
	err := p.pool.Close()
	if p.ownsRegistry {
		p.registry.Close()
	}
	return err
}

// resolveBase returns the scheme://host:port the renderer reaches this
// process on: the configured base URL, else the local address of the
// connection serving ctx.
func (p *Printer) resolveBase(ctx context.Context) (*url.URL, error) {
	if p.baseURL != nil {
		u := *p.baseURL
		return &u, nil
	}

	addr, ok := ctx.Value(http.LocalAddrContextKey).(net.Addr)
	if !ok || addr == nil {
		return nil, fmt.Errorf("%w: no base URL configured and no serving connection in context", ErrHostResolution)
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostResolution, err)
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		return nil, fmt.Errorf("%w: unusable local address %q", ErrHostResolution, addr.String())
	}
	return &url.URL{Scheme: "http", Host: net.JoinHostPort(host, port)}, nil
}

// captureURL joins base and the callback path and appends params sorted
// by key.
func captureURL(base *url.URL, callbackPath string, params map[string]string) string {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + callbackPath
	u.RawPath = ""
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	} else {
		u.RawQuery = ""
	}
	return u.String()
}
