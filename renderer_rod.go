package planprint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// defaultViewportWidth is used when the layout yields no width.
const defaultViewportWidth = 1280

// RodRenderer captures pages with headless Chrome via go-rod.
// Rod downloads Chromium on first run if none is found.
type RodRenderer struct {
	browser *rod.Browser
	timeout time.Duration
	logger  *zap.Logger
}

// NewRodRenderer creates a renderer that connects to the browser lazily.
func NewRodRenderer(timeout time.Duration, logger *zap.Logger) *RodRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodRenderer{timeout: timeout, logger: logger}
}

// ensureBrowser lazily connects to the browser.
func (r *RodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Capture loads spec.URL at the requested viewport, injects the overlay,
// waits the capture delay and writes a PNG screenshot to spec.Output.
func (r *RodRenderer) Capture(ctx context.Context, spec CaptureSpec) (report CaptureReport, err error) {
	start := time.Now()
	report = CaptureReport{State: "failed", ExitCode: -1}
	defer func() { report.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("%w: %v", ErrInterruptedWait, err)
	}

	css, err := os.ReadFile(spec.CSSPath)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrStylesheetUnreadable, err)
	}

	if err := r.ensureBrowser(); err != nil {
		return report, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("capturing page",
		zap.String("job", spec.JobID),
		zap.String("url", spec.URL),
		zap.Int("width", spec.Width),
		zap.Int("height", spec.Height))

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	width := spec.Width
	if width <= 0 {
		width = defaultViewportWidth
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            spec.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return report, r.classify(ctx, &report, ErrPageLoad, err)
	}

	if err := page.Navigate(spec.URL); err != nil {
		return report, r.classify(ctx, &report, ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return report, r.classify(ctx, &report, ErrPageLoad, err)
	}
	if err := page.AddStyleTag("", string(css)); err != nil {
		return report, r.classify(ctx, &report, ErrPageLoad, err)
	}

	timer := time.NewTimer(spec.Delay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return report, r.classify(ctx, &report, ErrPageLoad, ctx.Err())
	}

	img, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return report, r.classify(ctx, &report, ErrScreenshot, err)
	}
	if err := os.WriteFile(spec.Output, img, 0o644); err != nil { // #nosec G306 -- served from the web root
		return report, fmt.Errorf("%w: writing %s: %v", ErrScreenshot, spec.Output, err)
	}

	report.State = "completed"
	report.ExitCode = 0
	return report, nil
}

// classify maps a browser failure to the capture error it represents.
func (r *RodRenderer) classify(ctx context.Context, report *CaptureReport, sentinel, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		report.State = "timed_out"
		return fmt.Errorf("%w after %v: %v", ErrProcessTimeout, r.timeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", ErrInterruptedWait, err)
	default:
		return fmt.Errorf("%w: %v", sentinel, err)
	}
}

// Backend returns "rod".
func (r *RodRenderer) Backend() string { return string(BackendRod) }

// Close releases browser resources.
func (r *RodRenderer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}
