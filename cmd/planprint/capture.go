package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/assets"
	"github.com/alnah/go-planprint/internal/config"
	"github.com/alnah/go-planprint/internal/fileutil"
)

// defaultCaptureWidth is the viewport width of one-shot captures.
const defaultCaptureWidth = 1280

// newRenderer builds the renderer selected by cfg.
var newRenderer = func(cfg config.RendererConfig, logger *zap.Logger) planprint.Renderer {
	if planprint.Backend(cfg.Backend) == planprint.BackendRod {
		return planprint.NewRodRenderer(cfg.Timeout, logger)
	}
	return planprint.NewExecRenderer(cfg.Binary, cfg.Timeout, planprint.KillMode(cfg.KillMode), logger)
}

// runCapture executes the capture command: one renderer run against a URL
// that needs no callback, with the same overlay and supervision as served
// captures.
func runCapture(ctx context.Context, args []string, env *Environment) error {
	f, err := parseCaptureFlags(args, env)
	if err != nil {
		return err
	}
	if !fileutil.IsURL(f.url) {
		return fmt.Errorf("%w: %q (want http:// or https://)", ErrInvalidURL, f.url)
	}
	if f.width < 0 || f.height < 0 || f.taskCount < 0 {
		return fmt.Errorf("%w: width, height and task count must not be negative", planprint.ErrInvalidRequest)
	}

	cfg, err := resolveConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyCaptureFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, &f.common)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	basePath := cfg.Renderer.BaseStylesheet
	if basePath == "" {
		dir, err := os.MkdirTemp("", "planprint-capture-")
		if err != nil {
			return fmt.Errorf("%w: %v", assets.ErrAssetWrite, err)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		if basePath, err = assets.EnsureBaseStylesheet(dir, nil); err != nil {
			return err
		}
	}

	layout := planprint.ComputeLayout(planprint.RenderRequest{TaskCount: f.taskCount}, f.taskCount > 0)
	if f.height > 0 {
		layout.Height = f.height
	}

	overlay := planprint.NewStylesheetGenerator(cfg.Renderer.OverlayDir, cfg.Renderer.KeepOverlays, logger).
		Generate(basePath, planprint.OverlayParams{
			Width:          f.width,
			Params:         f.params,
			TaskCount:      layout.TaskCount,
			MinColumnWidth: layout.MinColumnWidth,
		})
	defer func() {
		if err := overlay.Release(); err != nil {
			logger.Warn("could not remove print stylesheet", zap.Error(err))
		}
	}()

	output, err := filepath.Abs(f.output)
	if err != nil {
		return fmt.Errorf("%w: %v", planprint.ErrArtifactAllocate, err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return fmt.Errorf("%w: %v", planprint.ErrArtifactAllocate, err)
	}

	r := newRenderer(cfg.Renderer, logger)
	defer func() { _ = r.Close() }()

	spec := planprint.CaptureSpec{
		JobID:   uuid.NewString(),
		URL:     f.url,
		Width:   f.width,
		Height:  layout.Height,
		Delay:   cfg.Renderer.Delay,
		CSSPath: overlay.Path,
		Output:  output,
	}
	logger.Debug("capture args", zap.Strings("args", planprint.CaptureArgs(spec)))

	report, err := r.Capture(ctx, spec)
	if err != nil {
		return withHint(err, hintFor(err, cfg))
	}
	if !fileutil.NonEmptyFile(output) {
		return fmt.Errorf("%w: %s", planprint.ErrCaptureMissing, output)
	}

	fmt.Fprintf(env.Stdout, "wrote %s (%s, %s)\n", output, report.State, report.Duration.Round(time.Millisecond))
	return nil
}
