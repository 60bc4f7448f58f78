package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/assets"
	"github.com/alnah/go-planprint/internal/auth"
	"github.com/alnah/go-planprint/internal/callback"
	"github.com/alnah/go-planprint/internal/config"
	"github.com/alnah/go-planprint/internal/fileutil"
	"github.com/alnah/go-planprint/internal/forward"
	"github.com/alnah/go-planprint/internal/httpapi"
	"github.com/alnah/go-planprint/internal/metrics"
	"github.com/alnah/go-planprint/internal/reqctx"
)

// upstreamTokenGrace keeps tokens minted for the upstream valid past the
// capture timeout, for assets the renderer fetches late.
const upstreamTokenGrace = time.Minute

// runServe executes the serve command.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, err := parseServeFlags(args, env)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyServeFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if f.printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	logger, err := newLogger(cfg, &f.common)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrListen, cfg.Server.Addr, err)
	}
	return app.serve(ctx, ln)
}

// app is the wired server: printer, registry and router.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	printer  *planprint.Printer
	registry *callback.Registry
	handler  http.Handler
}

// newApp wires every component from cfg. extra printer options are applied
// last, so tests can substitute the renderer.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...planprint.Option) (*app, error) {
	m := metrics.New()
	registry := callback.NewRegistry(callback.DefaultPrefix,
		callback.WithTTL(cfg.Callback.TTL),
		callback.WithLogger(logger.Named("callback")),
		callback.WithObserver(m),
	)

	webRoot, err := filepath.Abs(cfg.Server.WebRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: server.webRoot: %v", config.ErrInvalidField, err)
	}
	if err := fileutil.EnsureDir(webRoot); err != nil {
		return nil, err
	}

	baseStylesheet := cfg.Renderer.BaseStylesheet
	if baseStylesheet == "" {
		resolver, err := assets.NewAssetResolver(cfg.Renderer.AssetsDir)
		if err != nil {
			return nil, err
		}
		baseStylesheet, err = assets.EnsureBaseStylesheet(webRoot, resolver)
		if err != nil {
			return nil, err
		}
	}

	var authSvc *auth.Service
	if cfg.Auth.Secret != "" {
		authSvc, err = auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("auth.secret is empty, the print API accepts anonymous requests")
	}

	local, err := artifact.NewLocalStore(webRoot)
	if err != nil {
		return nil, err
	}
	var store artifact.Store = local
	artifactDir := local.Dir()
	if cfg.Storage.S3.Enabled {
		s3Store, err := artifact.NewS3Store(ctx, local, cfg.Storage.S3.Artifact(),
			artifact.WithS3Logger(logger.Named("s3")))
		if err != nil {
			return nil, err
		}
		store = s3Store
		if !cfg.Storage.S3.KeepLocal {
			artifactDir = ""
		}
	}

	opts := []planprint.Option{
		planprint.WithLogger(logger.Named("printer")),
		planprint.WithWebRoot(webRoot),
		planprint.WithBaseStylesheet(baseStylesheet),
		planprint.WithTimeout(cfg.Renderer.Timeout),
		planprint.WithCaptureDelay(cfg.Renderer.Delay),
		planprint.WithBackend(planprint.Backend(cfg.Renderer.Backend)),
		planprint.WithKillMode(planprint.KillMode(cfg.Renderer.KillMode)),
		planprint.WithPoolSize(cfg.Renderer.PoolSize),
		planprint.WithRegistry(registry),
		planprint.WithArtifactStore(store),
		planprint.WithMetrics(m),
	}
	if cfg.Renderer.Binary != "" {
		opts = append(opts, planprint.WithRendererBinary(cfg.Renderer.Binary))
	}
	if cfg.Renderer.OverlayDir != "" {
		opts = append(opts, planprint.WithOverlayDir(cfg.Renderer.OverlayDir))
	}
	if cfg.Renderer.KeepOverlays {
		opts = append(opts, planprint.WithKeepOverlays())
	}
	if cfg.Renderer.ComputedHeight {
		opts = append(opts, planprint.WithComputedHeight())
	}
	if cfg.Renderer.Strict {
		opts = append(opts, planprint.WithStrictCapture())
	}
	if cfg.Server.BaseURL != "" {
		opts = append(opts, planprint.WithBaseURL(cfg.Server.BaseURL))
	}

	var upstream http.Handler
	if cfg.Planner.Upstream != "" {
		fwdOpts := []forward.Option{forward.WithLogger(logger.Named("forward"))}
		if authSvc != nil {
			ttl := cfg.Renderer.Timeout + upstreamTokenGrace
			fwdOpts = append(fwdOpts, forward.WithTokenIssuer(func(p *reqctx.Principal) (string, error) {
				token, _, err := authSvc.Issue(auth.IssueInput{
					Subject:  p.Subject,
					Username: p.Username,
					Roles:    p.Roles,
					TTL:      ttl,
				})
				return token, err
			}))
		}
		fwd, err := forward.New(cfg.Planner.Upstream, fwdOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, planprint.WithViewHandler(fwd.Handler))
		upstream = fwd.Passthrough()
	} else {
		logger.Warn("planner.upstream is empty, callbacks cannot serve a planning view")
	}

	printer, err := planprint.NewPrinter(append(opts, extra...)...)
	if err != nil {
		registry.Close()
		return nil, err
	}

	tags, err := cfg.Planner.Tags()
	if err != nil {
		_ = printer.Close()
		registry.Close()
		return nil, err
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Printer:     printer,
		Registry:    registry,
		Metrics:     m,
		Auth:        authSvc,
		Roles:       cfg.Auth.Roles,
		Negotiator:  reqctx.NewNegotiator(tags...),
		ArtifactDir: artifactDir,
		Upstream:    upstream,
		DefaultView: cfg.Planner.View,
		Strict:      cfg.Renderer.Strict,
		Logger:      logger.Named("http"),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		printer:  printer,
		registry: registry,
		handler:  handler,
	}, nil
}

// serve runs the HTTP server on ln until ctx is done, then shuts down
// gracefully within the configured timeout.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(a.logger.Named("http")),
	}

	a.logger.Info("serving",
		zap.String("addr", ln.Addr().String()),
		zap.String("web_root", a.cfg.Server.WebRoot),
		zap.String("backend", a.cfg.Renderer.Backend),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
		zap.Int("pool_size", planprint.ResolvePoolSize(a.cfg.Renderer.PoolSize)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close stops the renderer pool and drops pending callbacks.
func (a *app) Close() error {
	err := a.printer.Close()
	a.registry.Close()
	return err
}
