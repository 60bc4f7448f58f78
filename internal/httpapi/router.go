// Package httpapi exposes the print pipeline over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/auth"
	"github.com/alnah/go-planprint/internal/callback"
	"github.com/alnah/go-planprint/internal/metrics"
	"github.com/alnah/go-planprint/internal/reqctx"
)

// Printer runs captures. *planprint.Printer implements it.
type Printer interface {
	Print(ctx context.Context, req planprint.RenderRequest) (*planprint.Result, error)
}

var _ Printer = (*planprint.Printer)(nil)

// Deps holds what the router serves.
type Deps struct {
	Printer    Printer
	Registry   *callback.Registry
	Metrics    *metrics.Metrics   // optional
	Auth       *auth.Service      // nil leaves the print API open
	Roles      []string           // any of these is required when Auth is set
	Negotiator *reqctx.Negotiator // optional
	// ArtifactDir is served under /print/; empty when captures are
	// published elsewhere.
	ArtifactDir string
	// Upstream answers unmatched GETs, typically the planning view's own
	// assets requested by the renderer.
	Upstream http.Handler
	// DefaultView replaces an empty view in print requests.
	DefaultView string
	// Strict answers failed captures with an error instead of a redirect.
	Strict bool
	Logger *zap.Logger
}

// NewRouter builds the HTTP surface:
//
//	POST /api/print          JSON print request (bearer token)
//	GET  /api/print          query-string print request (bearer token)
//	GET  /callback/{token}   single-use renderer callbacks
//	GET  /print/*            published captures
//	GET  /healthz, /metrics
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &handlers{printer: d.Printer, defaultView: d.DefaultView, strict: d.Strict, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(d.Logger, d.Metrics))

	r.Get("/healthz", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// The renderer fetches callbacks anonymously; the token is the credential.
	r.Get(d.Registry.Pattern(), d.Registry.ServeHTTP)

	if d.ArtifactDir != "" {
		r.Get("/print/*", artifactServer(d.ArtifactDir))
	}

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Middleware(d.Logger, d.Roles...))
		}
		if d.Negotiator != nil {
			r.Use(d.Negotiator.Middleware)
		}
		r.Post("/api/print", h.printJSON)
		r.Get("/api/print", h.printQuery)
	})

	if d.Upstream != nil {
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				http.NotFound(w, req)
				return
			}
			d.Upstream.ServeHTTP(w, req)
		})
	}
	return r
}

// artifactServer serves files from dir without directory listings.
func artifactServer(dir string) http.HandlerFunc {
	files := http.StripPrefix("/print/", http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=300")
		files.ServeHTTP(w, r)
	}
}
