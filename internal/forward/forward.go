// Package forward relays capture callbacks to the planning view.
//
// The renderer fetches a callback URL on this service; the callback handler
// proxies that fetch to the planning upstream with the request's entry
// points bound as query parameters and the caller's locale and principal
// passed as headers.
package forward

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/reqctx"
)

// ErrInvalidUpstream reports an unusable upstream URL.
var ErrInvalidUpstream = errors.New("invalid planning upstream")

// Headers set on forwarded requests.
const (
	HeaderUser  = "X-Forwarded-User"
	HeaderRoles = "X-Forwarded-Roles"
)

// TokenIssuer mints a credential for the upstream on behalf of p.
type TokenIssuer func(p *reqctx.Principal) (string, error)

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithLogger sets the logger for proxy errors.
func WithLogger(l *zap.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTransport replaces the upstream round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Forwarder) {
		f.proxy.Transport = rt
	}
}

// WithTokenIssuer sends a bearer token for the captured principal.
func WithTokenIssuer(issue TokenIssuer) Option {
	return func(f *Forwarder) {
		f.issue = issue
	}
}

// Forwarder proxies view requests to one planning upstream.
type Forwarder struct {
	upstream *url.URL
	proxy    *httputil.ReverseProxy
	issue    TokenIssuer
	logger   *zap.Logger
}

type targetKey struct{}

type target struct {
	view        string
	entryPoints map[string]string
}

// New creates a Forwarder for upstream, e.g. http://planner:8080/app.
func New(upstream string, opts ...Option) (*Forwarder, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpstream, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q must be http(s)://host[:port][/path]", ErrInvalidUpstream, upstream)
	}

	f := &Forwarder{upstream: u, logger: zap.NewNop()}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:      f.rewrite,
		ErrorHandler: f.handleError,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Handler serves view with entryPoints bound for this request only. It
// matches planprint.ViewHandler.
func (f *Forwarder) Handler(view string, entryPoints map[string]string) http.Handler {
	t := target{view: view, entryPoints: entryPoints}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), targetKey{}, t)
		f.proxy.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Passthrough proxies requests to the same path on the upstream, for the
// stylesheets, scripts and images the captured view loads.
func (f *Forwarder) Passthrough() http.Handler {
	return f.proxy
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	t, bound := pr.In.Context().Value(targetKey{}).(target)

	pr.SetURL(f.upstream)
	if bound {
		pr.Out.URL.Path = joinPath(f.upstream.Path, t.view)
		pr.Out.URL.RawPath = ""
		q := pr.In.URL.Query()
		for k, v := range t.entryPoints {
			q.Set(k, v)
		}
		pr.Out.URL.RawQuery = q.Encode()
	}

	pr.SetXForwarded()
	pr.Out.Header.Del("Authorization")
	pr.Out.Header.Del("Cookie")

	ctx := pr.In.Context()
	if tag, ok := reqctx.LocaleFrom(ctx); ok {
		pr.Out.Header.Set("Accept-Language", tag.String())
	}
	if p, ok := reqctx.PrincipalFrom(ctx); ok {
		pr.Out.Header.Set(HeaderUser, p.Username)
		if len(p.Roles) > 0 {
			pr.Out.Header.Set(HeaderRoles, strings.Join(p.Roles, ","))
		}
		if f.issue != nil {
			token, err := f.issue(p)
			if err != nil {
				f.logger.Warn("could not mint upstream token", zap.String("subject", p.Subject), zap.Error(err))
			} else {
				pr.Out.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	f.logger.Error("planning view unreachable",
		zap.String("upstream", f.upstream.Redacted()),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "planning view unreachable", http.StatusBadGateway)
}

// joinPath joins an upstream base path and an absolute view path.
func joinPath(base, view string) string {
	if view == "" {
		view = "/"
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(view, "/")
}
