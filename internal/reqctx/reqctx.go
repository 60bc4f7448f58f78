// Package reqctx carries the locale and security principal of a request and
// replays them onto a different request.
//
// A print request registers a callback that the renderer fetches later over
// a separate HTTP connection. That second request arrives with no user
// session and no Accept-Language of its own, so the callback handler is
// wrapped with a Snapshot taken while the original request was being served.
// Installation is scoped to the derived request context: when the wrapped
// handler returns, nothing remains installed anywhere.
package reqctx

import (
	"context"
	"net/http"
	"slices"

	"golang.org/x/text/language"
)

// Principal identifies the authenticated user of a request.
type Principal struct {
	Subject  string
	Username string
	Roles    []string
}

// HasRole reports whether p carries role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

type (
	principalKey struct{}
	localeKey    struct{}
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// WithLocale returns a copy of ctx carrying tag.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// LocaleFrom returns the locale stored in ctx.
func LocaleFrom(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(localeKey{}).(language.Tag)
	return tag, ok
}

// Snapshot is the locale and principal captured from one context.
// The zero value installs nothing.
type Snapshot struct {
	locale    language.Tag
	hasLocale bool
	principal *Principal
}

// Capture snapshots the locale and principal currently in ctx.
func Capture(ctx context.Context) Snapshot {
	var s Snapshot
	s.locale, s.hasLocale = LocaleFrom(ctx)
	s.principal, _ = PrincipalFrom(ctx)
	return s
}

// Locale returns the captured locale, if any.
func (s Snapshot) Locale() (language.Tag, bool) { return s.locale, s.hasLocale }

// Principal returns the captured principal, or nil.
func (s Snapshot) Principal() *Principal { return s.principal }

// Install returns a context derived from ctx with the snapshot's values
// installed. Values absent from the snapshot are left as they are in ctx.
func (s Snapshot) Install(ctx context.Context) context.Context {
	if s.hasLocale {
		ctx = WithLocale(ctx, s.locale)
	}
	if s.principal != nil {
		ctx = WithPrincipal(ctx, s.principal)
	}
	return ctx
}

// Wrap returns a handler that serves h with the snapshot installed in the
// request context.
func (s Snapshot) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(s.Install(r.Context())))
	})
}

// Negotiator matches Accept-Language headers against supported locales.
type Negotiator struct {
	matcher   language.Matcher
	supported []language.Tag
}

// NewNegotiator creates a Negotiator. The first tag is the fallback.
// With no tags, English is supported.
func NewNegotiator(supported ...language.Tag) *Negotiator {
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}
	return &Negotiator{
		matcher:   language.NewMatcher(supported),
		supported: supported,
	}
}

// Match returns the best supported locale for an Accept-Language value.
func (n *Negotiator) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return n.supported[0]
	}
	_, idx, _ := n.matcher.Match(tags...)
	return n.supported[idx]
}

// Middleware installs the negotiated locale in each request context unless
// one is already present.
func (n *Negotiator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := LocaleFrom(r.Context()); !ok {
			tag := n.Match(r.Header.Get("Accept-Language"))
			r = r.WithContext(WithLocale(r.Context(), tag))
		}
		next.ServeHTTP(w, r)
	})
}
