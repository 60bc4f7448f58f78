// Package callback registers one-time HTTP handlers reachable through
// generated URLs.
//
// The external renderer fetches the page it captures through such a URL.
// Each registration is consumed by its first fetch and expires after a
// bounded window if nobody fetches it, so abandoned captures cannot
// accumulate handlers.
package callback

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long an unconsumed registration stays reachable.
const DefaultTTL = 2 * time.Minute

// DefaultPrefix is the URL path under which callbacks are served.
const DefaultPrefix = "/callback"

// Observer is notified of registry events. Implemented by the metrics
// recorder.
type Observer interface {
	CallbackRegistered()
	CallbackConsumed()
	CallbackExpired()
	CallbackCancelled()
}

type nopObserver struct{}

func (nopObserver) CallbackRegistered() {}
func (nopObserver) CallbackConsumed()   {}
func (nopObserver) CallbackExpired()    {}
func (nopObserver) CallbackCancelled()  {}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the expiry window for unconsumed registrations.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTTL(d time.Duration) Option {
	if d <= 0 {
		panic("callback: WithTTL duration must be positive")
	}
	return func(r *Registry) { r.ttl = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

type entry struct {
	handler http.Handler
	timer   *time.Timer
}

// Registry maps generated tokens to single-use handlers.
// Safe for concurrent use.
type Registry struct {
	prefix   string
	ttl      time.Duration
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates a Registry serving under prefix (DefaultPrefix if empty).
func NewRegistry(prefix string, opts ...Option) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r := &Registry{
		prefix:   "/" + strings.Trim(prefix, "/"),
		ttl:      DefaultTTL,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the URL path prefix of generated callbacks.
func (r *Registry) Prefix() string { return r.prefix }

// Pattern returns the chi route pattern that ServeHTTP expects.
func (r *Registry) Pattern() string { return r.prefix + "/{token}" }

// Register makes h reachable exactly once through the returned URL path.
// cancel unregisters h if it has not been consumed yet; it is safe to call
// more than once and after consumption.
func (r *Registry) Register(h http.Handler) (path string, cancel func()) {
	token := uuid.NewString()
	e := &entry{handler: h}

	r.mu.Lock()
	r.entries[token] = e
	e.timer = time.AfterFunc(r.ttl, func() {
		if r.remove(token, e) {
			r.logger.Debug("callback expired", zap.String("token", token))
			r.observer.CallbackExpired()
		}
	})
	r.mu.Unlock()

	r.observer.CallbackRegistered()
	return r.prefix + "/" + token, func() {
		if r.remove(token, e) {
			r.observer.CallbackCancelled()
		}
	}
}

// remove deletes token if it still maps to e and stops its expiry timer.
func (r *Registry) remove(token string, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[token]
	if !ok || cur != e {
		return false
	}
	delete(r.entries, token)
	e.timer.Stop()
	return true
}

// take consumes the entry for token.
func (r *Registry) take(token string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok {
		return nil, false
	}
	delete(r.entries, token)
	e.timer.Stop()
	return e, true
}

// Len returns the number of pending registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close drops every pending registration.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, e := range r.entries {
		e.timer.Stop()
		delete(r.entries, token)
	}
}

// ServeHTTP consumes the registration named by the request and serves it.
// Unknown, consumed and expired tokens get 404. A panicking handler is
// answered with 500 and does not affect other registrations.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	token := chi.URLParam(req, "token")
	if token == "" {
		token = strings.TrimPrefix(req.URL.Path, r.prefix+"/")
	}

	e, ok := r.take(token)
	if !ok {
		r.logger.Debug("unknown callback", zap.String("token", token))
		http.NotFound(w, req)
		return
	}
	r.observer.CallbackConsumed()

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		r.logger.Error("callback handler failed",
			zap.String("token", token),
			zap.Any("panic", rec))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}()

	e.handler.ServeHTTP(w, req)
}
