package reqctx

// Notes:
// - The propagation tests serve the wrapped handler through httptest, which
//   runs it on a goroutine unrelated to the one that captured the snapshot.

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/text/language"
)

var galician = language.MustParse("gl")

// ---------------------------------------------------------------------------
// TestCapture - Snapshot Contents
// ---------------------------------------------------------------------------

func TestCapture_Empty(t *testing.T) {
	t.Parallel()

	s := Capture(context.Background())
	if _, ok := s.Locale(); ok {
		t.Error("expected no locale")
	}
	if s.Principal() != nil {
		t.Error("expected no principal")
	}

	ctx := s.Install(context.Background())
	if _, ok := LocaleFrom(ctx); ok {
		t.Error("empty snapshot must not install a locale")
	}
}

func TestCapture_LocaleAndPrincipal(t *testing.T) {
	t.Parallel()

	p := &Principal{Subject: "u-1", Username: "ana", Roles: []string{"planner"}}
	ctx := WithPrincipal(WithLocale(context.Background(), language.Spanish), p)

	s := Capture(ctx)
	if tag, ok := s.Locale(); !ok || tag != language.Spanish {
		t.Errorf("Locale() = %v, %v; want es, true", tag, ok)
	}
	if s.Principal() != p {
		t.Error("Principal() did not return captured principal")
	}
}

// ---------------------------------------------------------------------------
// TestWrap - Replay On An Unrelated Request
// ---------------------------------------------------------------------------

func TestWrap_ReplaysSnapshotOnBareRequest(t *testing.T) {
	t.Parallel()

	p := &Principal{Subject: "u-7", Username: "mrego"}
	origin := WithPrincipal(WithLocale(context.Background(), galician), p)
	snap := Capture(origin)

	var (
		mu        sync.Mutex
		gotLocale language.Tag
		gotUser   *Principal
	)
	h := snap.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotLocale, _ = LocaleFrom(r.Context())
		gotUser, _ = PrincipalFrom(r.Context())
	}))

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	if gotLocale != galician {
		t.Errorf("handler locale = %v, want gl", gotLocale)
	}
	if gotUser != p {
		t.Errorf("handler principal = %v, want %v", gotUser, p)
	}
}

func TestWrap_DoesNotLeakToLaterRequests(t *testing.T) {
	t.Parallel()

	snap := Capture(WithPrincipal(context.Background(), &Principal{Subject: "u-1"}))

	var leaked bool
	plain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, leaked = PrincipalFrom(r.Context())
	})
	wrapped := snap.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)
	plain.ServeHTTP(httptest.NewRecorder(), req)

	if leaked {
		t.Error("principal leaked into a request served after the wrapped handler")
	}
}

func TestWrap_InstallsEvenWhenHandlerPanics(t *testing.T) {
	t.Parallel()

	snap := Capture(WithLocale(context.Background(), language.French))
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	func() {
		defer func() { _ = recover() }()
		snap.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("forward failed")
		})).ServeHTTP(httptest.NewRecorder(), req)
	}()

	if _, ok := LocaleFrom(req.Context()); ok {
		t.Error("original request context was modified")
	}
}

// ---------------------------------------------------------------------------
// TestNegotiator - Accept-Language Matching
// ---------------------------------------------------------------------------

func TestNegotiator_Match(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(language.English, language.Spanish, galician)

	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"es-ES,es;q=0.9", language.Spanish},
		{"gl", galician},
		{"de-DE", language.English},
		{"not a header;;;", language.English},
	}

	for _, tt := range tests {
		if got := n.Match(tt.header); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestNegotiator_MiddlewareKeepsExistingLocale(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(language.English, language.Spanish)
	var got language.Tag
	h := n.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = LocaleFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es")
	req = req.WithContext(WithLocale(req.Context(), language.English))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != language.English {
		t.Errorf("locale = %v, want installed en", got)
	}
}

func TestPrincipal_HasRole(t *testing.T) {
	t.Parallel()

	var nilP *Principal
	if nilP.HasRole("x") {
		t.Error("nil principal has no roles")
	}
	p := &Principal{Roles: []string{"planner", "admin"}}
	if !p.HasRole("admin") || p.HasRole("guest") {
		t.Error("HasRole mismatch")
	}
}
