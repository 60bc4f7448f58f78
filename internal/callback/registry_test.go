package callback

// Notes:
// - Requests are served through a chi router and httptest.ResponseRecorder so
//   no network goroutines outlive a test; goleak checks the expiry timers.

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingObserver struct {
	registered, consumed, expired, cancelled atomic.Int32
}

func (o *countingObserver) CallbackRegistered() { o.registered.Add(1) }
func (o *countingObserver) CallbackConsumed()   { o.consumed.Add(1) }
func (o *countingObserver) CallbackExpired()    { o.expired.Add(1) }
func (o *countingObserver) CallbackCancelled()  { o.cancelled.Add(1) }

func newRouter(reg *Registry) chi.Router {
	r := chi.NewRouter()
	r.Get(reg.Pattern(), reg.ServeHTTP)
	return r
}

func fetch(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// ---------------------------------------------------------------------------
// TestRegister - URL Generation
// ---------------------------------------------------------------------------

func TestRegister_PathUnderPrefix(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("callbacks/")
	defer reg.Close()

	path, cancel := reg.Register(http.NotFoundHandler())
	defer cancel()

	if !strings.HasPrefix(path, "/callbacks/") {
		t.Errorf("path = %q, want /callbacks/ prefix", path)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegister_ConcurrentRegistrationsAreDistinct(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("")
	defer reg.Close()

	const n = 64
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], _ = reg.Register(http.NotFoundHandler())
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("duplicate callback path %q", p)
		}
		seen[p] = true
	}
	if reg.Len() != n {
		t.Errorf("Len() = %d, want %d", reg.Len(), n)
	}
}

// ---------------------------------------------------------------------------
// TestServeHTTP - Single Use
// ---------------------------------------------------------------------------

func TestServeHTTP_SingleUse(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	reg := NewRegistry("", WithObserver(obs))
	defer reg.Close()
	router := newRouter(reg)

	var calls atomic.Int32
	path, _ := reg.Register(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("planner"))
	}))

	first := fetch(router, path)
	if first.Code != http.StatusOK || first.Body.String() != "planner" {
		t.Fatalf("first fetch = %d %q", first.Code, first.Body.String())
	}
	second := fetch(router, path)
	if second.Code != http.StatusNotFound {
		t.Errorf("second fetch = %d, want 404", second.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("handler calls = %d, want 1", calls.Load())
	}
	if obs.registered.Load() != 1 || obs.consumed.Load() != 1 {
		t.Errorf("observer = %d registered, %d consumed", obs.registered.Load(), obs.consumed.Load())
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after consumption", reg.Len())
	}
}

func TestServeHTTP_UnknownToken(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("")
	defer reg.Close()

	if rec := fetch(newRouter(reg), "/callback/does-not-exist"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeHTTP_WithoutRouter(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("")
	defer reg.Close()

	path, _ := reg.Register(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if rec := fetch(reg, path); rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestServeHTTP_PanickingHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("")
	defer reg.Close()
	router := newRouter(reg)

	bad, _ := reg.Register(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("forward failed")
	}))
	good, _ := reg.Register(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if rec := fetch(router, bad); rec.Code != http.StatusInternalServerError {
		t.Errorf("panicking handler status = %d, want 500", rec.Code)
	}
	if rec := fetch(router, good); rec.Code != http.StatusOK {
		t.Errorf("other registration status = %d, want 200", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// TestExpiry - Cancel And TTL
// ---------------------------------------------------------------------------

func TestCancel_Unregisters(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	reg := NewRegistry("", WithObserver(obs))
	defer reg.Close()

	path, cancel := reg.Register(http.NotFoundHandler())
	cancel()
	cancel()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d after cancel", reg.Len())
	}
	if n := obs.cancelled.Load(); n != 1 {
		t.Errorf("cancelled = %d, want 1", n)
	}
	if rec := fetch(newRouter(reg), path); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTTL_ExpiresUnconsumed(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	reg := NewRegistry("", WithTTL(20*time.Millisecond), WithObserver(obs))
	defer reg.Close()

	path, _ := reg.Register(http.NotFoundHandler())

	deadline := time.Now().Add(2 * time.Second)
	for obs.expired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if reg.Len() != 0 {
		t.Fatal("registration did not expire")
	}
	if obs.expired.Load() != 1 {
		t.Errorf("expired = %d, want 1", obs.expired.Load())
	}
	if rec := fetch(newRouter(reg), path); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWithTTL_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	WithTTL(0)
}
