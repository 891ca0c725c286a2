package nominatim_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wanderlust/internal/adapters/nominatim"
	"wanderlust/internal/domain"
)

func newClient(t *testing.T, base string, timeout time.Duration) *nominatim.Client {
	t.Helper()
	cl, err := nominatim.New(nominatim.Config{
		BaseURL:   base,
		UserAgent: "wanderlust-test/1.0",
		Timeout:   timeout,
		RPS:       100, // high RPS for tests
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func TestClient_Resolve_LongitudeFirst(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lon":"10.5","lat":"20.25","display_name":"Somewhere"}]`))
	}))
	defer ts.Close()

	got := newClient(t, ts.URL, time.Second).Resolve(context.Background(), "Somewhere")
	if got != domain.NewPoint(10.5, 20.25) {
		t.Fatalf("unexpected point: %+v", got)
	}
	if got.Type != "Point" {
		t.Fatalf("unexpected type %q", got.Type)
	}
}

func TestClient_Resolve_RequestShape(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	newClient(t, ts.URL, time.Second).Resolve(context.Background(), "Rue de l'Église & Co, Paris+1")
	var seen *http.Request
	select {
	case seen = <-reqs:
	default:
		t.Fatalf("server was not called")
	}
	if seen.URL.Path != "/search" {
		t.Fatalf("path: %s", seen.URL.Path)
	}
	q := seen.URL.Query()
	if q.Get("q") != "Rue de l'Église & Co, Paris+1" || q.Get("format") != "json" || q.Get("limit") != "1" {
		t.Fatalf("unexpected query: %v", q)
	}
	if raw := seen.URL.RawQuery; !strings.Contains(raw, "%20") || !strings.Contains(raw, "%26") || !strings.Contains(raw, "%2B") {
		t.Fatalf("query not percent-encoded: %s", raw)
	}
	if seen.Header.Get("User-Agent") != "wanderlust-test/1.0" {
		t.Fatalf("user agent: %q", seen.Header.Get("User-Agent"))
	}
	if seen.Header.Get("Accept-Language") != "en" {
		t.Fatalf("accept-language: %q", seen.Header.Get("Accept-Language"))
	}
}

func TestClient_Resolve_Fallbacks(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"empty result": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[]`)) },
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"forbidden":    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
		"html body":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>busy</html>`)) },
		"object body":  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"error":"x"}`)) },
		"bad lon":      func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"east","lat":"1"}]`)) },
		"missing lat":  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"1"}]`)) },
		"nan lon":      func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"NaN","lat":"1"}]`)) },
		"inf lat":      func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"1","lat":"+Inf"}]`)) },
		"lon range":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"180.5","lat":"1"}]`)) },
		"lat range":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[{"lon":"1","lat":"-90.01"}]`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(h)
			defer ts.Close()

			got := newClient(t, ts.URL, time.Second).Resolve(context.Background(), "Nowhere")
			if got != domain.NewPoint(72.8777, 19.0760) {
				t.Fatalf("expected fallback, got %+v", got)
			}
		})
	}
}

func TestClient_Resolve_TransportErrorFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close() // nothing listens any more

	got := newClient(t, base, time.Second).Resolve(context.Background(), "Paris")
	if got != domain.FallbackPoint {
		t.Fatalf("expected fallback, got %+v", got)
	}
}

func TestClient_Resolve_TimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	start := time.Now()
	got := newClient(t, ts.URL, 100*time.Millisecond).Resolve(context.Background(), "Paris")
	if got != domain.FallbackPoint {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("resolve did not honor its timeout")
	}
}

func TestClient_Resolve_EmptyTextStillQueries(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	got := newClient(t, ts.URL, time.Second).Resolve(context.Background(), "   ")
	if got != domain.FallbackPoint {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly one call, got %d", hits)
	}
}

func TestClient_Resolve_Idempotent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lon":"2.3522","lat":"48.8566"}]`))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, time.Second)
	a := cl.Resolve(context.Background(), "Paris")
	b := cl.Resolve(context.Background(), "Paris")
	if a != b {
		t.Fatalf("resolve not idempotent: %+v vs %+v", a, b)
	}
}

func TestClient_Lookup_NoRetryAndErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, time.Second).Lookup(context.Background(), "Paris")
	var se *nominatim.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[]`)) }))
	defer empty.Close()
	if _, err := newClient(t, empty.URL, time.Second).Lookup(context.Background(), "x"); !errors.Is(err, nominatim.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := nominatim.New(nominatim.Config{UserAgent: "x"}); err == nil {
		t.Fatalf("expected error for missing base URL")
	}
	if _, err := nominatim.New(nominatim.Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for missing user agent")
	}
}

func TestClient_Lookup_RejectsNonFiniteCoordinates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lon":"NaN","lat":"Inf"}]`))
	}))
	defer ts.Close()

	if _, err := newClient(t, ts.URL, time.Second).Lookup(context.Background(), "x"); !errors.Is(err, nominatim.ErrCoords) {
		t.Fatalf("expected ErrCoords, got %v", err)
	}
}

func TestClient_Lookup_AcceptsBoundaryCoordinates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lon":"-180","lat":"90"}]`))
	}))
	defer ts.Close()

	p, err := newClient(t, ts.URL, time.Second).Lookup(context.Background(), "x")
	if err != nil || p != domain.NewPoint(-180, 90) {
		t.Fatalf("unexpected (%+v, %v)", p, err)
	}
}
