package obs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rollout-labs/updatecache/internal/store"
	"github.com/rollout-labs/updatecache/internal/store/storetest"
)

func TestHealthzReportsHealthyStore(t *testing.T) {
	conn := store.NewConnectionWithCommanders(storetest.New(), storetest.New())
	srv := NewHTTPServer("", 9090, conn)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from healthy store, got %d", rec.Code)
	}
}

func TestHealthzSurfacesStoreFailure(t *testing.T) {
	failing := storetest.New()
	failing.PingErr = errors.New("connection refused")
	conn := store.NewConnectionWithCommanders(storetest.New(), failing)
	srv := NewHTTPServer("", 9090, conn)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when a handle fails to respond, got %d", rec.Code)
	}
}

func TestHealthzDisabledStore(t *testing.T) {
	srv := NewHTTPServer("", 9090, store.NewConnection(store.Options{}))

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when the store is not configured, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewHTTPServer("", 9090, store.NewConnection(store.Options{}))

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", rec.Code)
	}
}

func TestDefaultPort(t *testing.T) {
	srv := NewHTTPServer("localhost", 0, store.NewConnection(store.Options{}))
	if srv.Addr != "localhost:9090" {
		t.Fatalf("Expected default port 9090, got %q", srv.Addr)
	}
}
