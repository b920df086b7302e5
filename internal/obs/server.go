// Package obs exposes the operational HTTP surface: Prometheus metrics and a
// store health probe. It is not the update API, which lives in the service
// layer above this module.
package obs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rollout-labs/updatecache/internal/store"
)

// NewHTTPServer creates an HTTP server exposing Prometheus metrics at
// /metrics and store health at /healthz. The health endpoint is the one
// place store failure is surfaced: it returns 503 with the probe error when
// either handle fails to respond, and 200 otherwise.
func NewHTTPServer(address string, port int, conn *store.Connection) *http.Server {
	if port == 0 {
		port = 9090
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := conn.CheckHealth(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", address, port),
		Handler: mux,
	}
}
