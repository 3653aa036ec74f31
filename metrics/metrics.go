// Package metrics exposes a Prometheus-compatible metrics endpoint
// backed by VictoriaMetrics/metrics.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves /metrics on its own listener, separate from the
// service's API listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name. An empty addr
// yields a no-op server.
func New(serviceName, addr string) (*MetricsServer, error) {
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# service %s\n", serviceName)
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until shutdown.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// Counter returns the named counter, creating it on first use.
func Counter(name string) *vmetrics.Counter {
	return vmetrics.GetOrCreateCounter(name)
}
