// Package metrics exposes Prometheus instrumentation and the standalone
// metrics listener used by the API server.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus counters for the discovery and attestation
// paths. Components accept a nil *Metrics and skip instrumentation, which
// keeps tests free of global registry collisions.
type Metrics struct {
	CacheRefreshes       prometheus.Counter
	CacheStaleServes     prometheus.Counter
	ProbeTimeouts        prometheus.Counter
	ProbeFailures        prometheus.Counter
	AttestationFallbacks prometheus.Counter
	AttestationFailures  prometheus.Counter
}

// NewMetrics creates and registers all counters under the given namespace.
// Must be called at most once per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CacheRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refreshes_total",
			Help:      "Total number of worker set enumerations against the registry",
		}),
		CacheStaleServes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stale_serves_total",
			Help:      "Total number of listings served from an expired worker set after a failed refresh",
		}),
		ProbeTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_timeouts_total",
			Help:      "Total number of worker probes dropped for exceeding their budget",
		}),
		ProbeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Total number of worker probes that failed for reasons other than timeout",
		}),
		AttestationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attestation_fallbacks_total",
			Help:      "Total number of attestation verifications resolved via the on-chain fallback",
		}),
		AttestationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attestation_failures_total",
			Help:      "Total number of attestation verifications where both paths failed",
		}),
	}
}

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server bound to addr. The namespace argument is kept
// for symmetry with NewMetrics; the handler serves the default registry.
func New(namespace, addr string) (*MetricsServer, error) {
	_ = namespace

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
