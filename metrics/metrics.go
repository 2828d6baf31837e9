// Package metrics exposes Prometheus counters for registry calls, DNS queries
// and snapshots, and serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/namespace-registry/interfaces"
)

// Metrics holds the registry's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Calls         *prometheus.CounterVec
	Registrations prometheus.Counter
	DNSQueries    *prometheus.CounterVec
	Snapshots     *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "State-changing calls by operation and outcome",
		}, []string{"op", "outcome"}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Successful name registrations",
		}),
		DNSQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_queries_total",
			Help:      "DNS queries answered by response code",
		}, []string{"rcode"}),
		Snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot saves and restores by outcome",
		}, []string{"op", "outcome"}),
	}
}

// Outcome classifies err into a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, interfaces.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, interfaces.ErrNotFound):
		return "not_found"
	case errors.Is(err, interfaces.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, interfaces.ErrAlreadyActiveOrInGrace):
		return "unavailable"
	case errors.Is(err, interfaces.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, interfaces.ErrUnsupportedOperation):
		return "unsupported"
	case errors.Is(err, interfaces.ErrInvalidDuration), errors.Is(err, interfaces.ErrZeroAddress):
		return "invalid"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveCall(op string, err error) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op, Outcome(err)).Inc()
}

func (m *Metrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) ObserveDNSQuery(rcode int) {
	if m == nil {
		return
	}
	m.DNSQueries.WithLabelValues(dns.RcodeToString[rcode]).Inc()
}

func (m *Metrics) ObserveSnapshot(op string, err error) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(op, Outcome(err)).Inc()
}

// MetricsServer serves a dedicated Prometheus registry on /metrics.
type MetricsServer struct {
	*Metrics
	registry *prometheus.Registry
	srv      *http.Server
}

// New creates a server listening on addr whose registry also carries the Go
// runtime and process collectors.
func New(namespace, addr string) (*MetricsServer, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &MetricsServer{
		Metrics:  NewMetrics(namespace, reg),
		registry: reg,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Handler returns the /metrics handler, for tests and embedding.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
