package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "unauthorized", Outcome(fmt.Errorf("%w: not owner", interfaces.ErrUnauthorized)))
	assert.Equal(t, "not_found", Outcome(interfaces.ErrNotFound))
	assert.Equal(t, "unavailable", Outcome(interfaces.ErrAlreadyActiveOrInGrace))
	assert.Equal(t, "invalid", Outcome(interfaces.ErrInvalidDuration))
	assert.Equal(t, "error", Outcome(fmt.Errorf("boom")))
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.ObserveCall("register", nil)
	m.ObserveCall("register", interfaces.ErrUnauthorized)
	m.ObserveCall("register", nil)
	m.ObserveRegistration()
	m.ObserveDNSQuery(dns.RcodeNameError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calls.WithLabelValues("register", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("register", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DNSQueries.WithLabelValues("NXDOMAIN")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", nil)
		m.ObserveRegistration()
		m.ObserveDNSQuery(dns.RcodeSuccess)
		m.ObserveSnapshot("save", nil)
	})
}

func TestMetricsServer_Handler(t *testing.T) {
	srv, err := New("namespace_registry", "127.0.0.1:0")
	require.NoError(t, err)
	srv.ObserveRegistration()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "namespace_registry_registrations_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
