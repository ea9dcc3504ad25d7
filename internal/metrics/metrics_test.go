package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("/v1/generate", "POST", 200, 10*time.Millisecond)
	m.ObserveHTTP("/v1/generate", "POST", 200, 20*time.Millisecond)
	m.ObserveHTTP("", "GET", 404, time.Millisecond)
	m.Generation("ok")
	m.RateLimited("generate")
	m.RateLimited("generate")
	m.GatewayCall("generate", 200, time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/v1/generate", "POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("generate")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.gatewayRequests.WithLabelValues("generate", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveHTTP("/x", "GET", 200, time.Millisecond)
		m.Generation("ok")
		m.RateLimited("assist")
		m.GatewayCall("enhance", 503, time.Millisecond)
	})
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_ = New(reg)
	require.Panics(t, func() { _ = New(reg) })
}
