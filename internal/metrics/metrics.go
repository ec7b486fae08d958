// Package metrics exposes the Prometheus collectors pkg/session and
// internal/tcpdiag record against. A Registry is constructed once per
// process (or once per test, against a private prometheus.Registry)
// and passed down to whatever needs to observe a call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openenip/goenip/internal/tcpdiag"
)

// Registry holds every collector this library exports, registered
// against a single prometheus.Registerer so a caller can mount
// exactly one /metrics handler.
type Registry struct {
	CallsTotal     *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
	TCPRTT         prometheus.Gauge
	TCPRetransmits prometheus.Gauge
	TCPCwnd        prometheus.Gauge
}

// New creates and registers the collector set against reg. Passing
// prometheus.NewRegistry() isolates a test from the global default
// registry; passing prometheus.DefaultRegisterer matches how a real
// process would expose them via promhttp.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goenip_session_calls_total",
			Help: "CIP service calls by service code and outcome.",
		}, []string{"service", "outcome"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goenip_session_call_duration_seconds",
			Help:    "Round-trip latency of a call_service invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		TCPRTT: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goenip_tcp_rtt_seconds",
			Help: "Last sampled TCP_INFO smoothed round-trip time.",
		}),
		TCPRetransmits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goenip_tcp_retransmits_total",
			Help: "Last sampled TCP_INFO retransmit count.",
		}),
		TCPCwnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goenip_tcp_congestion_window_segments",
			Help: "Last sampled TCP_INFO congestion window, in segments.",
		}),
	}
	reg.MustRegister(r.CallsTotal, r.CallDuration, r.TCPRTT, r.TCPRetransmits, r.TCPCwnd)
	return r
}

// ObserveCall records one call_service invocation's outcome and
// latency. outcome is a short label like "ok", "cip_error", or
// "transport_error" — callers pick the label, Registry just records
// it, matching bifrost's ok/"record whatever happened" helpers.
func (r *Registry) ObserveCall(service string, outcome string, elapsed time.Duration) {
	r.CallsTotal.WithLabelValues(service, outcome).Inc()
	r.CallDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// RecordTCPInfo publishes a tcpdiag.Snapshot to the TCP_INFO gauges,
// satisfying tcpdiag.Recorder.
func (r *Registry) RecordTCPInfo(snap tcpdiag.Snapshot) {
	r.TCPRTT.Set(snap.RTT.Seconds())
	r.TCPRetransmits.Set(float64(snap.Retransmits))
	r.TCPCwnd.Set(float64(snap.CongWindow))
}
