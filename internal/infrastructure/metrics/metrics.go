// Package metrics registers the connector's prometheus collectors. Call
// sites use the package-level helpers; registration happens in init so the
// /metrics endpoint only needs the default registry.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func register(cs ...prometheus.Collector) {
	for _, c := range cs {
		prometheus.MustRegister(c)
	}
}

func norm(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

var (
	balanceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_balance_checks_total",
			Help: "Balance checks by resulting state (valid/zerobalance/notfound/...).",
		},
		[]string{"state"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_redemptions_total",
			Help: "Redeem (authorization) attempts by outcome.",
		},
		[]string{"outcome"},
	)

	modificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_modifications_total",
			Help: "Capture/cancel/refund/reverse operations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	upstreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giftcard_upstream_latency_ms",
			Help:    "Issuer API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"endpoint", "success"},
	)
)

func init() {
	register(
		balanceChecksTotal,
		redemptionsTotal,
		modificationsTotal,
		upstreamLatencyMs,
	)
}

func IncBalanceCheck(state string) {
	balanceChecksTotal.WithLabelValues(norm(state)).Inc()
}

func IncRedemption(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	redemptionsTotal.WithLabelValues(outcome).Inc()
}

func IncModification(action, outcome string) {
	modificationsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func ObserveUpstreamCall(endpoint string, d time.Duration, success bool) {
	upstreamLatencyMs.WithLabelValues(norm(endpoint), boolLabel(success)).
		Observe(float64(d.Milliseconds()))
}
