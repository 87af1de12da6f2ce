package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairingEvents counts pairing token lifecycle events
	// (issued|confirmed|already_confirmed|not_found|expired|swept).
	PairingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_pairing_events_total",
			Help: "Total number of pairing token lifecycle events",
		},
		[]string{"event"},
	)

	// PairingLiveTokens tracks tokens currently held by the registry by state (valid|authenticated).
	PairingLiveTokens = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "classroom_pairing_live_tokens",
			Help: "Number of pairing tokens held in memory",
		},
		[]string{"state"},
	)

	// PairingWatchers tracks open websocket watchers.
	PairingWatchers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classroom_pairing_watchers",
			Help: "Number of connected pairing watchers",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classroom_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
