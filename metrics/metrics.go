// Package metrics provides Prometheus metrics for ad insertion and playback orchestration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fallback reasons.
const (
	ReasonRequestError  = "request_error"
	ReasonLoaderFailed  = "loader_failed"
	ReasonManagerFailed = "manager_failed"
	ReasonRetryExceeded = "retry_exceeded"
)

// Snap-back kinds.
const (
	SnapbackPreroll = "preroll"
	SnapbackSeek    = "seek"
)

var (
	// AdRequestsTotal counts ad requests, including retries.
	AdRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adplay_ad_requests_total",
		Help: "Total number of ad requests issued, including retries.",
	})

	// AdRequestRetriesTotal counts retries after a timed out ad request.
	AdRequestRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adplay_ad_request_retries_total",
		Help: "Total number of ad request retries after a timeout.",
	})

	// ContentFallbackTotal counts sessions that gave up on ads, by reason.
	ContentFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adplay_content_fallback_total",
		Help: "Total number of sessions that fell back to content-only playback, by reason.",
	}, []string{"reason"})

	// SnapbackTotal counts armed snap-backs, by kind.
	SnapbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adplay_snapback_total",
		Help: "Total number of snap-backs armed to enforce an unwatched ad break, by kind.",
	}, []string{"kind"})

	// StateTransitionsTotal counts player state machine transitions.
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adplay_state_transitions_total",
		Help: "Total number of player state transitions, by from and to state.",
	}, []string{"from", "to"})
)

// RecordAdRequest increments the ad request counter.
func RecordAdRequest() {
	AdRequestsTotal.Inc()
}

// RecordRetry increments the retry counter.
func RecordRetry() {
	AdRequestRetriesTotal.Inc()
}

// RecordFallback increments the fallback counter for reason.
func RecordFallback(reason string) {
	ContentFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordSnapback increments the snap-back counter for kind.
func RecordSnapback(kind string) {
	SnapbackTotal.WithLabelValues(kind).Inc()
}

// RecordTransition increments the transition counter.
func RecordTransition(from, to string) {
	StateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
