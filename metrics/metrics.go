// Package metrics exports the handful of counters and gauges this module
// reports about its own health, via VictoriaMetrics/metrics — the teacher
// repo declares this dependency but never imports it; this package is the
// home it never got there.
package metrics

import (
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

var (
	sessionsActive int64

	requestsTotal             = metrics.NewCounter("gridclient_requests_total")
	failoversTotal            = metrics.NewCounter("gridclient_failovers_total")
	backgroundConnectAttempts = metrics.NewCounter("gridclient_background_connect_attempts_total")
)

func init() {
	metrics.NewGauge("gridclient_sessions_active", func() float64 {
		return float64(atomic.LoadInt64(&sessionsActive))
	})
}

// SetSessionsActive records the connection pool's current live session
// count.
func SetSessionsActive(n int) {
	atomic.StoreInt64(&sessionsActive, int64(n))
}

// IncRequests counts one call into the router's send dispatch, regardless
// of outcome.
func IncRequests() {
	requestsTotal.Inc()
}

// IncFailovers counts one retry after a session was dropped for
// KindLostConnection (spec §4.4 step 4).
func IncFailovers() {
	failoversTotal.Inc()
}

// IncBackgroundConnectAttempt counts one dial attempt made by the
// connection pool's background connector (spec §4.2), successful or not.
func IncBackgroundConnectAttempt() {
	backgroundConnectAttempts.Inc()
}

// WritePrometheus writes every metric this package registered in
// Prometheus exposition format, for embedding into an HTTP /metrics
// handler.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
