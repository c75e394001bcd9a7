// Package metrics exports machine decision telemetry to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-statemachine"
)

// PrometheusRecorder implements statemachine.Recorder on top of Prometheus
// counters and histograms. Decisions are pure in-memory computation, so the
// duration buckets sit in the microsecond range.
type PrometheusRecorder struct {
	authorizedTotal  *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
}

var _ statemachine.Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the decision metrics on reg. A nil reg
// falls back to the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		authorizedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_decisions_authorized_total",
			Help: "Total number of authorized transition decisions by resource and action",
		}, []string{"resource", "action"}),
		rejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_decisions_rejected_total",
			Help: "Total number of rejected transition decisions by resource, action, and rejection code",
		}, []string{"resource", "action", "code"}),
		decisionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fsm_decision_duration_seconds",
			Help:    "Duration of transition decisions by resource and action",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}, []string{"resource", "action"}),
	}
}

// RecordDuration observes one decision latency.
func (r *PrometheusRecorder) RecordDuration(resource, action string, elapsed time.Duration) {
	r.decisionDuration.WithLabelValues(sanitizeResource(resource), sanitizeAction(action)).Observe(elapsed.Seconds())
}

// RecordAuthorized counts one authorized decision.
func (r *PrometheusRecorder) RecordAuthorized(resource, action string) {
	r.authorizedTotal.WithLabelValues(sanitizeResource(resource), sanitizeAction(action)).Inc()
}

// RecordRejected counts one rejected decision.
func (r *PrometheusRecorder) RecordRejected(resource, action, code string) {
	r.rejectedTotal.WithLabelValues(sanitizeResource(resource), sanitizeAction(action), sanitizeCode(code)).Inc()
}

// Label sanitization: empty values would create blank label series.
func sanitizeResource(resource string) string {
	if resource == "" {
		return "unknown"
	}
	return resource
}

func sanitizeAction(action string) string {
	if action == "" {
		return "none"
	}
	return action
}

func sanitizeCode(code string) string {
	if code == "" {
		return "unknown"
	}
	return code
}
