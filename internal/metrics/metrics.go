// Package metrics defines the register's prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeDebounced = "debounced"
	OutcomeNotFound  = "not_found"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
)

// Metrics groups the collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Scans        *prometheus.CounterVec
	Marks        *prometheus.CounterVec
	RosterSize   prometheus.Gauge
	Reports      *prometheus.CounterVec
	LiveClients  prometheus.Gauge
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "scans_total",
			Help:      "Barcode scans by recorded action and outcome.",
		}, []string{"action", "outcome"}),
		Marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "marks_total",
			Help:      "Attendance marks written, by present flag.",
		}, []string{"present"}),
		RosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "register",
			Name:      "roster_learners",
			Help:      "Learners in the roster after the last import.",
		}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "reports_total",
			Help:      "Daily report deliveries by result.",
		}, []string{"result"}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "register",
			Name:      "live_clients",
			Help:      "Connected live board websockets.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "register",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.Scans, m.Marks, m.RosterSize, m.Reports, m.LiveClients, m.HTTPDuration)
	return m
}

// ObserveScan counts one scan. action is empty for failed scans.
func (m *Metrics) ObserveScan(action, outcome string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(action, outcome).Inc()
}

// ObserveMark counts one explicit mark.
func (m *Metrics) ObserveMark(present bool) {
	if m == nil {
		return
	}
	label := "false"
	if present {
		label = "true"
	}
	m.Marks.WithLabelValues(label).Inc()
}

// SetRosterSize records the roster size.
func (m *Metrics) SetRosterSize(n int) {
	if m == nil {
		return
	}
	m.RosterSize.Set(float64(n))
}

// ObserveReport counts a report attempt: "sent", "skipped" or "failed".
func (m *Metrics) ObserveReport(result string) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(result).Inc()
}

// LiveConnected adjusts the live client gauge by delta.
func (m *Metrics) LiveConnected(delta int) {
	if m == nil {
		return
	}
	m.LiveClients.Add(float64(delta))
}

// ObserveHTTP records a request duration.
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}
