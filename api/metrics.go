package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	// AlertPlacementFailureSpike fires when failed placements within the
	// window exceed the threshold, a signal of automated solvers probing
	// the tolerance.
	AlertPlacementFailureSpike AlertType = "placement_failure_spike"
	// AlertTokenRejectionSpike fires on bursts of rejected proof tokens.
	AlertTokenRejectionSpike AlertType = "token_rejection_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	placementFailures []time.Time
	failureWindow     time.Duration
	failureThreshold  int

	tokenRejections    []time.Time
	rejectionWindow    time.Duration
	rejectionThreshold int

	alertFn AlertFunc
}

const (
	defaultFailureWindow      = 1 * time.Minute
	defaultFailureThreshold   = 50
	defaultRejectionWindow    = 5 * time.Minute
	defaultRejectionThreshold = 25
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		failureWindow:      defaultFailureWindow,
		failureThreshold:   defaultFailureThreshold,
		rejectionWindow:    defaultRejectionWindow,
		rejectionThreshold: defaultRejectionThreshold,
		alertFn:            alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditPlacementFailure:
		m.recordPlacementFailure()
	case AuditTokenRejected:
		m.recordTokenRejection()
	}
}

func (m *metricsCollector) recordPlacementFailure() {
	m.mu.Lock()
	now := time.Now()
	m.placementFailures = trimWindow(append(m.placementFailures, now), now.Add(-m.failureWindow))

	var alert *AlertEvent
	if len(m.placementFailures) >= m.failureThreshold {
		alert = &AlertEvent{
			Type:      AlertPlacementFailureSpike,
			Message:   "failed placement volume exceeded threshold",
			Count:     len(m.placementFailures),
			Threshold: m.failureThreshold,
			Timestamp: now,
		}
		m.placementFailures = nil
	}
	m.mu.Unlock()

	// Callback runs outside the lock so a slow alert sink cannot stall
	// request handling.
	if alert != nil {
		m.alertFn(*alert)
	}
}

func (m *metricsCollector) recordTokenRejection() {
	m.mu.Lock()
	now := time.Now()
	m.tokenRejections = trimWindow(append(m.tokenRejections, now), now.Add(-m.rejectionWindow))

	var alert *AlertEvent
	if len(m.tokenRejections) >= m.rejectionThreshold {
		alert = &AlertEvent{
			Type:      AlertTokenRejectionSpike,
			Message:   "rejected token volume exceeded threshold",
			Count:     len(m.tokenRejections),
			Threshold: m.rejectionThreshold,
			Timestamp: now,
		}
		m.tokenRejections = nil
	}
	m.mu.Unlock()

	if alert != nil {
		m.alertFn(*alert)
	}
}

func trimWindow(times []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
