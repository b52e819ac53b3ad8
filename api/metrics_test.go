package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementFailureSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	// Override threshold for fast testing.
	collector.failureThreshold = 5

	// Failures below the threshold stay quiet.
	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditPlacementFailure)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	// The 5th failure trips the alert.
	collector.recordEvent(AuditPlacementFailure)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertPlacementFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	assert.Equal(t, 5, alerts[0].Threshold)
	mu.Unlock()
}

func TestTokenRejectionSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.rejectionThreshold = 3

	for i := 0; i < 3; i++ {
		collector.recordEvent(AuditTokenRejected)
	}
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTokenRejectionSpike, alerts[0].Type)
	mu.Unlock()
}

func TestAlertCountersResetAfterFiring(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.failureThreshold = 2

	collector.recordEvent(AuditPlacementFailure)
	collector.recordEvent(AuditPlacementFailure)
	mu.Lock()
	require.Len(t, alerts, 1)
	mu.Unlock()

	// The window resets once an alert fires; a single further failure
	// must not re-trigger.
	collector.recordEvent(AuditPlacementFailure)
	mu.Lock()
	assert.Len(t, alerts, 1)
	mu.Unlock()
}

func TestUnrelatedEventsIgnored(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.failureThreshold = 1
	collector.rejectionThreshold = 1

	collector.recordEvent(AuditChallengeIssued)
	collector.recordEvent(AuditPlacementSuccess)
	collector.recordEvent(AuditTokenVerified)

	mu.Lock()
	assert.Empty(t, alerts)
	mu.Unlock()
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *metricsCollector
	// Must not panic when no collector is installed.
	collector.recordEvent(AuditPlacementFailure)
}

func TestTrimWindow(t *testing.T) {
	now := time.Now()
	times := []time.Time{
		now.Add(-3 * time.Minute),
		now.Add(-2 * time.Minute),
		now.Add(-30 * time.Second),
		now,
	}
	kept := trimWindow(times, now.Add(-time.Minute))
	require.Len(t, kept, 2)
	assert.Equal(t, times[2], kept[0])
}
