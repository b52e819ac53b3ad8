package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueRateLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := newIssueRateLimiter()

	for i := 0; i < issueMaxRequests; i++ {
		ok, _ := rl.allow("10.0.0.1")
		assert.True(t, ok, "request %d should be allowed", i)
	}
}

func TestIssueRateLimiter_BlocksAfterThreshold(t *testing.T) {
	rl := newIssueRateLimiter()

	for i := 0; i < issueMaxRequests; i++ {
		rl.allow("10.0.0.1")
	}

	ok, retryAfter := rl.allow("10.0.0.1")
	require.False(t, ok, "should block once the window is full")
	assert.Greater(t, retryAfter, time.Duration(0), "retry-after should be positive")
	assert.LessOrEqual(t, retryAfter, issueWindow)
}

func TestIssueRateLimiter_PerIPIsolation(t *testing.T) {
	rl := newIssueRateLimiter()

	for i := 0; i < issueMaxRequests; i++ {
		rl.allow("10.0.0.1")
	}
	ok, _ := rl.allow("10.0.0.1")
	require.False(t, ok)

	// A different source is unaffected.
	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok)
}

func TestIssueRateLimiter_WindowSlides(t *testing.T) {
	rl := newIssueRateLimiter()

	// Backdate a full window of requests so they have all aged out.
	old := time.Now().Add(-2 * issueWindow)
	stale := make([]time.Time, issueMaxRequests)
	for i := range stale {
		stale[i] = old
	}
	rl.requests["10.0.0.1"] = stale
	rl.lastSeen["10.0.0.1"] = time.Now()

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok, "expired entries must not count against the window")
}

func TestIssueRateLimiter_SweepsIdleRecords(t *testing.T) {
	rl := newIssueRateLimiter()

	rl.allow("10.0.0.1")
	rl.lastSeen["10.0.0.1"] = time.Now().Add(-2 * issueRecordExpiry)

	// Any request triggers the sweep.
	rl.allow("10.0.0.2")

	rl.mu.Lock()
	_, present := rl.requests["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, present, "idle record should have been swept")
}
