package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// issueWindow / issueMaxRequests bound challenge issuance per source
	// IP. Every request counts, not just failures: each issuance costs a
	// render round-trip and a stored challenge.
	issueWindow      = 1 * time.Minute
	issueMaxRequests = 30
	// issueRecordExpiry is how long after the last request before an
	// idle record is garbage-collected.
	issueRecordExpiry = 10 * time.Minute
)

// issueRateLimiter tracks challenge requests per source IP over a
// sliding window.
type issueRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	lastSeen map[string]time.Time
}

func newIssueRateLimiter() *issueRateLimiter {
	return &issueRateLimiter{
		requests: make(map[string][]time.Time),
		lastSeen: make(map[string]time.Time),
	}
}

// allow records a request for ip and reports whether it may proceed,
// along with how long to wait when it may not.
func (rl *issueRateLimiter) allow(ip string) (ok bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweepLocked(now)

	window := trimWindow(rl.requests[ip], now.Add(-issueWindow))
	if len(window) >= issueMaxRequests {
		rl.requests[ip] = window
		rl.lastSeen[ip] = now
		return false, issueWindow - now.Sub(window[0])
	}
	rl.requests[ip] = append(window, now)
	rl.lastSeen[ip] = now
	return true, 0
}

func (rl *issueRateLimiter) sweepLocked(now time.Time) {
	for ip, seen := range rl.lastSeen {
		if now.Sub(seen) > issueRecordExpiry {
			delete(rl.requests, ip)
			delete(rl.lastSeen, ip)
		}
	}
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "too many challenge requests; try again later")
}
