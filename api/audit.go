package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditSessionCreated    AuditEvent = "session_created"
	AuditChallengeIssued   AuditEvent = "challenge_issued"
	AuditIssueFailed       AuditEvent = "issue_failed"
	AuditIssueRateLimited  AuditEvent = "issue_rate_limited"
	AuditPlacementSuccess  AuditEvent = "placement_success"
	AuditPlacementFailure  AuditEvent = "placement_failure"
	AuditChallengeNotFound AuditEvent = "challenge_not_found"
	AuditTokenVerified     AuditEvent = "token_verified"
	AuditTokenRejected     AuditEvent = "token_rejected"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. Session ids are opaque and
// safe for logs; submitted coordinates and pointer paths are not logged.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logChallenge is a convenience for events tied to a challenge id.
func (al *auditLogger) logChallenge(event AuditEvent, r *http.Request, challengeID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("challenge_id", challengeID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
