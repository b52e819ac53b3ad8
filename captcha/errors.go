package captcha

import "errors"

var (
	// ErrChallengeNotFound indicates the challenge id is unknown,
	// already resolved, or reaped. Not retryable.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrSessionNotFound indicates the session id has no record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRenderingUnavailable indicates the rendering collaborator
	// failed to produce the challenge asset. Safe for the client to retry.
	ErrRenderingUnavailable = errors.New("rendering unavailable")
)
