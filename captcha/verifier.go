package captcha

import (
	"errors"
	"fmt"
)

// Verifier decides submitted placements against the stored target and
// finalizes the corresponding ledger attempt.
type Verifier struct {
	store *Store
}

// NewVerifier creates a Verifier over the given store.
func NewVerifier(store *Store) *Verifier {
	return &Verifier{store: store}
}

// Check evaluates a submitted placement for the given challenge.
//
// The decision is a pure function of the stored target: accept iff the
// submitted point deviates at most Tolerance units per axis. On any
// decision the session's most recent unresolved attempt is finalized
// (completion time, outcome, time taken, pointer path) and the solved
// or failed counter is incremented; when no attempt is outstanding the
// ledger update is a no-op but the decision is still returned. The
// challenge is single-use and deleted regardless of outcome.
//
// Returns ErrChallengeNotFound for unknown or already-reaped ids.
func (v *Verifier) Check(sessionID, challengeID string, x, y int, path []PathPoint) (bool, error) {
	if err := v.store.Reap(); err != nil {
		return false, err
	}

	ch, err := v.store.GetChallenge(challengeID)
	if err != nil {
		return false, err
	}

	ok := abs(x-ch.X) <= Tolerance && abs(y-ch.Y) <= Tolerance

	err = v.store.UpdateSession(sessionID, func(sess *Session) error {
		att := lastUnresolved(sess)
		if att == nil {
			return nil
		}
		now := v.store.Now().UTC()
		if now.Before(att.PresentedAt) {
			now = att.PresentedAt
		}
		decision := ok
		att.CompletedAt = &now
		att.Success = &decision
		att.TimeTaken = now.Sub(att.PresentedAt).Seconds()
		att.Path = path
		if ok {
			sess.Solved++
		} else {
			sess.Failed++
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return false, fmt.Errorf("finalizing attempt: %w", err)
	}

	if err := v.store.DeleteChallenge(challengeID); err != nil {
		return false, err
	}
	return ok, nil
}

// lastUnresolved returns the most recently presented unresolved attempt.
func lastUnresolved(sess *Session) *Attempt {
	for i := len(sess.Attempts) - 1; i >= 0; i-- {
		if !sess.Attempts[i].Resolved() {
			return &sess.Attempts[i]
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
