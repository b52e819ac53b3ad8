// Package captcha implements the drag-the-piece challenge lifecycle:
// issuing challenges with a hidden target region, verifying submitted
// placements under a spatial tolerance, and keeping a per-session
// append-only attempt ledger with derived analytics.
package captcha

import "time"

const (
	// CanvasSize is the side length of the square playable canvas.
	CanvasSize = 250
	// PieceSize is the side length of the draggable puzzle piece.
	PieceSize = 50
	// Tolerance is the maximum per-axis deviation between the submitted
	// and target placement that still counts as a solve.
	Tolerance = 10
	// ChallengeTTL is how long an unresolved challenge is retained
	// before the reaper removes it.
	ChallengeTTL = 5 * time.Minute
)

// Challenge is one single-use target placement puzzle. The target
// coordinates are the top-left corner of the hidden piece region and
// always satisfy targetMin <= X,Y <= targetMax.
type Challenge struct {
	ID        string    `json:"id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	CreatedAt time.Time `json:"created_at"`
}

// PathPoint is one pointer sample recorded during the drag gesture.
// T is the client-reported timestamp in milliseconds.
type PathPoint struct {
	X int   `json:"x"`
	Y int   `json:"y"`
	T int64 `json:"t"`
}

// Attempt records the lifecycle of a single challenge presentation.
// CompletedAt and Success stay nil until the attempt is resolved;
// resolution happens exactly once.
type Attempt struct {
	ChallengeID string      `json:"challenge_id"`
	PresentedAt time.Time   `json:"presented_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Success     *bool       `json:"success,omitempty"`
	TimeTaken   float64     `json:"time_taken,omitempty"`
	Path        []PathPoint `json:"pointer_path,omitempty"`
}

// Resolved reports whether the attempt has been finalized.
func (a *Attempt) Resolved() bool {
	return a.CompletedAt != nil
}

// Session holds one client's outcome counters and its ordered,
// append-only attempt ledger. Sessions are never deleted.
type Session struct {
	ID        string    `json:"id"`
	Generated int       `json:"generated"`
	Solved    int       `json:"solved"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  []Attempt `json:"attempts,omitempty"`
}

// Outstanding returns the number of attempts that have been presented
// but not yet resolved.
func (s *Session) Outstanding() int {
	n := 0
	for i := range s.Attempts {
		if !s.Attempts[i].Resolved() {
			n++
		}
	}
	return n
}
