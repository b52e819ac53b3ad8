package captcha

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Target placement bounds, matching the original canvas: the piece
// region must stay fully inside the canvas.
const (
	targetMin = PieceSize / 2
	targetMax = CanvasSize - PieceSize
)

// Renderer produces the visual asset for a challenge. It receives the
// target coordinates and returns an opaque PNG blob. Implementations
// live outside this package; the issuer only needs the bytes.
type Renderer interface {
	Render(ctx context.Context, x, y int) ([]byte, error)
}

// Issuer creates challenges with an unpredictable target placement and
// records the presentation in the owning session's ledger.
type Issuer struct {
	store    *Store
	renderer Renderer

	mu  sync.Mutex
	rng *rand.Rand
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithRand sets the random source used for target selection, so
// placement tests are reproducible.
func WithRand(rng *rand.Rand) IssuerOption {
	return func(i *Issuer) {
		i.rng = rng
	}
}

// NewIssuer creates an Issuer over the given store and renderer.
func NewIssuer(store *Store, renderer Renderer, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		store:    store,
		renderer: renderer,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssuedChallenge is returned to the caller after a successful issuance.
type IssuedChallenge struct {
	ChallengeID string
	X, Y        int
	Asset       []byte
}

// Issue creates a challenge for the given session: it draws a target
// placement, renders the asset, persists the challenge, appends a
// "presented" attempt to the session ledger, and increments the
// session's generated counter.
//
// Rendering happens before any store mutation, so a failing renderer
// leaves no challenge behind and holds no lock on session state.
func (i *Issuer) Issue(ctx context.Context, sessionID string) (*IssuedChallenge, error) {
	x, y := i.target()

	asset, err := i.renderer.Render(ctx, x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
	}

	ch := &Challenge{
		ID:        uuid.NewString(),
		X:         x,
		Y:         y,
		CreatedAt: i.store.Now().UTC(),
	}
	if err := i.store.PutChallenge(ch); err != nil {
		return nil, fmt.Errorf("persisting challenge: %w", err)
	}
	if err := i.store.PutAsset(ch.ID, asset); err != nil {
		return nil, fmt.Errorf("persisting asset: %w", err)
	}

	err = i.store.UpdateSession(sessionID, func(sess *Session) error {
		sess.Generated++
		sess.Attempts = append(sess.Attempts, Attempt{
			ChallengeID: ch.ID,
			PresentedAt: ch.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording attempt: %w", err)
	}

	return &IssuedChallenge{ChallengeID: ch.ID, X: x, Y: y, Asset: asset}, nil
}

func (i *Issuer) target() (x, y int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	x = targetMin + i.rng.Intn(targetMax-targetMin+1)
	y = targetMin + i.rng.Intn(targetMax-targetMin+1)
	return x, y
}
