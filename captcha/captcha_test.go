package captcha_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/dmaher/pcaptcha/captcha"
	"github.com/dmaher/pcaptcha/storage/memory"
)

// fakeClock is a movable clock for deterministic timing tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubRenderer records the target it was asked to render and returns a
// canned blob, or fails on demand.
type stubRenderer struct {
	mu    sync.Mutex
	lastX int
	lastY int
	fail  bool
}

func (r *stubRenderer) Render(_ context.Context, x, y int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errors.New("background fetch failed")
	}
	r.lastX, r.lastY = x, y
	return []byte("png-bytes"), nil
}

func (r *stubRenderer) target() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastX, r.lastY
}

type fixture struct {
	store    *captcha.Store
	issuer   *captcha.Issuer
	verifier *captcha.Verifier
	renderer *stubRenderer
	clock    *fakeClock
}

func newFixture() *fixture {
	clk := newFakeClock()
	store := captcha.NewStore(memory.NewRepository(), captcha.WithNow(clk.Now))
	renderer := &stubRenderer{}
	return &fixture{
		store:    store,
		issuer:   captcha.NewIssuer(store, renderer, captcha.WithRand(rand.New(rand.NewSource(1)))),
		verifier: captcha.NewVerifier(store),
		renderer: renderer,
		clock:    clk,
	}
}
