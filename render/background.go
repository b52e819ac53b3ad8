package render

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"net/http"
	"sync"
	"time"

	// Background services return either format.
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"

	"github.com/dmaher/pcaptcha/captcha"
)

// BackgroundProvider supplies the base image a challenge is drawn over.
type BackgroundProvider interface {
	Background(ctx context.Context) (image.Image, error)
}

// HTTPBackground fetches a random background from an image service
// such as picsum. Failures surface to the issuer as a retryable
// challenge-issuance error.
type HTTPBackground struct {
	URL    string
	Client *http.Client
}

var _ BackgroundProvider = (*HTTPBackground)(nil)

// NewHTTPBackground creates a provider fetching from url with a bounded
// request timeout.
func NewHTTPBackground(url string) *HTTPBackground {
	return &HTTPBackground{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPBackground) Background(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", p.URL, resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding background: %w", err)
	}
	return img, nil
}

// GradientBackground generates a procedural background locally, so the
// service works without an external image dependency.
type GradientBackground struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ BackgroundProvider = (*GradientBackground)(nil)

// NewGradientBackground creates a procedural provider seeded from rng.
func NewGradientBackground(rng *rand.Rand) *GradientBackground {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &GradientBackground{rng: rng}
}

func (p *GradientBackground) Background(_ context.Context) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := captcha.CanvasSize
	dc := gg.NewContext(size, size)

	from := neonPalette[p.rng.Intn(len(neonPalette))]
	to := neonPalette[p.rng.Intn(len(neonPalette))]
	grad := gg.NewLinearGradient(0, 0, float64(size), float64(size))
	grad.AddColorStop(0, from)
	grad.AddColorStop(1, to)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	// Scattered translucent circles give the drag target somewhere to hide.
	for i := 0; i < 40; i++ {
		c := neonPalette[p.rng.Intn(len(neonPalette))]
		c.A = uint8(40 + p.rng.Intn(120))
		dc.SetColor(c)
		dc.DrawCircle(
			p.rng.Float64()*float64(size),
			p.rng.Float64()*float64(size),
			4+p.rng.Float64()*28,
		)
		dc.Fill()
	}
	return dc.Image(), nil
}
