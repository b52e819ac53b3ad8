// Package render produces the visual assets for challenges: the puzzle
// background with the hidden target region composited in, and the
// pointer-path plots shown on the analytics dashboard.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math/rand"
	"sync"

	"github.com/fogleman/gg"

	"github.com/dmaher/pcaptcha/captcha"
)

// neonPalette holds the outline/fill colors for the target region.
var neonPalette = []color.NRGBA{
	{255, 0, 0, 200},
	{0, 255, 0, 200},
	{0, 0, 255, 200},
	{255, 255, 0, 200},
	{255, 0, 255, 200},
	{0, 255, 255, 200},
	{255, 165, 0, 200},
	{255, 20, 147, 200},
	{191, 255, 0, 200},
	{57, 255, 20, 200},
	{255, 105, 180, 200},
	{127, 255, 0, 200},
	{0, 191, 255, 200},
	{255, 69, 0, 200},
	{255, 0, 127, 200},
	{199, 21, 133, 200},
	{32, 178, 170, 200},
	{173, 255, 47, 200},
	{100, 149, 237, 200},
	{0, 255, 127, 200},
	{220, 20, 60, 200},
	{148, 0, 211, 200},
	{255, 215, 0, 200},
	{238, 130, 238, 200},
	{64, 224, 208, 200},
	{144, 238, 144, 200},
	{186, 85, 211, 200},
	{0, 206, 209, 200},
	{123, 104, 238, 200},
	{255, 140, 0, 200},
}

// PieceRenderer composites the target region onto a background image
// and encodes the result as PNG. It implements the captcha.Renderer
// interface consumed by the issuer.
type PieceRenderer struct {
	background BackgroundProvider

	mu  sync.Mutex
	rng *rand.Rand
}

var _ captcha.Renderer = (*PieceRenderer)(nil)

// PieceOption configures a PieceRenderer.
type PieceOption func(*PieceRenderer)

// WithRand sets the random source used for cosmetic choices, so
// rendering is reproducible in tests.
func WithRand(rng *rand.Rand) PieceOption {
	return func(r *PieceRenderer) {
		r.rng = rng
	}
}

// NewPieceRenderer creates a renderer over the given background source.
func NewPieceRenderer(background BackgroundProvider, opts ...PieceOption) *PieceRenderer {
	r := &PieceRenderer{
		background: background,
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the target region at (x, y) onto a fresh background and
// returns the PNG bytes. The outline is stroked in layers of decreasing
// alpha so the region edge blends into the background instead of
// presenting a hard rectangle.
func (r *PieceRenderer) Render(ctx context.Context, x, y int) ([]byte, error) {
	bg, err := r.background.Background(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching background: %w", err)
	}

	dc := gg.NewContext(captcha.CanvasSize, captcha.CanvasSize)
	bounds := bg.Bounds()
	dc.Push()
	dc.Scale(
		float64(captcha.CanvasSize)/float64(bounds.Dx()),
		float64(captcha.CanvasSize)/float64(bounds.Dy()),
	)
	dc.DrawImage(bg, 0, 0)
	dc.Pop()

	outline, fill := r.pickColors()

	dc.SetColor(fill)
	dc.DrawRectangle(float64(x), float64(y), captcha.PieceSize, captcha.PieceSize)
	dc.Fill()

	// Widest, faintest stroke first so the crisp edge lands on top.
	for i := 3; i >= 0; i-- {
		c := outline
		c.A = uint8(int(outline.A) / (i + 1))
		dc.SetColor(c)
		dc.SetLineWidth(5 + float64(i)*2)
		dc.DrawRectangle(float64(x), float64(y), captcha.PieceSize, captcha.PieceSize)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding challenge image: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PieceRenderer) pickColors() (outline, fill color.NRGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outline = neonPalette[r.rng.Intn(len(neonPalette))]
	fill = neonPalette[r.rng.Intn(len(neonPalette))]
	fill.A = 15
	return outline, fill
}
