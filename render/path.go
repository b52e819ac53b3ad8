package render

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"

	"github.com/dmaher/pcaptcha/captcha"
)

// PathImage plots a recorded pointer path as a PNG for the analytics
// dashboard: green for a solved attempt, red for a failed one, with the
// gesture start and end marked.
func PathImage(path []captcha.PathPoint, success bool) ([]byte, error) {
	size := captcha.CanvasSize
	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if success {
		dc.SetRGB(0, 0.6, 0)
	} else {
		dc.SetRGB(0.8, 0, 0)
	}

	if len(path) > 0 {
		dc.SetLineWidth(2)
		dc.MoveTo(float64(path[0].X), float64(path[0].Y))
		for _, p := range path[1:] {
			dc.LineTo(float64(p.X), float64(p.Y))
		}
		dc.Stroke()

		dc.DrawCircle(float64(path[0].X), float64(path[0].Y), 4)
		dc.Fill()
		last := path[len(path)-1]
		dc.DrawCircle(float64(last.X), float64(last.Y), 6)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding path image: %w", err)
	}
	return buf.Bytes(), nil
}
