package report

import (
	"fmt"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// writePDF places a rendered PNG chart centered on a single page, scaled to
// fit within the margins without changing its aspect ratio.
func writePDF(w io.Writer, chartPNG io.Reader, page PageOptions) error {
	img, err := png.Decode(chartPNG)
	if err != nil {
		return fmt.Errorf("failed to decode chart image: %w", err)
	}

	boxW := page.WidthMM - 2*page.MarginMM
	boxH := page.HeightMM - 2*page.MarginMM
	if boxW <= 0 || boxH <= 0 {
		return fmt.Errorf("page margins of %gmm leave no room on a %gx%gmm page", page.MarginMM, page.WidthMM, page.HeightMM)
	}

	bounds := img.Bounds()
	// dots per millimeter
	dpmm := math.Max(float64(bounds.Dx())/boxW, float64(bounds.Dy())/boxH)
	imgW := float64(bounds.Dx()) / dpmm
	imgH := float64(bounds.Dy()) / dpmm

	c := canvas.New(page.WidthMM, page.HeightMM)
	ctx := canvas.NewContext(c)
	ctx.DrawImage((page.WidthMM-imgW)/2, (page.HeightMM-imgH)/2, img, canvas.Resolution(dpmm))

	p := pdf.New(w, page.WidthMM, page.HeightMM, nil)
	c.Render(p)
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
