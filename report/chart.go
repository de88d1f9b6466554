package report

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/qpcr-lab/rq-analyzer/analysis/types"
)

const (
	barFraction = 0.6
	capFraction = 0.25
	headroom    = 1.15
)

var (
	barFill   = drawing.ColorFromHex("4C72B0")
	barStroke = drawing.ColorFromHex("2F4B7C")
	errorBar  = drawing.ColorBlack
)

// ChartOptions defines how the expression chart is rendered.
type ChartOptions struct {
	Width       int
	Height      int
	Transparent bool
	Page        PageOptions
}

// PageOptions defines the PDF page the chart is placed on, in millimeters.
type PageOptions struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// DefaultChartOptions returns a landscape A4 chart with a transparent
// background.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Width:       1000,
		Height:      600,
		Transparent: true,
		Page: PageOptions{
			WidthMM:  297,
			HeightMM: 210,
			MarginMM: 10,
		},
	}
}

// ChartTitle returns the title of the chart of target.
func ChartTitle(target string) string {
	return fmt.Sprintf("Expression of %s", target)
}

// RenderChart writes the bar chart of normalized expression per sample for
// target. Rows with both bounds get an error bar spanning
// [expression - rqMin, expression + rqMax]. Rows are only read.
func RenderChart(w io.Writer, format ChartFormat, target string, rows []types.QuantificationResult, opts ChartOptions) error {
	if len(rows) == 0 {
		return types.ErrEmptyChart.Wrapf("target %s", target)
	}

	switch format {
	case ChartPNG:
		return renderRaster(w, chart.PNG, target, rows, opts)
	case ChartSVG:
		return renderRaster(w, chart.SVG, target, rows, opts)
	case ChartPDF:
		var buf bytes.Buffer
		if err := renderRaster(&buf, chart.PNG, target, rows, opts); err != nil {
			return err
		}
		return writePDF(w, &buf, opts.Page)
	default:
		return types.ErrUnsupportedFormat.Wrapf("chart format %q", format)
	}
}

func renderRaster(w io.Writer, rp chart.RendererProvider, target string, rows []types.QuantificationResult, opts ChartOptions) error {
	graph := newBarChart(target, rows, opts)
	if err := graph.Render(rp, w); err != nil {
		return fmt.Errorf("failed to render chart of %s: %w", target, err)
	}
	return nil
}

func newBarChart(target string, rows []types.QuantificationResult, opts ChartOptions) chart.Chart {
	n := len(rows)
	xValues := make([]float64, n)
	yValues := make([]float64, n)
	ticks := make([]chart.Tick, 0, n+2)

	ticks = append(ticks, chart.Tick{Value: -0.5})
	yMax := 0.0
	for i, row := range rows {
		xValues[i] = float64(i)
		yValues[i] = row.NormalizedExpression
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: row.Sample})

		top := row.NormalizedExpression
		if row.HasBounds() {
			top += row.RQMax.Float64
		}
		yMax = math.Max(yMax, top)
	}
	ticks = append(ticks, chart.Tick{Value: float64(n) - 0.5})

	if yMax <= 0 || math.IsNaN(yMax) || math.IsInf(yMax, 0) {
		yMax = 1
	}

	xRange := &chart.ContinuousRange{}
	yRange := &chart.ContinuousRange{Min: 0, Max: yMax * headroom}

	graph := chart.Chart{
		Title:  ChartTitle(target),
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: chart.XAxis{
			Name:  "Sample",
			Range: xRange,
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "Normalized Expression",
			Range: yRange,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: target,
				Style: chart.Style{
					StrokeColor: drawing.ColorTransparent,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
		Elements: []chart.Renderable{
			drawBars(rows, xRange, yRange),
		},
	}

	if opts.Transparent {
		graph.Background = chart.Style{
			FillColor:   drawing.ColorTransparent,
			StrokeColor: drawing.ColorTransparent,
		}
		graph.Canvas = chart.Style{
			FillColor:   drawing.ColorTransparent,
			StrokeColor: drawing.ColorTransparent,
		}
	}

	return graph
}

// drawBars draws one bar per row and its error bar. The ranges have their
// domains set by the chart before elements are rendered.
func drawBars(rows []types.QuantificationResult, xRange, yRange *chart.ContinuousRange) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, _ chart.Style) {
		slot := float64(box.Width()) / float64(len(rows))
		halfBar := int(math.Max(1, slot*barFraction/2))
		halfCap := int(math.Max(1, slot*capFraction/2))

		yPixel := func(v float64) int {
			return box.Bottom - yRange.Translate(v)
		}

		for i, row := range rows {
			x := box.Left + xRange.Translate(float64(i))
			top, base := yPixel(row.NormalizedExpression), yPixel(0)

			r.SetFillColor(barFill)
			r.SetStrokeColor(barStroke)
			r.SetStrokeWidth(1)
			r.MoveTo(x-halfBar, top)
			r.LineTo(x+halfBar, top)
			r.LineTo(x+halfBar, base)
			r.LineTo(x-halfBar, base)
			r.Close()
			r.FillStroke()

			if !row.HasBounds() {
				continue
			}

			low := yPixel(row.NormalizedExpression - row.RQMin.Float64)
			high := yPixel(row.NormalizedExpression + row.RQMax.Float64)

			r.SetStrokeColor(errorBar)
			r.SetStrokeWidth(1.5)
			r.MoveTo(x, low)
			r.LineTo(x, high)
			r.MoveTo(x-halfCap, low)
			r.LineTo(x+halfCap, low)
			r.MoveTo(x-halfCap, high)
			r.LineTo(x+halfCap, high)
			r.Stroke()
		}
	}
}
