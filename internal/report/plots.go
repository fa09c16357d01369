package report

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/dyike/StockLens/internal/models"
)

// NamedSeries is one line on a chart.
type NamedSeries struct {
	Name    string
	Dates   []time.Time
	Returns []float64
}

// Renderer turns derived series into PNG images.
type Renderer interface {
	// Snapshot draws cumulative return, drawdown and daily returns panels.
	Snapshot(title string, lines []NamedSeries) ([]byte, error)
	// YearlyReturns draws grouped bars of compounded yearly returns.
	YearlyReturns(title, strategy, benchmark string, yearly []models.YearlyReturn) ([]byte, error)
}

var (
	strategyColor  = color.RGBA{R: 0x34, G: 0x8d, B: 0xc1, A: 0xff}
	benchmarkColor = color.RGBA{R: 0xff, G: 0x9a, B: 0x00, A: 0xff}
	drawdownColor  = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// PlotRenderer draws with gonum/plot.
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
}

func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{Width: 10 * vg.Inch, Height: 8 * vg.Inch}
}

func xys(dates []time.Time, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(dates[i].Unix())
		pts[i].Y = v * 100
	}
	return pts
}

func newTimePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot %s: %w", name, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1)
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return nil
}

func (r *PlotRenderer) Snapshot(title string, lines []NamedSeries) ([]byte, error) {
	if len(lines) == 0 || len(lines[0].Returns) == 0 {
		return nil, fmt.Errorf("snapshot %q: no data to plot", title)
	}

	cum := newTimePlot(title, "Cumulative Return (%)")
	cum.Legend.Top = true
	cum.Legend.Left = true
	for i, l := range lines {
		c := color.Color(strategyColor)
		if i > 0 {
			c = benchmarkColor
		}
		if err := addLine(cum, l.Name, xys(l.Dates, Cumulative(l.Returns)), c); err != nil {
			return nil, err
		}
	}

	primary := lines[0]
	dd := newTimePlot("Drawdown", "Drawdown (%)")
	if err := addLine(dd, "", xys(primary.Dates, DrawdownSeries(primary.Returns)), drawdownColor); err != nil {
		return nil, err
	}

	daily := newTimePlot("Daily Returns", "Return (%)")
	if err := addLine(daily, "", xys(primary.Dates, primary.Returns), strategyColor); err != nil {
		return nil, err
	}

	plots := [][]*plot.Plot{{cum}, {dd}, {daily}}
	img := vgimg.New(r.Width, r.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 3, Cols: 1, PadY: vg.Millimeter * 4, PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	return encodePNG(img)
}

func (r *PlotRenderer) YearlyReturns(title, strategy, benchmark string, yearly []models.YearlyReturn) ([]byte, error) {
	if len(yearly) == 0 {
		return nil, fmt.Errorf("yearly returns %q: no data to plot", title)
	}

	strat := make(plotter.Values, len(yearly))
	bench := make(plotter.Values, len(yearly))
	labels := make([]string, len(yearly))
	hasBench := false
	for i, y := range yearly {
		strat[i] = y.Strategy * 100
		if y.Benchmark != nil {
			bench[i] = *y.Benchmark * 100
			hasBench = true
		}
		labels[i] = strconv.Itoa(y.Year)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Return (%)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	width := vg.Points(8)
	sb, err := plotter.NewBarChart(strat, width)
	if err != nil {
		return nil, fmt.Errorf("plot %s: %w", strategy, err)
	}
	sb.Color = strategyColor
	sb.LineStyle.Width = 0
	p.Add(sb)
	p.Legend.Add(strategy, sb)

	if hasBench {
		sb.Offset = -width / 2
		bb, err := plotter.NewBarChart(bench, width)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", benchmark, err)
		}
		bb.Color = benchmarkColor
		bb.LineStyle.Width = 0
		bb.Offset = width / 2
		p.Add(bb)
		p.Legend.Add(benchmark, bb)
	}
	p.NominalX(labels...)

	img := vgimg.New(r.Width, r.Height/2)
	p.Draw(draw.New(img))
	return encodePNG(img)
}

func encodePNG(img *vgimg.Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
