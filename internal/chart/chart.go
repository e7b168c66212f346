// Package chart renders dashboard series as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"slices"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	Width  = 800
	Height = 320

	titleX       = 60
	plotWidth    = Width - 100
	xLabelLayout = "01-02 15:04"
)

// NoDataText is drawn on charts with nothing to plot.
const NoDataText = "No data available"

var (
	background = color.RGBA{255, 255, 255, 255}
	axisColor  = color.RGBA{120, 120, 120, 255}
	textColor  = color.RGBA{40, 40, 40, 255}

	// Palette colours series in order.
	Palette = []drawing.Color{
		{R: 136, G: 132, B: 216, A: 255},
		{R: 130, G: 202, B: 157, A: 255},
		{R: 255, G: 198, B: 88, A: 255},
		{R: 255, G: 128, B: 66, A: 255},
		{R: 0, G: 136, B: 254, A: 255},
		{R: 0, G: 196, B: 159, A: 255},
		{R: 255, G: 187, B: 40, A: 255},
	}

	chartPadding = gochart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10}
)

type Point struct {
	T time.Time
	V float64
}

// Series is one plotted line.
type Series struct {
	Name   string
	Points []Point
}

// LineChart describes a time series chart.
type LineChart struct {
	Title  string
	Unit   string
	Series []Series
}

// Bar is one category of a bar chart.
type Bar struct {
	Label string
	Value float64
}

func (c LineChart) empty() bool {
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// RenderLine draws c as a PNG. Points need not be sorted.
func RenderLine(c LineChart) ([]byte, error) {
	if c.empty() {
		return RenderPlaceholder(c.Title)
	}

	tMin, tMax, vMin, vMax := bounds(c.Series)
	if !tMax.After(tMin) {
		tMin, tMax = tMin.Add(-time.Hour), tMax.Add(time.Hour)
	}

	graph := gochart.Chart{
		Title:      c.Title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: chartPadding},
		XAxis: gochart.XAxis{
			ValueFormatter: timeTick(tMin.Location()),
			Range: &gochart.ContinuousRange{
				Min: gochart.TimeToFloat64(tMin),
				Max: gochart.TimeToFloat64(tMax),
			},
		},
		YAxis: gochart.YAxis{
			Name:           c.Unit,
			ValueFormatter: valueTick,
			Range:          &gochart.ContinuousRange{Min: vMin, Max: vMax},
		},
	}

	for i, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		col := Palette[i%len(Palette)]
		ts := gochart.TimeSeries{
			Name: s.Name,
			Style: gochart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    2,
			},
		}
		for _, p := range sortedPoints(s.Points) {
			ts.XValues = append(ts.XValues, p.T)
			ts.YValues = append(ts.YValues, p.V)
		}
		graph.Series = append(graph.Series, ts)
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

// RenderBars draws a vertical bar chart of values.
func RenderBars(title, unit string, bars []Bar) ([]byte, error) {
	if len(bars) == 0 {
		return RenderPlaceholder(title)
	}

	vMax := 0.0
	for _, b := range bars {
		vMax = math.Max(vMax, b.Value)
	}
	if vMax == 0 {
		vMax = 1
	}

	slot := max(plotWidth/len(bars), 2)
	barW := max(slot*2/3, 1)

	values := make([]gochart.Value, 0, len(bars))
	for i, b := range bars {
		col := Palette[i%len(Palette)]
		values = append(values, gochart.Value{
			Label: fitLabel(b.Label, slot),
			Value: b.Value,
			Style: gochart.Style{FillColor: col, StrokeColor: col},
		})
	}

	graph := gochart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: chartPadding},
		BarWidth:   barW,
		BarSpacing: max(slot-barW, 1),
		YAxis: gochart.YAxis{
			Name:           unit,
			ValueFormatter: valueTick,
			Range:          &gochart.ContinuousRange{Min: 0, Max: vMax},
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", title, err)
	}
	return buf.Bytes(), nil
}

// RenderPlaceholder draws an empty chart frame with the no-data message.
func RenderPlaceholder(title string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fillRect(img, img.Bounds(), background)
	if title != "" {
		drawText(img, title, titleX, 20, textColor)
	}
	x := (Width - textWidth(NoDataText)) / 2
	drawText(img, NoDataText, x, Height/2, axisColor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func bounds(series []Series) (tMin, tMax time.Time, vMin, vMax float64) {
	vMin, vMax = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s.Points {
			if tMin.IsZero() || p.T.Before(tMin) {
				tMin = p.T
			}
			if p.T.After(tMax) {
				tMax = p.T
			}
			vMin = math.Min(vMin, p.V)
			vMax = math.Max(vMax, p.V)
		}
	}
	if vMax == vMin {
		vMin--
		vMax++
	}
	pad := (vMax - vMin) * 0.05
	return tMin, tMax, vMin - pad, vMax + pad
}

func sortedPoints(pts []Point) []Point {
	out := slices.Clone(pts)
	slices.SortStableFunc(out, func(a, b Point) int { return a.T.Compare(b.T) })
	return out
}

// timeTick labels x axis ticks in loc, the zone the plotted points carry.
func timeTick(loc *time.Location) gochart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		return time.Unix(0, int64(f)).In(loc).Format(xLabelLayout)
	}
}

func valueTick(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return formatTick(f)
}

func formatTick(v float64) string {
	if math.Abs(v) >= 100 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func fitLabel(s string, width int) string {
	r := []rune(s)
	for len(r) > 1 && textWidth(string(r)) > width {
		r = r[:len(r)-1]
	}
	return string(r)
}
