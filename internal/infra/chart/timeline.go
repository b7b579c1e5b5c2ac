package chart

import (
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/pkg/util"
)

const (
	defaultWidth  = 900
	defaultHeight = 420
)

var phaseColors = map[string]drawing.Color{
	"red":    {R: 220, G: 38, B: 38, A: 255},
	"blue":   {R: 37, G: 99, B: 235, A: 255},
	"green":  {R: 22, G: 163, B: 74, A: 255},
	"orange": {R: 234, G: 88, B: 12, A: 255},
}

// Renderer draws cycle timelines as PNG line charts.
type Renderer struct {
	width  int
	height int
}

// NewRenderer builds a renderer; non-positive sizes use 900x420.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{width: width, height: height}
}

// RenderPNG writes the timeline chart: x is the date, y the cycle day, one
// series per phase.
func (r *Renderer) RenderPNG(w io.Writer, tl cycle.Timeline) error {
	if len(tl.Segments) == 0 {
		return fmt.Errorf("timeline has no segments")
	}
	series := make([]gochart.Series, 0, len(tl.Segments))
	for _, seg := range tl.Segments {
		series = append(series, gochart.TimeSeries{
			Name:    string(seg.Phase),
			XValues: []time.Time{seg.Start.Time, seg.End.Time},
			YValues: []float64{float64(seg.StartDay), float64(seg.EndDay)},
			Style:   segmentStyle(seg.Color),
		})
	}

	graph := gochart.Chart{
		Title:      "Cycle Timeline by Date",
		Width:      r.width,
		Height:     r.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "Date", ValueFormatter: formatDate},
		YAxis:      gochart.YAxis{Name: "Cycle Day"},
		Series:     series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render timeline chart: %w", err)
	}
	return nil
}

func segmentStyle(name string) gochart.Style {
	col, ok := phaseColors[name]
	if !ok {
		col = drawing.Color{R: 100, G: 100, B: 100, A: 255}
	}
	return gochart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    5,
	}
}

// formatDate drops the hour from tick labels. go-chart hands time values to
// formatters as UnixNano floats.
func formatDate(v interface{}) string {
	switch typed := v.(type) {
	case time.Time:
		return typed.UTC().Format(util.DateLayout)
	case float64:
		return time.Unix(0, int64(typed)).UTC().Format(util.DateLayout)
	case int64:
		return time.Unix(0, typed).UTC().Format(util.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}
