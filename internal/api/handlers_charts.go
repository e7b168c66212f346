package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lox/meteodash/internal/chart"
	"github.com/lox/meteodash/internal/dashboard"
	"github.com/lox/meteodash/internal/models"
)

// Chart kinds served under /charts/{kind}.png.
var chartKinds = []string{"temperature", "precipitation", "wind", "humidity", "pressure", "conditions"}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/charts/")
	kind, ok := strings.CutSuffix(name, ".png")
	if !ok || !knownChart(kind) {
		http.NotFound(w, r)
		return
	}
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := kind + "?" + c.Query().Encode()
	if data, ok := s.charts.Get(key); ok {
		servePNG(w, data)
		return
	}

	obs, err := s.store.QueryObservations(s.observationQuery(c))
	if err != nil {
		log.Printf("api: query observations for %s chart: %v", kind, err)
		http.Error(w, "failed to load weather data", http.StatusInternalServerError)
		return
	}

	data, err := renderChart(kind, dashboard.Project(obs, s.now()))
	if err != nil {
		log.Printf("api: render %s chart: %v", kind, err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	s.charts.Set(key, data)
	servePNG(w, data)
}

func servePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

func knownChart(kind string) bool {
	for _, k := range chartKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func renderChart(kind string, series dashboard.Series) ([]byte, error) {
	switch kind {
	case "temperature":
		g := newGrouper()
		for _, p := range series.Temperature {
			g.add(p.Location, p.Date, p.Temperature)
		}
		return chart.RenderLine(chart.LineChart{Title: "Temperature", Unit: "C", Series: g.series()})
	case "precipitation":
		g := newGrouper()
		for _, p := range series.Precipitation {
			g.add(p.Location, p.Date, p.Precipitation)
		}
		return chart.RenderLine(chart.LineChart{Title: "Precipitation", Unit: "mm", Series: g.series()})
	case "wind":
		g := newGrouper()
		for _, p := range series.Wind {
			g.add(p.Location, p.Date, p.WindSpeed)
		}
		return chart.RenderLine(chart.LineChart{Title: "Wind speed", Unit: "km/h", Series: g.series()})
	case "humidity":
		g := newGrouper()
		for _, p := range series.Humidity {
			g.add(p.Location, p.Date, p.Humidity)
		}
		return chart.RenderLine(chart.LineChart{Title: "Humidity", Unit: "%", Series: g.series()})
	case "pressure":
		g := newGrouper()
		for _, p := range series.Pressure {
			g.add("", p.Date, p.Pressure)
		}
		return chart.RenderLine(chart.LineChart{Title: "Pressure", Unit: "mb", Series: g.series()})
	default:
		bars := make([]chart.Bar, 0, len(series.Shares))
		for _, sh := range series.Shares {
			bars = append(bars, chart.Bar{Label: sh.Name, Value: sh.Percent})
		}
		return chart.RenderBars("Weather conditions", "%", bars)
	}
}

// grouper splits points into one chart series per location, in first-seen
// order. Points whose date cannot be placed on a time axis are left out.
type grouper struct {
	order  []string
	points map[string][]chart.Point
}

func newGrouper() *grouper {
	return &grouper{points: make(map[string][]chart.Point)}
}

func (g *grouper) add(name, date string, v float64) {
	t, ok := parseChartDate(date)
	if !ok {
		return
	}
	if _, seen := g.points[name]; !seen {
		g.order = append(g.order, name)
	}
	g.points[name] = append(g.points[name], chart.Point{T: t, V: v})
}

func (g *grouper) series() []chart.Series {
	out := make([]chart.Series, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, chart.Series{Name: name, Points: g.points[name]})
	}
	return out
}

func parseChartDate(s string) (time.Time, bool) {
	if t, ok := dashboard.ParseTimestamp(s); ok {
		return t, true
	}
	for _, layout := range []string{models.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
