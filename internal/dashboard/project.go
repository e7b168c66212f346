package dashboard

import (
	"fmt"
	"slices"
	"time"

	"github.com/lox/meteodash/internal/models"
)

// UnknownLabel is used when a joined location or condition is missing.
const UnknownLabel = "Unknown"

// TimestampLayout is the layout of assembled series timestamps.
const TimestampLayout = "2006-01-02T15:04:05"

// pressureNowLayout matches an ISO-8601 UTC instant with milliseconds.
const pressureNowLayout = "2006-01-02T15:04:05.000Z"

type TemperaturePoint struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	Location    string  `json:"location"`
}

type PrecipitationPoint struct {
	Date          string  `json:"date"`
	Precipitation float64 `json:"precipitation"`
	Location      string  `json:"location"`
}

type WindPoint struct {
	Date          string  `json:"date"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection string  `json:"windDirection"`
	Gusts         float64 `json:"gusts"`
	Location      string  `json:"location"`
}

type HumidityPoint struct {
	Date     string  `json:"date"`
	Humidity float64 `json:"humidity"`
	Clouds   float64 `json:"clouds"`
	Location string  `json:"location"`
}

type PressurePoint struct {
	Date     string  `json:"date"`
	Pressure float64 `json:"pressure"`
}

// ConditionShare is one slice of the condition frequency breakdown.
type ConditionShare struct {
	Name    string  `json:"name"`
	Value   int     `json:"value"`
	Percent float64 `json:"percent"`
}

// Series is the chart-ready projection of an observation list.
type Series struct {
	Temperature   []TemperaturePoint   `json:"temperature"`
	Precipitation []PrecipitationPoint `json:"precipitation"`
	Wind          []WindPoint          `json:"wind"`
	Humidity      []HumidityPoint      `json:"humidity"`
	Pressure      []PressurePoint      `json:"pressure"`
	Conditions    map[string]int       `json:"conditions"`
	// Shares is Conditions in first-seen order with percentages of the total.
	Shares []ConditionShare `json:"shares"`
}

// Empty reports whether the projection holds no data.
func (s Series) Empty() bool {
	return len(s.Temperature) == 0 && len(s.Pressure) == 0 && len(s.Conditions) == 0
}

// Project reshapes observations into per-chart series. The four primary
// series are sorted ascending by timestamp with ties kept in input order.
// The pressure series keeps input order and uses the raw dimension date,
// falling back to now when the time dimension is missing.
func Project(obs []models.Observation, now time.Time) Series {
	s := Series{
		Temperature:   make([]TemperaturePoint, 0, len(obs)),
		Precipitation: make([]PrecipitationPoint, 0, len(obs)),
		Wind:          make([]WindPoint, 0, len(obs)),
		Humidity:      make([]HumidityPoint, 0, len(obs)),
		Pressure:      make([]PressurePoint, 0, len(obs)),
		Conditions:    make(map[string]int),
		Shares:        []ConditionShare{},
	}

	nowStr := now.UTC().Format(pressureNowLayout)
	var order []string

	for _, o := range obs {
		ts := Timestamp(o)
		loc := LocationName(o)

		s.Temperature = append(s.Temperature, TemperaturePoint{Date: ts, Temperature: o.TemperatureC, Location: loc})
		s.Precipitation = append(s.Precipitation, PrecipitationPoint{Date: ts, Precipitation: o.PrecipMM, Location: loc})
		s.Wind = append(s.Wind, WindPoint{Date: ts, WindSpeed: o.WindKph, WindDirection: o.WindDir, Gusts: o.GustKph, Location: loc})
		s.Humidity = append(s.Humidity, HumidityPoint{Date: ts, Humidity: o.HumidityPct, Clouds: o.CloudPct, Location: loc})

		pressureDate := nowStr
		if o.Time != nil && o.Time.Date != "" {
			pressureDate = o.Time.Date
		}
		s.Pressure = append(s.Pressure, PressurePoint{Date: pressureDate, Pressure: o.PressureMb})

		label := ConditionLabel(o)
		if _, seen := s.Conditions[label]; !seen {
			order = append(order, label)
		}
		s.Conditions[label]++
	}

	sortByTimestamp(s.Temperature, func(p TemperaturePoint) string { return p.Date })
	sortByTimestamp(s.Precipitation, func(p PrecipitationPoint) string { return p.Date })
	sortByTimestamp(s.Wind, func(p WindPoint) string { return p.Date })
	sortByTimestamp(s.Humidity, func(p HumidityPoint) string { return p.Date })

	for _, name := range order {
		n := s.Conditions[name]
		s.Shares = append(s.Shares, ConditionShare{
			Name:    name,
			Value:   n,
			Percent: 100 * float64(n) / float64(len(obs)),
		})
	}

	return s
}

// Timestamp assembles the display timestamp for an observation. A missing
// time dimension yields "T00:00:00".
func Timestamp(o models.Observation) string {
	var date string
	var hour, minute int
	if o.Time != nil {
		date, hour, minute = o.Time.Date, o.Time.Hour, o.Time.Minute
	}
	return fmt.Sprintf("%sT%02d:%02d:00", date, hour, minute)
}

// LocationName returns the joined city name or UnknownLabel.
func LocationName(o models.Observation) string {
	if o.Location == nil || o.Location.City == "" {
		return UnknownLabel
	}
	return o.Location.City
}

// ConditionLabel returns the joined condition text or UnknownLabel.
func ConditionLabel(o models.Observation) string {
	if o.Condition == nil || o.Condition.Text == "" {
		return UnknownLabel
	}
	return o.Condition.Text
}

// ParseTimestamp parses an assembled timestamp. ok is false for timestamps
// that cannot be parsed, such as the "T00:00:00" fallback.
func ParseTimestamp(ts string) (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// compareTimestamps orders valid timestamps chronologically and places
// invalid ones after every valid one.
func compareTimestamps(a, b string) int {
	ta, okA := ParseTimestamp(a)
	tb, okB := ParseTimestamp(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return ta.Compare(tb)
}

func sortByTimestamp[T any](points []T, date func(T) string) {
	slices.SortStableFunc(points, func(a, b T) int {
		return compareTimestamps(date(a), date(b))
	})
}
