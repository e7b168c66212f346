package models

import (
	"net/url"
	"time"
)

// Observation is one hourly measurement row from the fact table. The joined
// dimension records are optional and must be presence-checked.
type Observation struct {
	ID           int64   `json:"id_observation_horaire"`
	LocationID   int64   `json:"id_dim_lieu_fk"`
	TimeID       int64   `json:"id_dim_temps_fk"`
	ConditionID  int64   `json:"id_dim_condition_fk"`
	TemperatureC float64 `json:"temperature_celsius"`
	WindKph      float64 `json:"vent_kph"`
	WindDegree   int     `json:"vent_degre"`
	WindDir      string  `json:"direction_vent"`
	PressureMb   float64 `json:"pression_millibars"`
	PrecipMM     float64 `json:"precipitation_mm"`
	HumidityPct  float64 `json:"humidite_pourcentage"`
	CloudPct     float64 `json:"nuages_pourcentage"`
	VisibilityKm float64 `json:"visibilite_km"`
	UVIndex      float64 `json:"indice_uv"`
	GustKph      float64 `json:"rafales_kph"`

	Location  *Location      `json:"lieu,omitempty"`
	Time      *TimeDimension `json:"temps,omitempty"`
	Condition *Condition     `json:"condition,omitempty"`
}

type Location struct {
	ID      int64  `json:"id_dim_lieu"`
	City    string `json:"nom_ville"`
	Region  string `json:"region,omitempty"`
	Country string `json:"pays"`
}

// TimeDimension holds pre-decomposed calendar fields for an observation.
type TimeDimension struct {
	ID        int64  `json:"id_dim_temps"`
	Date      string `json:"date"` // YYYY-MM-DD
	Year      int    `json:"annee"`
	Month     int    `json:"mois"`
	Day       int    `json:"jour"`
	Hour      int    `json:"heure"`
	Minute    int    `json:"minute"`
	Weekday   string `json:"jour_semaine"`
	MonthName string `json:"nom_mois"`
}

// NewTimeDimension decomposes t into a time dimension row.
func NewTimeDimension(t time.Time) TimeDimension {
	return TimeDimension{
		Date:      t.Format(DateLayout),
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Weekday:   t.Weekday().String(),
		MonthName: t.Month().String(),
	}
}

type Condition struct {
	ID   int64  `json:"id_dim_condition"`
	Code int    `json:"code_condition"`
	Text string `json:"texte_condition"`
}

// DateLayout is the calendar date format used by filters and the time dimension.
const DateLayout = "2006-01-02"

// TimeRange is a relative window token interpreted by the fetch layer.
type TimeRange string

const (
	RangeCustom TimeRange = ""
	Range1Day   TimeRange = "1d"
	Range7Days  TimeRange = "7d"
	Range30Days TimeRange = "30d"
	Range90Days TimeRange = "90d"
)

// TimeRanges lists the selectable tokens in display order.
var TimeRanges = []TimeRange{RangeCustom, Range1Day, Range7Days, Range30Days, Range90Days}

// Duration returns the window a token covers, or zero for custom/unknown tokens.
func (r TimeRange) Duration() time.Duration {
	switch r {
	case Range1Day:
		return 24 * time.Hour
	case Range7Days:
		return 7 * 24 * time.Hour
	case Range30Days:
		return 30 * 24 * time.Hour
	case Range90Days:
		return 90 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether r is one of the known tokens (including custom).
func (r TimeRange) Valid() bool {
	for _, known := range TimeRanges {
		if r == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable name shown in the range selector.
func (r TimeRange) Label() string {
	switch r {
	case Range1Day:
		return "Last 24 Hours"
	case Range7Days:
		return "Last 7 Days"
	case Range30Days:
		return "Last 30 Days"
	case Range90Days:
		return "Last 90 Days"
	default:
		return "Custom Range"
	}
}

// FilterCriteria selects which observations the fetch layer returns.
// Empty fields are unset. No cross-field validation is applied.
type FilterCriteria struct {
	Location  string    `json:"location,omitempty"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	TimeRange TimeRange `json:"timeRange,omitempty"`
}

// DefaultFilters is the criteria a fresh dashboard starts with.
func DefaultFilters() FilterCriteria {
	return FilterCriteria{TimeRange: Range7Days}
}

// Query encodes the criteria as URL query parameters, omitting unset fields.
func (c FilterCriteria) Query() url.Values {
	v := url.Values{}
	if c.Location != "" {
		v.Set("location", c.Location)
	}
	if c.StartDate != "" {
		v.Set("startDate", c.StartDate)
	}
	if c.EndDate != "" {
		v.Set("endDate", c.EndDate)
	}
	if c.TimeRange != RangeCustom {
		v.Set("timeRange", string(c.TimeRange))
	}
	return v
}

// FilterCriteriaFromQuery is the inverse of Query.
func FilterCriteriaFromQuery(v url.Values) FilterCriteria {
	return FilterCriteria{
		Location:  v.Get("location"),
		StartDate: v.Get("startDate"),
		EndDate:   v.Get("endDate"),
		TimeRange: TimeRange(v.Get("timeRange")),
	}
}
