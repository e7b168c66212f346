package dashboard

import (
	"time"

	"github.com/lox/meteodash/internal/models"
)

// User-visible fetch failure messages.
const (
	MsgLocationsFailed    = "Failed to load locations"
	MsgObservationsFailed = "Failed to load weather data"
)

// State is the dashboard's owned state record. Transitions return a new
// value and never mutate the receiver's slices.
type State struct {
	Filters      models.FilterCriteria
	Observations []models.Observation
	Locations    []string
	Loading      bool
	Error        string

	// seq is the id of the most recently issued observation request.
	seq uint64
}

// NewState returns the state a freshly mounted dashboard starts from.
func NewState() State {
	return State{
		Filters:      models.DefaultFilters(),
		Observations: []models.Observation{},
		Locations:    []string{},
		Loading:      true,
	}
}

// WithFilters replaces the criteria wholesale. Callers merge unchanged
// fields themselves.
func (s State) WithFilters(c models.FilterCriteria) State {
	s.Filters = c
	return s
}

// BeginObservations marks a new observation request in flight and returns
// its sequence number.
func (s State) BeginObservations() (State, uint64) {
	s.seq++
	s.Loading = true
	s.Error = ""
	return s, s.seq
}

// Current reports whether seq is the latest issued observation request.
func (s State) Current(seq uint64) bool {
	return seq == s.seq
}

// ApplyObservations stores a successful response. Responses superseded by a
// newer request are discarded.
func (s State) ApplyObservations(seq uint64, obs []models.Observation) State {
	if !s.Current(seq) {
		return s
	}
	if obs == nil {
		obs = []models.Observation{}
	}
	s.Observations = obs
	s.Loading = false
	return s
}

// FailObservations records a failed response and blanks the data.
func (s State) FailObservations(seq uint64) State {
	if !s.Current(seq) {
		return s
	}
	s.Observations = []models.Observation{}
	s.Loading = false
	s.Error = MsgObservationsFailed
	return s
}

func (s State) ApplyLocations(names []string) State {
	if names == nil {
		names = []string{}
	}
	s.Locations = names
	return s
}

// FailLocations keeps an empty location list; the rest of the dashboard
// remains usable.
func (s State) FailLocations() State {
	s.Locations = []string{}
	s.Error = MsgLocationsFailed
	return s
}

// View is what the presentation layer consumes.
type View struct {
	Filters   models.FilterCriteria `json:"filters"`
	Locations []string              `json:"locations"`
	Loading   bool                  `json:"loading"`
	Error     string                `json:"error,omitempty"`
	Series    Series                `json:"series"`
}

// View projects the current observations. now feeds the pressure fallback.
func (s State) View(now time.Time) View {
	return View{
		Filters:   s.Filters,
		Locations: s.Locations,
		Loading:   s.Loading,
		Error:     s.Error,
		Series:    Project(s.Observations, now),
	}
}
