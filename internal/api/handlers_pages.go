package api

import (
	"log"
	"net/http"
	"net/url"

	"github.com/lox/meteodash/internal/dashboard"
	"github.com/lox/meteodash/internal/models"
)

type rangeOption struct {
	Value    string
	Label    string
	Selected bool
}

type locationOption struct {
	Name     string
	Selected bool
}

// DashboardPage is the view model of the HTML dashboard.
type DashboardPage struct {
	dashboard.View
	LocationOptions []locationOption
	RangeOptions    []rangeOption
	Query           url.Values
	Charts          []string
	Observations    int
	ETLStatus       string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	criteria := models.DefaultFilters()
	if r.URL.RawQuery != "" {
		c, err := parseCriteria(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		criteria = c
	}

	page := s.buildDashboardPage(criteria)
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", page); err != nil {
		log.Printf("template error: %v", err)
	}
}

// buildDashboardPage runs the dashboard state transitions synchronously
// against the store.
func (s *Server) buildDashboardPage(criteria models.FilterCriteria) DashboardPage {
	state, seq := dashboard.NewState().WithFilters(criteria).BeginObservations()

	obs, err := s.store.QueryObservations(s.observationQuery(criteria))
	if err != nil {
		log.Printf("api: dashboard observations: %v", err)
		state = state.FailObservations(seq)
	} else {
		state = state.ApplyObservations(seq, obs)
	}

	names, err := s.store.ListLocations()
	if err != nil {
		log.Printf("api: dashboard locations: %v", err)
		state = state.FailLocations()
	} else {
		state = state.ApplyLocations(names)
	}

	page := DashboardPage{
		View:         state.View(s.now()),
		Query:        criteria.Query(),
		Charts:       chartKinds,
		Observations: len(state.Observations),
		ETLStatus:    "unavailable",
	}
	if s.runner != nil {
		page.ETLStatus = s.runner.Status()
	}
	for _, name := range page.Locations {
		page.LocationOptions = append(page.LocationOptions, locationOption{Name: name, Selected: name == criteria.Location})
	}
	for _, tr := range models.TimeRanges {
		page.RangeOptions = append(page.RangeOptions, rangeOption{
			Value:    string(tr),
			Label:    tr.Label(),
			Selected: tr == criteria.TimeRange,
		})
	}
	return page
}
