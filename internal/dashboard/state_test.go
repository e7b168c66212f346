package dashboard

import (
	"testing"

	"github.com/lox/meteodash/internal/models"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if !s.Loading {
		t.Error("new state should be loading")
	}
	if s.Filters.TimeRange != models.Range7Days {
		t.Errorf("TimeRange = %q, want 7d", s.Filters.TimeRange)
	}
}

func TestState_WithFiltersReplacesWholesale(t *testing.T) {
	s := NewState().WithFilters(models.FilterCriteria{Location: "Lome", StartDate: "2024-02-10", EndDate: "2024-02-01"})

	if s.Filters.TimeRange != models.RangeCustom {
		t.Errorf("TimeRange = %q, want unset after replace", s.Filters.TimeRange)
	}
	if s.Filters.StartDate != "2024-02-10" || s.Filters.EndDate != "2024-02-01" {
		t.Error("inverted date bounds should be accepted as-is")
	}
}

func TestState_ObservationLifecycle(t *testing.T) {
	s := NewState()
	s.Error = MsgLocationsFailed

	s, seq := s.BeginObservations()
	if !s.Loading || s.Error != "" {
		t.Fatalf("BeginObservations: loading=%v error=%q", s.Loading, s.Error)
	}

	obs := []models.Observation{{ID: 1}}
	s = s.ApplyObservations(seq, obs)
	if s.Loading {
		t.Error("loading should end after apply")
	}
	if len(s.Observations) != 1 {
		t.Errorf("len(Observations) = %d, want 1", len(s.Observations))
	}
}

func TestState_FailObservationsBlanksData(t *testing.T) {
	s, seq := NewState().BeginObservations()
	s = s.ApplyObservations(seq, []models.Observation{{ID: 1}})

	s, seq = s.BeginObservations()
	s = s.FailObservations(seq)

	if s.Loading {
		t.Error("loading should end after failure")
	}
	if s.Error != MsgObservationsFailed {
		t.Errorf("Error = %q, want %q", s.Error, MsgObservationsFailed)
	}
	if len(s.Observations) != 0 {
		t.Errorf("stale observations kept: %d", len(s.Observations))
	}
}

func TestState_StaleResponseDiscarded(t *testing.T) {
	s, first := NewState().BeginObservations()
	s, second := s.BeginObservations()

	s = s.ApplyObservations(second, []models.Observation{{ID: 2}})
	s = s.ApplyObservations(first, []models.Observation{{ID: 1}})

	if len(s.Observations) != 1 || s.Observations[0].ID != 2 {
		t.Errorf("Observations = %+v, want the newer response", s.Observations)
	}

	s = s.FailObservations(first)
	if s.Error != "" {
		t.Errorf("stale failure set error %q", s.Error)
	}
}

func TestState_FailLocations(t *testing.T) {
	s := NewState().ApplyLocations([]string{"Accra"}).FailLocations()
	if len(s.Locations) != 0 {
		t.Errorf("Locations = %v, want empty", s.Locations)
	}
	if s.Error != MsgLocationsFailed {
		t.Errorf("Error = %q", s.Error)
	}
}

func TestState_TransitionsDoNotMutateReceiver(t *testing.T) {
	s, seq := NewState().BeginObservations()
	before := s
	_ = s.ApplyObservations(seq, []models.Observation{{ID: 9}})

	if len(before.Observations) != 0 || !before.Loading {
		t.Error("ApplyObservations mutated its receiver")
	}
}

func TestState_View(t *testing.T) {
	s, seq := NewState().BeginObservations()
	s = s.ApplyObservations(seq, []models.Observation{obsAt("2024-01-15", 1, 0, "Niamey")})

	v := s.View(fixedNow)
	if v.Loading {
		t.Error("view should not be loading")
	}
	if len(v.Series.Temperature) != 1 || v.Series.Temperature[0].Location != "Niamey" {
		t.Errorf("Series.Temperature = %+v", v.Series.Temperature)
	}
}
