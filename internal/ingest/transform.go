package ingest

import (
	"fmt"
	"time"

	"github.com/lox/meteodash/internal/models"
)

// LastUpdatedLayout is the local timestamp format of current.last_updated.
const LastUpdatedLayout = "2006-01-02 15:04"

// Record is a transformed API response ready for the warehouse. The
// dimension keys on Observation are filled in at load time. Time is the
// city's local wall clock; ObservedAt is the same instant in UTC, zero when
// it cannot be determined.
type Record struct {
	Location    models.Location
	Condition   models.Condition
	Time        models.TimeDimension
	ObservedAt  time.Time
	Observation models.Observation
	Flags       []string
}

// Transform maps a current conditions response onto the warehouse model.
func Transform(resp *CurrentResponse) (*Record, error) {
	observedAt, err := time.Parse(LastUpdatedLayout, resp.Current.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("parse last_updated %q: %w", resp.Current.LastUpdated, err)
	}

	c := resp.Current
	rec := &Record{
		Location: models.Location{
			City:    resp.Location.Name,
			Region:  resp.Location.Region,
			Country: resp.Location.Country,
		},
		Condition: models.Condition{
			Code: c.Condition.Code,
			Text: c.Condition.Text,
		},
		Time:       models.NewTimeDimension(observedAt),
		ObservedAt: observedUTC(resp),
		Observation: models.Observation{
			TemperatureC: c.TempC,
			WindKph:      c.WindKph,
			WindDegree:   c.WindDegree,
			WindDir:      c.WindDir,
			PressureMb:   c.PressureMb,
			PrecipMM:     c.PrecipMm,
			HumidityPct:  c.Humidity,
			CloudPct:     c.Cloud,
			VisibilityKm: c.VisKm,
			UVIndex:      c.UV,
			GustKph:      c.GustKph,
		},
	}
	rec.Flags = ValidateObservation(&rec.Observation)
	return rec, nil
}

func observedUTC(resp *CurrentResponse) time.Time {
	if resp.Current.LastUpdatedEpoch > 0 {
		return time.Unix(resp.Current.LastUpdatedEpoch, 0).UTC()
	}
	if resp.Location.TzID == "" {
		return time.Time{}
	}
	loc, err := time.LoadLocation(resp.Location.TzID)
	if err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(LastUpdatedLayout, resp.Current.LastUpdated, loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
