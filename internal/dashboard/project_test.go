package dashboard

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/lox/meteodash/internal/models"
)

var fixedNow = time.Date(2024, time.March, 1, 9, 15, 0, 0, time.UTC)

func obsAt(date string, hour, minute int, city string) models.Observation {
	o := models.Observation{
		Time: &models.TimeDimension{Date: date, Hour: hour, Minute: minute},
	}
	if city != "" {
		o.Location = &models.Location{City: city}
	}
	return o
}

func TestProject_LagosScenario(t *testing.T) {
	raw := `[{"temps":{"date":"2024-01-15","heure":14,"minute":30},"temperature_celsius":28.5,"lieu":{"nom_ville":"Lagos"}}]`
	var obs []models.Observation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	s := Project(obs, fixedNow)

	want := []TemperaturePoint{{Date: "2024-01-15T14:30:00", Temperature: 28.5, Location: "Lagos"}}
	if !reflect.DeepEqual(s.Temperature, want) {
		t.Errorf("Temperature = %+v, want %+v", s.Temperature, want)
	}
}

func TestProject_SortsAscending(t *testing.T) {
	obs := []models.Observation{
		obsAt("2024-01-16", 0, 0, "Dakar"),
		obsAt("2024-01-15", 0, 0, "Dakar"),
	}

	s := Project(obs, fixedNow)

	got := []string{s.Temperature[0].Date, s.Temperature[1].Date}
	want := []string{"2024-01-15T00:00:00", "2024-01-16T00:00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}
	if s.Wind[0].Date != want[0] || s.Humidity[0].Date != want[0] || s.Precipitation[0].Date != want[0] {
		t.Error("every primary series should be sorted independently")
	}
}

func TestProject_Empty(t *testing.T) {
	s := Project(nil, fixedNow)

	if s.Temperature == nil || len(s.Temperature) != 0 {
		t.Errorf("Temperature = %v, want empty non-nil", s.Temperature)
	}
	if len(s.Precipitation) != 0 || len(s.Wind) != 0 || len(s.Humidity) != 0 || len(s.Pressure) != 0 {
		t.Error("expected all series empty")
	}
	if len(s.Conditions) != 0 || len(s.Shares) != 0 {
		t.Errorf("Conditions = %v, want empty", s.Conditions)
	}
	if !s.Empty() {
		t.Error("Empty() = false for empty projection")
	}
}

func TestProject_DefaultsUnknown(t *testing.T) {
	obs := []models.Observation{
		{Time: &models.TimeDimension{Date: "2024-01-15", Hour: 3}},
		{Time: &models.TimeDimension{Date: "2024-01-15", Hour: 4}, Location: &models.Location{City: ""}},
	}

	s := Project(obs, fixedNow)

	for i := range obs {
		if s.Temperature[i].Location != UnknownLabel {
			t.Errorf("Temperature[%d].Location = %q", i, s.Temperature[i].Location)
		}
		if s.Precipitation[i].Location != UnknownLabel {
			t.Errorf("Precipitation[%d].Location = %q", i, s.Precipitation[i].Location)
		}
		if s.Wind[i].Location != UnknownLabel {
			t.Errorf("Wind[%d].Location = %q", i, s.Wind[i].Location)
		}
		if s.Humidity[i].Location != UnknownLabel {
			t.Errorf("Humidity[%d].Location = %q", i, s.Humidity[i].Location)
		}
	}
	if s.Conditions[UnknownLabel] != 2 {
		t.Errorf("Conditions[Unknown] = %d, want 2", s.Conditions[UnknownLabel])
	}
}

func TestProject_MissingTimeDimension(t *testing.T) {
	obs := []models.Observation{{PressureMb: 1012}}

	s := Project(obs, fixedNow)

	if s.Temperature[0].Date != "T00:00:00" {
		t.Errorf("Date = %q, want T00:00:00", s.Temperature[0].Date)
	}
	if s.Pressure[0].Date != "2024-03-01T09:15:00.000Z" {
		t.Errorf("Pressure date = %q, want now", s.Pressure[0].Date)
	}
}

func TestProject_PressureUsesRawDateAndInputOrder(t *testing.T) {
	obs := []models.Observation{
		{Time: &models.TimeDimension{Date: "2024-01-16", Hour: 5}, PressureMb: 1010},
		{Time: &models.TimeDimension{Date: "2024-01-15", Hour: 7}, PressureMb: 1008},
	}

	s := Project(obs, fixedNow)

	want := []PressurePoint{{Date: "2024-01-16", Pressure: 1010}, {Date: "2024-01-15", Pressure: 1008}}
	if !reflect.DeepEqual(s.Pressure, want) {
		t.Errorf("Pressure = %+v, want %+v", s.Pressure, want)
	}
}

func TestProject_InvalidTimestampsSortLast(t *testing.T) {
	obs := []models.Observation{
		{TemperatureC: 1},
		obsAt("2024-01-15", 10, 0, "A"),
		{TemperatureC: 2, Time: &models.TimeDimension{Date: "15/01/2024"}},
		obsAt("2024-01-14", 10, 0, "B"),
	}

	s := Project(obs, fixedNow)

	var got []string
	for _, p := range s.Temperature {
		got = append(got, p.Date)
	}
	want := []string{"2024-01-14T10:00:00", "2024-01-15T10:00:00", "T00:00:00", "15/01/2024T00:00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestProject_StableTies(t *testing.T) {
	obs := []models.Observation{
		obsAt("2024-01-15", 12, 0, "First"),
		obsAt("2024-01-14", 12, 0, "Earlier"),
		obsAt("2024-01-15", 12, 0, "Second"),
		obsAt("2024-01-15", 12, 0, "Third"),
	}

	s := Project(obs, fixedNow)

	var got []string
	for _, p := range s.Temperature {
		got = append(got, p.Location)
	}
	want := []string{"Earlier", "First", "Second", "Third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("locations = %v, want %v", got, want)
	}
}

func TestProject_Properties(t *testing.T) {
	var obs []models.Observation
	for i := 0; i < 50; i++ {
		day := 1 + (i*7)%28
		o := obsAt(fmt.Sprintf("2024-02-%02d", day), (i*5)%24, (i*13)%60, "City")
		o.TemperatureC = float64(i)
		if i%9 == 0 {
			o.Time = nil
		}
		obs = append(obs, o)
	}

	s := Project(obs, fixedNow)

	lengths := map[string]int{
		"temperature":   len(s.Temperature),
		"precipitation": len(s.Precipitation),
		"wind":          len(s.Wind),
		"humidity":      len(s.Humidity),
	}
	for name, n := range lengths {
		if n != len(obs) {
			t.Errorf("len(%s) = %d, want %d", name, n, len(obs))
		}
	}

	for i := 1; i < len(s.Temperature); i++ {
		if compareTimestamps(s.Temperature[i-1].Date, s.Temperature[i].Date) > 0 {
			t.Fatalf("temperature not sorted at %d: %s > %s", i, s.Temperature[i-1].Date, s.Temperature[i].Date)
		}
	}

	again := Project(obs, fixedNow)
	if !reflect.DeepEqual(s, again) {
		t.Error("projecting twice gave different results")
	}
}

func TestProject_ConditionShares(t *testing.T) {
	cond := func(text string) models.Observation {
		return models.Observation{Condition: &models.Condition{Text: text}}
	}
	obs := []models.Observation{cond("Sunny"), cond("Partly cloudy"), cond("Sunny"), {}}

	s := Project(obs, fixedNow)

	want := map[string]int{"Sunny": 2, "Partly cloudy": 1, UnknownLabel: 1}
	if !reflect.DeepEqual(s.Conditions, want) {
		t.Errorf("Conditions = %v, want %v", s.Conditions, want)
	}
	wantShares := []ConditionShare{
		{Name: "Sunny", Value: 2, Percent: 50},
		{Name: "Partly cloudy", Value: 1, Percent: 25},
		{Name: UnknownLabel, Value: 1, Percent: 25},
	}
	if !reflect.DeepEqual(s.Shares, wantShares) {
		t.Errorf("Shares = %+v, want %+v", s.Shares, wantShares)
	}
}

func TestTimestamp_PadsHourAndMinute(t *testing.T) {
	tests := []struct {
		td   *models.TimeDimension
		want string
	}{
		{&models.TimeDimension{Date: "2024-01-15", Hour: 3, Minute: 5}, "2024-01-15T03:05:00"},
		{&models.TimeDimension{Date: "2024-01-15", Hour: 23, Minute: 59}, "2024-01-15T23:59:00"},
		{nil, "T00:00:00"},
	}
	for _, tt := range tests {
		if got := Timestamp(models.Observation{Time: tt.td}); got != tt.want {
			t.Errorf("Timestamp(%+v) = %q, want %q", tt.td, got, tt.want)
		}
	}
}
