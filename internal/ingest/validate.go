package ingest

import (
	"encoding/json"

	"github.com/lox/meteodash/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagCloudInvalid       = "cloud_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagGustBelowWind      = "gust_below_wind"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagPrecipNegative     = "precip_negative"
	FlagVisibilityNegative = "visibility_negative"
	FlagUVNegative         = "uv_negative"
)

// ValidateObservation returns quality flags for implausible measurements.
// Flagged observations are still loaded.
func ValidateObservation(obs *models.Observation) []string {
	var flags []string

	if obs.TemperatureC < -10 || obs.TemperatureC > 55 {
		flags = append(flags, FlagTempOutOfRange)
	}
	if obs.HumidityPct < 0 || obs.HumidityPct > 100 {
		flags = append(flags, FlagHumidityInvalid)
	}
	if obs.CloudPct < 0 || obs.CloudPct > 100 {
		flags = append(flags, FlagCloudInvalid)
	}
	if obs.WindDegree < 0 || obs.WindDegree > 360 {
		flags = append(flags, FlagWindDirInvalid)
	}
	if obs.WindKph < 0 || obs.WindKph > 200 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}
	if obs.GustKph > 0 && obs.GustKph < obs.WindKph {
		flags = append(flags, FlagGustBelowWind)
	}
	if obs.PressureMb < 900 || obs.PressureMb > 1100 {
		flags = append(flags, FlagPressureOutOfRange)
	}
	if obs.PrecipMM < 0 {
		flags = append(flags, FlagPrecipNegative)
	}
	if obs.VisibilityKm < 0 {
		flags = append(flags, FlagVisibilityNegative)
	}
	if obs.UVIndex < 0 {
		flags = append(flags, FlagUVNegative)
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
