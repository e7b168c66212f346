package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lox/meteodash/internal/models"
)

// datetimeKeyLayout is the natural key of a time dimension row.
const datetimeKeyLayout = "2006-01-02 15:04:05"

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New returns a store over db. loc is the zone relative time windows are
// resolved in, matching the local times the time dimension holds.
func New(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc}
}

// UpsertLocation inserts or refreshes a location and returns its surrogate key.
func (s *Store) UpsertLocation(l models.Location) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO dim_lieu (nom_ville, region, pays)
		VALUES (?, ?, ?)
		ON CONFLICT(nom_ville, region, pays) DO UPDATE SET nom_ville = excluded.nom_ville
		RETURNING id_dim_lieu
	`, l.City, l.Region, l.Country).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert location %s: %w", l.City, err)
	}
	return id, nil
}

// UpsertCondition inserts a condition or updates its label, keyed on code.
func (s *Store) UpsertCondition(c models.Condition) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO dim_condition (code_condition, texte_condition)
		VALUES (?, ?)
		ON CONFLICT(code_condition) DO UPDATE SET texte_condition = excluded.texte_condition
		RETURNING id_dim_condition
	`, c.Code, c.Text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert condition %d: %w", c.Code, err)
	}
	return id, nil
}

// UpsertTime inserts a time dimension row keyed on date, hour and minute.
func (s *Store) UpsertTime(t models.TimeDimension) (int64, error) {
	key := fmt.Sprintf("%s %02d:%02d:00", t.Date, t.Hour, t.Minute)
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO dim_temps (datetime_key, date, annee, mois, jour, heure, minute, jour_semaine, nom_mois)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(datetime_key) DO UPDATE SET date = excluded.date
		RETURNING id_dim_temps
	`, key, t.Date, t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Weekday, t.MonthName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert time %s: %w", key, err)
	}
	return id, nil
}

// FactRow is an observation ready for the fact table, with its load metadata.
// ObservedAt is the absolute observation time; the time dimension holds the
// city's local wall clock.
type FactRow struct {
	models.Observation
	ObservedAt   time.Time
	QualityFlags string
	RawPayloadID int64
}

// InsertObservation stores a fact row. A row for the same location and time
// already present is kept and the new one ignored. It reports whether a row
// was written.
func (s *Store) InsertObservation(r FactRow) (bool, error) {
	o := r.Observation
	res, err := s.db.Exec(`
		INSERT INTO fait_observation (
			id_dim_lieu_fk, id_dim_temps_fk, id_dim_condition_fk,
			temperature_celsius, vent_kph, vent_degre, direction_vent, pression_millibars,
			precipitation_mm, humidite_pourcentage, nuages_pourcentage, visibilite_km,
			indice_uv, rafales_kph, quality_flags, raw_payload_id, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_dim_lieu_fk, id_dim_temps_fk) DO NOTHING
	`, o.LocationID, o.TimeID, o.ConditionID,
		o.TemperatureC, o.WindKph, o.WindDegree, o.WindDir, o.PressureMb,
		o.PrecipMM, o.HumidityPct, o.CloudPct, o.VisibilityKm,
		o.UVIndex, o.GustKph, nullString(r.QualityFlags), nullInt64(r.RawPayloadID), nullUTC(r.ObservedAt))
	if err != nil {
		return false, fmt.Errorf("insert observation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListLocations returns the distinct city names in the warehouse, sorted.
func (s *Store) ListLocations() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT nom_ville FROM dim_lieu ORDER BY nom_ville`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ObservationQuery narrows QueryObservations. Zero fields are unset.
type ObservationQuery struct {
	City      string
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
	// Since matches facts observed at or after this instant. Facts loaded
	// without an absolute time fall back to their local time key.
	Since time.Time
}

// QueryObservations returns fact rows joined with their dimensions, ordered
// chronologically.
func (s *Store) QueryObservations(q ObservationQuery) ([]models.Observation, error) {
	var where []string
	var args []any
	if q.City != "" {
		where = append(where, "l.nom_ville = ?")
		args = append(args, q.City)
	}
	if q.StartDate != "" {
		where = append(where, "t.date >= ?")
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		where = append(where, "t.date <= ?")
		args = append(args, q.EndDate)
	}
	if !q.Since.IsZero() {
		where = append(where, "(f.observed_at >= ? OR (f.observed_at IS NULL AND t.datetime_key >= ?))")
		args = append(args, q.Since.UTC().Format(datetimeKeyLayout), q.Since.In(s.loc).Format(datetimeKeyLayout))
	}

	query := `
		SELECT f.id_observation_horaire, f.id_dim_lieu_fk, f.id_dim_temps_fk, f.id_dim_condition_fk,
			f.temperature_celsius, f.vent_kph, f.vent_degre, f.direction_vent, f.pression_millibars,
			f.precipitation_mm, f.humidite_pourcentage, f.nuages_pourcentage, f.visibilite_km,
			f.indice_uv, f.rafales_kph,
			l.id_dim_lieu, l.nom_ville, l.region, l.pays,
			t.id_dim_temps, t.date, t.annee, t.mois, t.jour, t.heure, t.minute, t.jour_semaine, t.nom_mois,
			c.id_dim_condition, c.code_condition, c.texte_condition
		FROM fait_observation f
		LEFT JOIN dim_lieu l ON l.id_dim_lieu = f.id_dim_lieu_fk
		LEFT JOIN dim_temps t ON t.id_dim_temps = f.id_dim_temps_fk
		LEFT JOIN dim_condition c ON c.id_dim_condition = f.id_dim_condition_fk`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY t.datetime_key ASC, f.id_observation_horaire ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	observations := []models.Observation{}
	for rows.Next() {
		o, err := scanJoinedObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

func scanJoinedObservation(rows *sql.Rows) (models.Observation, error) {
	var o models.Observation
	var (
		lID                              sql.NullInt64
		lCity, lRegion, lCountry         sql.NullString
		tID                              sql.NullInt64
		tDate, tWeekday, tMonthName      sql.NullString
		tYear, tMonth, tDay, tHour, tMin sql.NullInt64
		cID, cCode                       sql.NullInt64
		cText                            sql.NullString
	)
	err := rows.Scan(&o.ID, &o.LocationID, &o.TimeID, &o.ConditionID,
		&o.TemperatureC, &o.WindKph, &o.WindDegree, &o.WindDir, &o.PressureMb,
		&o.PrecipMM, &o.HumidityPct, &o.CloudPct, &o.VisibilityKm,
		&o.UVIndex, &o.GustKph,
		&lID, &lCity, &lRegion, &lCountry,
		&tID, &tDate, &tYear, &tMonth, &tDay, &tHour, &tMin, &tWeekday, &tMonthName,
		&cID, &cCode, &cText)
	if err != nil {
		return o, fmt.Errorf("scan observation: %w", err)
	}

	if lID.Valid {
		o.Location = &models.Location{ID: lID.Int64, City: lCity.String, Region: lRegion.String, Country: lCountry.String}
	}
	if tID.Valid {
		o.Time = &models.TimeDimension{
			ID:        tID.Int64,
			Date:      tDate.String,
			Year:      int(tYear.Int64),
			Month:     int(tMonth.Int64),
			Day:       int(tDay.Int64),
			Hour:      int(tHour.Int64),
			Minute:    int(tMin.Int64),
			Weekday:   tWeekday.String,
			MonthName: tMonthName.String,
		}
	}
	if cID.Valid {
		o.Condition = &models.Condition{ID: cID.Int64, Code: int(cCode.Int64), Text: cText.String}
	}
	return o, nil
}

// CountObservations returns the number of fact rows.
func (s *Store) CountObservations() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM fait_observation`).Scan(&n)
	return n, err
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullUTC(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(datetimeKeyLayout), Valid: true}
}
