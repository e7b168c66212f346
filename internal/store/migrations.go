package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial warehouse star schema",
		SQL: `
CREATE TABLE IF NOT EXISTS dim_lieu (
    id_dim_lieu INTEGER PRIMARY KEY AUTOINCREMENT,
    nom_ville TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT '',
    pays TEXT NOT NULL,
    UNIQUE(nom_ville, region, pays)
);

CREATE TABLE IF NOT EXISTS dim_condition (
    id_dim_condition INTEGER PRIMARY KEY AUTOINCREMENT,
    code_condition INTEGER NOT NULL UNIQUE,
    texte_condition TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dim_temps (
    id_dim_temps INTEGER PRIMARY KEY AUTOINCREMENT,
    datetime_key TEXT NOT NULL UNIQUE,
    date TEXT NOT NULL,
    annee INTEGER NOT NULL,
    mois INTEGER NOT NULL,
    jour INTEGER NOT NULL,
    heure INTEGER NOT NULL,
    minute INTEGER NOT NULL,
    jour_semaine TEXT NOT NULL,
    nom_mois TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fait_observation (
    id_observation_horaire INTEGER PRIMARY KEY AUTOINCREMENT,
    id_dim_lieu_fk INTEGER NOT NULL REFERENCES dim_lieu(id_dim_lieu),
    id_dim_temps_fk INTEGER NOT NULL REFERENCES dim_temps(id_dim_temps),
    id_dim_condition_fk INTEGER NOT NULL REFERENCES dim_condition(id_dim_condition),
    temperature_celsius REAL NOT NULL,
    vent_kph REAL NOT NULL,
    vent_degre INTEGER NOT NULL,
    direction_vent TEXT NOT NULL,
    pression_millibars REAL NOT NULL,
    precipitation_mm REAL NOT NULL,
    humidite_pourcentage REAL NOT NULL,
    nuages_pourcentage REAL NOT NULL,
    visibilite_km REAL NOT NULL,
    indice_uv REAL NOT NULL,
    rafales_kph REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(id_dim_lieu_fk, id_dim_temps_fk)
);

CREATE INDEX IF NOT EXISTS idx_fait_lieu ON fait_observation(id_dim_lieu_fk);
CREATE INDEX IF NOT EXISTS idx_fait_temps ON fait_observation(id_dim_temps_fk);
`,
	},
	{
		Version:     2,
		Description: "Add raw payload staging and ETL run log",
		SQL: `
CREATE TABLE IF NOT EXISTS raw_payloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    etl_run_id TEXT,
    fetched_at DATETIME NOT NULL,
    source TEXT NOT NULL,
    city TEXT,
    payload_compressed BLOB NOT NULL,
    payload_hash TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS etl_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    process_name TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME,
    error_message TEXT,
    rows_processed INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_raw_payloads_fetched ON raw_payloads(fetched_at);
CREATE INDEX IF NOT EXISTS idx_etl_logs_created ON etl_logs(created_at);
`,
	},
	{
		Version:     3,
		Description: "Add quality flags to observations and index time dimension by date",
		SQL: `
ALTER TABLE fait_observation ADD COLUMN quality_flags TEXT;
ALTER TABLE fait_observation ADD COLUMN raw_payload_id INTEGER REFERENCES raw_payloads(id);

CREATE INDEX IF NOT EXISTS idx_temps_date ON dim_temps(date);
`,
	},
	{
		Version:     4,
		Description: "Add UTC observation time to facts",
		SQL: `
ALTER TABLE fait_observation ADD COLUMN observed_at TEXT;

CREATE INDEX IF NOT EXISTS idx_fait_observed ON fait_observation(observed_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
