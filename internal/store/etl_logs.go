package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ETL run statuses recorded in etl_logs.
const (
	ETLStatusRunning = "running"
	ETLStatusSuccess = "success"
	ETLStatusFailed  = "failed"
)

// ETLRun is one row of the ETL audit log.
type ETLRun struct {
	ID            int64          `json:"id"`
	RunID         string         `json:"run_id"`
	ProcessName   string         `json:"process_name"`
	Status        string         `json:"status"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       sql.NullTime   `json:"-"`
	ErrorMessage  sql.NullString `json:"-"`
	RowsProcessed sql.NullInt64  `json:"-"`
}

// StartETLRun records a running ETL process and returns the row.
func (s *Store) StartETLRun(runID, process string) (*ETLRun, error) {
	run := &ETLRun{
		RunID:       runID,
		ProcessName: process,
		Status:      ETLStatusRunning,
		StartTime:   time.Now().UTC(),
	}

	result, err := s.db.Exec(`
		INSERT INTO etl_logs (run_id, process_name, status, start_time)
		VALUES (?, ?, ?, ?)
	`, run.RunID, run.ProcessName, run.Status, run.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start etl run: %w", err)
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteETLRun stamps the end time and writes the final status.
func (s *Store) CompleteETLRun(run *ETLRun) error {
	if run == nil {
		return nil
	}

	run.EndTime = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE etl_logs SET
			status = ?,
			end_time = ?,
			error_message = ?,
			rows_processed = ?
		WHERE id = ?
	`, run.Status, run.EndTime, run.ErrorMessage, run.RowsProcessed, run.ID)
	return err
}

// ListETLRuns returns the most recent runs, newest first.
func (s *Store) ListETLRuns(limit int) ([]ETLRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, process_name, status, start_time, end_time, error_message, rows_processed
		FROM etl_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []ETLRun{}
	for rows.Next() {
		var r ETLRun
		if err := rows.Scan(&r.ID, &r.RunID, &r.ProcessName, &r.Status, &r.StartTime, &r.EndTime, &r.ErrorMessage, &r.RowsProcessed); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
