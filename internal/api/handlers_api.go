package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/lox/meteodash/internal/dashboard"
	"github.com/lox/meteodash/internal/ingest"
	"github.com/lox/meteodash/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListLocations()
	if err != nil {
		log.Printf("api: list locations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load locations")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	obs, err := s.store.QueryObservations(s.observationQuery(c))
	if err != nil {
		log.Printf("api: query observations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load weather data")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	obs, err := s.store.QueryObservations(s.observationQuery(c))
	if err != nil {
		log.Printf("api: query observations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load weather data")
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Project(obs, s.now()))
}

func (s *Server) handleTriggerETL(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "etl not configured")
		return
	}
	if err := s.runner.Trigger(r.Context()); err != nil {
		if errors.Is(err, ingest.ErrAlreadyRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "ETL process is already running"})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.charts.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"message": "ETL process started"})
}

func (s *Server) handleETLStatus(w http.ResponseWriter, r *http.Request) {
	status := "unavailable"
	if s.runner != nil {
		status = s.runner.Status()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type etlRunResponse struct {
	RunID         string     `json:"run_id"`
	ProcessName   string     `json:"process_name"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	RowsProcessed *int64     `json:"rows_processed,omitempty"`
}

func newETLRunResponse(run store.ETLRun) etlRunResponse {
	resp := etlRunResponse{
		RunID:        run.RunID,
		ProcessName:  run.ProcessName,
		Status:       run.Status,
		StartTime:    run.StartTime,
		ErrorMessage: run.ErrorMessage.String,
	}
	if run.EndTime.Valid {
		resp.EndTime = &run.EndTime.Time
	}
	if run.RowsProcessed.Valid {
		resp.RowsProcessed = &run.RowsProcessed.Int64
	}
	return resp
}

func (s *Server) handleETLLogs(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListETLRuns(50)
	if err != nil {
		log.Printf("api: list etl runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load etl logs")
		return
	}
	out := make([]etlRunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, newETLRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}
