package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lox/meteodash/internal/metrics"
	"github.com/lox/meteodash/internal/store"
)

const (
	processName = "run_etl"
	sourceName  = "weatherapi"

	rawPayloadRetention = 30 * 24 * time.Hour
)

// Runner states reported by Status. A failed run reports "error: <msg>".
const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusFinished = "finished"
)

var ErrAlreadyRunning = errors.New("etl already running")

// RunResult summarises one ETL run.
type RunResult struct {
	RunID   string
	Cities  int
	Loaded  int
	Skipped int
	Failed  int
}

// Runner extracts current conditions for a list of cities and loads them
// into the warehouse. Only one run is active at a time.
type Runner struct {
	store     *store.Store
	extractor *Extractor
	cities    []string

	mu      sync.Mutex
	running bool
	status  string
	wg      sync.WaitGroup
}

func NewRunner(st *store.Store, ex *Extractor, cities []string) *Runner {
	if len(cities) == 0 {
		cities = UEMOACities
	}
	return &Runner{
		store:     st,
		extractor: ex,
		cities:    cities,
		status:    StatusIdle,
	}
}

func (r *Runner) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Trigger starts a run in the background. The run outlives ctx's
// cancellation but keeps its values.
func (r *Runner) Trigger(ctx context.Context) error {
	if !r.begin() {
		return ErrAlreadyRunning
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.run(context.WithoutCancel(ctx)); err != nil {
			log.Printf("etl: background run failed: %v", err)
		}
	}()
	return nil
}

// Wait blocks until any background run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run performs one ETL pass synchronously.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if !r.begin() {
		return nil, ErrAlreadyRunning
	}
	return r.run(ctx)
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.status = StatusRunning
	return true
}

func (r *Runner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if err != nil {
		r.status = "error: " + err.Error()
		metrics.ETLRunsTotal.WithLabelValues("failed").Inc()
		return
	}
	r.status = StatusFinished
	metrics.ETLRunsTotal.WithLabelValues("success").Inc()
}

func (r *Runner) run(ctx context.Context) (result *RunResult, err error) {
	defer func() { r.finish(err) }()

	result = &RunResult{RunID: uuid.NewString(), Cities: len(r.cities)}
	log.Printf("etl: starting run %s for %d cities", result.RunID, len(r.cities))

	run, logErr := r.store.StartETLRun(result.RunID, processName)
	if logErr != nil {
		log.Printf("etl: record run start: %v", logErr)
	}
	defer func() {
		if run == nil {
			return
		}
		run.Status = store.ETLStatusSuccess
		if err != nil {
			run.Status = store.ETLStatusFailed
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		}
		run.RowsProcessed = sql.NullInt64{Int64: int64(result.Loaded), Valid: true}
		if err := r.store.CompleteETLRun(run); err != nil {
			log.Printf("etl: record run completion: %v", err)
		}
	}()

	if r.extractor == nil || r.extractor.apiKey == "" {
		return result, ErrNoAPIKey
	}

	for _, city := range r.cities {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		loaded, err := r.processCity(ctx, result.RunID, city)
		switch {
		case err != nil:
			log.Printf("etl: %s: %v", city, err)
			result.Failed++
		case loaded:
			result.Loaded++
		default:
			result.Skipped++
		}
	}

	log.Printf("etl: run %s complete: %d loaded, %d skipped, %d failed",
		result.RunID, result.Loaded, result.Skipped, result.Failed)

	if n, err := r.store.CleanupOldRawPayloads(rawPayloadRetention); err != nil {
		log.Printf("etl: cleanup raw payloads: %v", err)
	} else if n > 0 {
		log.Printf("etl: removed %d raw payloads older than %s", n, rawPayloadRetention)
	}

	if result.Failed == result.Cities && result.Cities > 0 {
		return result, fmt.Errorf("all %d cities failed", result.Cities)
	}
	return result, nil
}

// processCity reports whether a new fact row was written. An observation
// already in the warehouse is a skip, not a failure.
func (r *Runner) processCity(ctx context.Context, runID, city string) (bool, error) {
	resp, body, err := r.extractor.FetchCurrent(ctx, city)
	var payloadID int64
	if len(body) > 0 {
		id, stageErr := r.store.StoreRawPayload(runID, sourceName, city, body)
		if stageErr != nil {
			log.Printf("etl: stage raw payload %s: %v", city, stageErr)
		}
		payloadID = id
	}
	if err != nil {
		return false, err
	}

	rec, err := Transform(resp)
	if err != nil {
		return false, err
	}
	if len(rec.Flags) > 0 {
		log.Printf("etl: %s: quality flags %v", city, rec.Flags)
	}
	return r.load(rec, payloadID)
}

func (r *Runner) load(rec *Record, payloadID int64) (bool, error) {
	locationID, err := r.store.UpsertLocation(rec.Location)
	if err != nil {
		return false, err
	}
	conditionID, err := r.store.UpsertCondition(rec.Condition)
	if err != nil {
		return false, err
	}
	timeID, err := r.store.UpsertTime(rec.Time)
	if err != nil {
		return false, err
	}

	obs := rec.Observation
	obs.LocationID = locationID
	obs.ConditionID = conditionID
	obs.TimeID = timeID

	written, err := r.store.InsertObservation(store.FactRow{
		Observation:  obs,
		ObservedAt:   rec.ObservedAt,
		QualityFlags: QualityFlagsToJSON(rec.Flags),
		RawPayloadID: payloadID,
	})
	if err != nil {
		return false, err
	}
	if written {
		metrics.ObservationsLoaded.WithLabelValues(rec.Location.City).Inc()
	}
	return written, nil
}
