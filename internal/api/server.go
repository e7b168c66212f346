package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/meteodash/internal/chart"
	"github.com/lox/meteodash/internal/ingest"
	"github.com/lox/meteodash/internal/store"
)

const chartTTL = 5 * time.Minute

type Server struct {
	store  *store.Store
	runner *ingest.Runner
	port   string
	loc    *time.Location
	tmpl   *template.Template
	charts *chart.Cache
	now    func() time.Time
}

// NewServer returns a server over store. runner may be nil, in which case
// the ETL endpoints report the pipeline as unavailable.
func NewServer(store *store.Store, runner *ingest.Runner, port string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		store:  store,
		runner: runner,
		port:   port,
		loc:    loc,
		tmpl:   newTemplates(),
		charts: chart.NewCache(chartTTL),
		now:    time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/weather/locations", s.handleLocations)
	mux.HandleFunc("/api/weather/data", s.handleData)
	mux.HandleFunc("/api/weather/series", s.handleSeries)
	mux.HandleFunc("/charts/", s.handleChart)
	mux.HandleFunc("/trigger-etl", s.handleTriggerETL)
	mux.HandleFunc("/etl-status", s.handleETLStatus)
	mux.HandleFunc("/etl-logs", s.handleETLLogs)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
