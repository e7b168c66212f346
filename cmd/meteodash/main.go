package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/lox/meteodash/internal/api"
	"github.com/lox/meteodash/internal/client"
	"github.com/lox/meteodash/internal/dashboard"
	"github.com/lox/meteodash/internal/ingest"
	"github.com/lox/meteodash/internal/models"
	"github.com/lox/meteodash/internal/store"
)

type Globals struct {
	DB       string `help:"Path to the SQLite warehouse." default:"data/meteodash.db" env:"METEODASH_DB"`
	Timezone string `help:"Zone relative time ranges are resolved in." default:"UTC" env:"METEODASH_TZ"`
}

type CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" default:"1" help:"Serve the API and dashboard, running the ETL on a schedule."`
	ETL       ETLCmd       `cmd:"" name:"etl" help:"Run the ETL once and exit."`
	Dashboard DashboardCmd `cmd:"" help:"Fetch a dashboard view from a running server and print it as JSON."`
}

type ServeCmd struct {
	Port     string        `help:"HTTP server port." default:"8080" env:"PORT"`
	APIKey   string        `name:"weatherapi-key" help:"WeatherAPI.com key." env:"WEATHERAPI_KEY"`
	Cities   []string      `help:"Cities to extract." env:"METEODASH_CITIES"`
	Interval time.Duration `help:"ETL interval." default:"60m" env:"ETL_INTERVAL"`
	NoPoll   bool          `help:"Disable the ETL schedule (server only, for local dev)."`
}

type ETLCmd struct {
	APIKey string   `name:"weatherapi-key" help:"WeatherAPI.com key." env:"WEATHERAPI_KEY"`
	Cities []string `help:"Cities to extract." env:"METEODASH_CITIES"`
}

type DashboardCmd struct {
	URL       string `help:"Base URL of the meteodash API." default:"http://localhost:8080" env:"METEODASH_URL"`
	Location  string `help:"City to filter on."`
	StartDate string `help:"Inclusive start date (YYYY-MM-DD)."`
	EndDate   string `help:"Inclusive end date (YYYY-MM-DD)."`
	TimeRange string `help:"Relative window: 1d, 7d, 30d or 90d." enum:",1d,7d,30d,90d" default:"7d"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: load .env: %v", err)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("meteodash"),
		kong.Description("Weather warehouse ETL, API and dashboard for UEMOA cities."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

func (g *Globals) location() *time.Location {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		log.Printf("warning: could not load %s timezone, using UTC: %v", g.Timezone, err)
		return time.UTC
	}
	return loc
}

func (g *Globals) openStore() (*store.Store, *sql.DB, error) {
	if dir := filepath.Dir(g.DB); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, g.location())
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")
	return st, db, nil
}

func (c *ServeCmd) Run(g *Globals) error {
	st, db, err := g.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runner := ingest.NewRunner(st, ingest.NewExtractor(c.APIKey), c.Cities)
	server := api.NewServer(st, runner, c.Port, g.location())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if c.NoPoll {
		log.Println("polling disabled (--no-poll)")
	} else if c.APIKey == "" {
		log.Println("WEATHERAPI_KEY not set, etl schedule disabled")
	} else {
		scheduler := ingest.NewScheduler(runner, c.Interval)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer scheduler.Stop()
		log.Printf("etl scheduled every %s", c.Interval)
	}

	log.Printf("starting server on :%s", c.Port)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	runner.Wait()
	return nil
}

func (c *ETLCmd) Run(g *Globals) error {
	st, db, err := g.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := ingest.NewRunner(st, ingest.NewExtractor(c.APIKey), c.Cities)
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("done: %d loaded, %d skipped, %d failed", res.Loaded, res.Skipped, res.Failed)
	return nil
}

func (c *DashboardCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	d := dashboard.New(client.New(c.URL))
	d.Mount(ctx)
	d.Wait()

	criteria := d.Filters()
	criteria.Location = c.Location
	criteria.StartDate = c.StartDate
	criteria.EndDate = c.EndDate
	criteria.TimeRange = models.TimeRange(c.TimeRange)
	if criteria != models.DefaultFilters() {
		d.Update(ctx, criteria)
		d.Wait()
	}

	view := d.View()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return err
	}
	if view.Error != "" {
		return errors.New(view.Error)
	}
	return nil
}
