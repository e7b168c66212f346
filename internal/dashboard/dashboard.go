// Package dashboard turns filtered observation fetches into chart-ready
// series and owns the dashboard's filter and fetch state.
package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lox/meteodash/internal/models"
)

// Fetcher retrieves locations and observations from the warehouse.
type Fetcher interface {
	ListLocations(ctx context.Context) ([]string, error)
	GetObservations(ctx context.Context, c models.FilterCriteria) ([]models.Observation, error)
}

// Dashboard coordinates fetches against a single owned State. Fetches run
// concurrently and complete in any order; a response for a superseded
// observation request is dropped.
type Dashboard struct {
	fetcher  Fetcher
	now      func() time.Time
	mu       sync.Mutex
	state    State
	onChange func(View)
	wg       sync.WaitGroup
}

func New(fetcher Fetcher) *Dashboard {
	return &Dashboard{
		fetcher: fetcher,
		now:     time.Now,
		state:   NewState(),
	}
}

// OnChange registers fn to be called with the new view after every applied
// transition. It must be set before Mount.
func (d *Dashboard) OnChange(fn func(View)) {
	d.onChange = fn
}

// Mount loads the location list and the initial observations.
func (d *Dashboard) Mount(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loadLocations(ctx)
	}()
	d.fetchObservations(ctx)
}

// Update replaces the filter criteria and triggers a new observation fetch.
// Every call fetches; there is no debouncing or diffing.
func (d *Dashboard) Update(ctx context.Context, c models.FilterCriteria) {
	d.apply(func(s State) State { return s.WithFilters(c) })
	d.fetchObservations(ctx)
}

// Filters returns the current criteria, for callers that merge a single
// changed field before calling Update.
func (d *Dashboard) Filters() models.FilterCriteria {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Filters
}

// State returns a copy of the current state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dashboard) View() View {
	return d.State().View(d.now())
}

// Wait blocks until all in-flight fetches have been applied.
func (d *Dashboard) Wait() {
	d.wg.Wait()
}

func (d *Dashboard) loadLocations(ctx context.Context) {
	names, err := d.fetcher.ListLocations(ctx)
	if err != nil {
		log.Printf("dashboard: error fetching locations: %v", err)
		d.apply(func(s State) State { return s.FailLocations() })
		return
	}
	d.apply(func(s State) State { return s.ApplyLocations(names) })
}

func (d *Dashboard) fetchObservations(ctx context.Context) {
	var seq uint64
	var criteria models.FilterCriteria
	d.apply(func(s State) State {
		s, seq = s.BeginObservations()
		criteria = s.Filters
		return s
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		obs, err := d.fetcher.GetObservations(ctx, criteria)
		if err != nil {
			log.Printf("dashboard: error fetching weather data: %v", err)
			d.apply(func(s State) State { return s.FailObservations(seq) })
			return
		}
		d.apply(func(s State) State {
			if !s.Current(seq) {
				log.Printf("dashboard: dropping stale response for request %d", seq)
			}
			return s.ApplyObservations(seq, obs)
		})
	}()
}

func (d *Dashboard) apply(fn func(State) State) {
	d.mu.Lock()
	d.state = fn(d.state)
	next := d.state
	d.mu.Unlock()

	if d.onChange != nil {
		d.onChange(next.View(d.now()))
	}
}
