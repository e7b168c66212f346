package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodash_weatherapi_calls_total",
			Help: "Total WeatherAPI.com current conditions calls",
		},
		[]string{"city", "status"},
	)

	WeatherAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteodash_weatherapi_latency_seconds",
			Help:    "WeatherAPI.com call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"city"},
	)

	ObservationsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodash_observations_loaded_total",
			Help: "Total observations loaded into the warehouse",
		},
		[]string{"city"},
	)

	ETLRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodash_etl_runs_total",
			Help: "Total ETL runs by outcome",
		},
		[]string{"status"},
	)

	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodash_client_requests_total",
			Help: "Total dashboard fetches against the warehouse API",
		},
		[]string{"endpoint", "status"},
	)

	ClientLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteodash_client_latency_seconds",
			Help:    "Dashboard fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
