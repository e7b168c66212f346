package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/lox/meteodash/internal/httputil"
	"github.com/lox/meteodash/internal/metrics"
)

const DefaultWeatherAPIURL = "http://api.weatherapi.com/v1/current.json"

var (
	ErrNoAPIKey   = errors.New("WEATHERAPI_KEY is not set")
	errRetryable  = errors.New("retryable status")
	errNoLocation = errors.New("response has no location")
)

// Extractor fetches current conditions from WeatherAPI.com.
type Extractor struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
}

type ExtractorOption func(*Extractor)

func WithBaseURL(u string) ExtractorOption {
	return func(e *Extractor) { e.baseURL = u }
}

func WithExtractorHTTPClient(c *http.Client) ExtractorOption {
	return func(e *Extractor) { e.client = c }
}

// WithRateLimit caps outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) ExtractorOption {
	return func(e *Extractor) { e.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewExtractor(apiKey string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIURL,
		client:  httputil.NewClient(),
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "weatherapi",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 2 * time.Minute
			return bo
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CurrentResponse struct {
	Location APILocation `json:"location"`
	Current  APICurrent  `json:"current"`
}

type APILocation struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TzID      string  `json:"tz_id"`
	Localtime string  `json:"localtime"`
}

type APICurrent struct {
	LastUpdatedEpoch int64   `json:"last_updated_epoch"`
	LastUpdated      string  `json:"last_updated"`
	TempC            float64 `json:"temp_c"`
	Condition   struct {
		Text string `json:"text"`
		Code int    `json:"code"`
	} `json:"condition"`
	WindKph    float64 `json:"wind_kph"`
	WindDegree int     `json:"wind_degree"`
	WindDir    string  `json:"wind_dir"`
	PressureMb float64 `json:"pressure_mb"`
	PrecipMm   float64 `json:"precip_mm"`
	Humidity   float64 `json:"humidity"`
	Cloud      float64 `json:"cloud"`
	FeelsLikeC float64 `json:"feelslike_c"`
	VisKm      float64 `json:"vis_km"`
	UV         float64 `json:"uv"`
	GustKph    float64 `json:"gust_kph"`
}

type fetchResult struct {
	status int
	body   []byte
}

// FetchCurrent returns the parsed response for city and the raw body.
// 429 and 5xx responses are retried with exponential backoff; other
// failures are returned immediately.
func (e *Extractor) FetchCurrent(ctx context.Context, city string) (*CurrentResponse, []byte, error) {
	if e.apiKey == "" {
		return nil, nil, ErrNoAPIKey
	}

	v := url.Values{}
	v.Set("key", e.apiKey)
	v.Set("q", city)
	v.Set("aqi", "no")
	u := e.baseURL + "?" + v.Encode()

	start := time.Now()
	status := "error"
	defer func() {
		metrics.WeatherAPICallsTotal.WithLabelValues(city, status).Inc()
		metrics.WeatherAPILatency.WithLabelValues(city).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	operation := func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		out, err := e.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			resp, err := e.client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("fetch current: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: %d", errRetryable, resp.StatusCode)
			}
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			return fetchResult{status: resp.StatusCode, body: b}, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("circuit breaker: %w", err))
		}
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		res := out.(fetchResult)
		if res.status != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch current: status %d: %s", res.status, truncateBody(res.body, 200)))
		}
		body = res.body
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(e.newBackOff(), ctx)); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", city, err)
	}

	resp, err := ParseCurrentResponse(body)
	if err != nil {
		return nil, body, fmt.Errorf("%s: %w", city, err)
	}
	status = "ok"
	return resp, body, nil
}

// ParseCurrentResponse decodes a current.json body.
func ParseCurrentResponse(body []byte) (*CurrentResponse, error) {
	var data CurrentResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if data.Location.Name == "" {
		return nil, errNoLocation
	}
	return &data, nil
}

func truncateBody(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
