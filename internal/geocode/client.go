// Package geocode resolves place names to coordinates through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/metrics"
)

const breakerName = "geocoder"

// errCallerGone marks lookups abandoned by the caller; they say nothing about
// the provider's health.
var errCallerGone = errors.New("caller went away")

type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds each lookup, including reading the body.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	cb        *gobreaker.CircuitBreaker[models.Place]
	logger    zerolog.Logger
}

type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("geocoder base url is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("geocoder timeout must be positive, got: %v", cfg.Timeout)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	logger := cfg.Logger.With().Str("component", "geocoder").Logger()

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[models.Place](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a miss is an answer, not a provider fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		cb:        cb,
		logger:    logger,
	}, nil
}

// Resolve returns the provider's best match for place, models.ErrNotFound when
// it has none, or an error matching models.ErrResolver.
func (c *Client) Resolve(ctx context.Context, place string) (models.Place, error) {
	if err := ctx.Err(); err != nil {
		metrics.GeocodeRequests.WithLabelValues("canceled").Inc()
		return models.Place{}, fmt.Errorf("%w: %w: %w", models.ErrResolver, errCallerGone, err)
	}

	start := time.Now()

	p, err := c.cb.Execute(func() (models.Place, error) {
		return c.search(ctx, place)
	})
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.GeocodeRequests.WithLabelValues("found").Inc()
		return p, nil
	case errors.Is(err, models.ErrNotFound):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return models.Place{}, err
	case errors.Is(err, errCallerGone):
		metrics.GeocodeRequests.WithLabelValues("canceled").Inc()
		return models.Place{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GeocodeRequests.WithLabelValues("circuit_open").Inc()
		return models.Place{}, fmt.Errorf("%w: %w", models.ErrResolver, err)
	default:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Str("place", place).Msg("geocoding failed")
		return models.Place{}, err
	}
}

func (c *Client) search(parent context.Context, place string) (models.Place, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: build request: %w", models.ErrResolver, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Place{}, c.wrap(parent, ctx, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.Place{}, fmt.Errorf("%w: unexpected status %d", models.ErrResolver, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Place{}, c.wrap(parent, ctx, "decode response", err)
	}
	if len(results) == 0 {
		return models.Place{}, models.ErrNotFound
	}

	best := results[0]
	lat, err := strconv.ParseFloat(strings.TrimSpace(best.Lat), 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: parse lat %q: %w", models.ErrResolver, best.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(best.Lon), 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: parse lon %q: %w", models.ErrResolver, best.Lon, err)
	}

	return models.Place{
		DisplayName: best.DisplayName,
		Latitude:    lat,
		Longitude:   lon,
	}, nil
}

// wrap marks failures caused by the caller's own context with errCallerGone,
// turns our lookup deadline into ErrResolverTimeout and anything else into
// ErrResolver.
func (c *Client) wrap(parent, ctx context.Context, op string, err error) error {
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("%w: %s: %w: %w", models.ErrResolver, op, errCallerGone, perr)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v: %w", models.ErrResolverTimeout, op, c.timeout, err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrResolver, op, err)
}
