package greenhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/messages"
)

var (
	// ErrConfigUnavailable: the configuration service could not be reached
	// within the retry budget.
	ErrConfigUnavailable = errors.New("configuration service unavailable")
	// ErrConfigRejected: the service answered but refused the request.
	ErrConfigRejected = errors.New("configuration request rejected")
)

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// ConfigClientOptions configures a ConfigClient.
type ConfigClientOptions struct {
	BaseURL         string        // e.g. http://config:5008
	Timeout         time.Duration // per request, default 5s
	InitialInterval time.Duration // first retry delay, default 500ms
	MaxElapsed      time.Duration // retry budget, default 60s
	BreakerFailures int           // consecutive failures before opening, default 5
	BreakerOpenFor  time.Duration // default 10s
}

// ConfigClient reads the sensor layout from the configuration service.
type ConfigClient struct {
	base            string
	http            *http.Client
	breaker         *gobreaker.CircuitBreaker
	initialInterval time.Duration
	maxElapsed      time.Duration
}

func NewConfigClient(opts ConfigClientOptions) *ConfigClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = time.Minute
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = 10 * time.Second
	}
	fails := uint32(opts.BreakerFailures)
	return &ConfigClient{
		base: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http: &http.Client{Timeout: opts.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "config-service",
			Timeout: opts.BreakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
			IsSuccessful: func(err error) bool {
				var p *permanentError
				return err == nil || errors.As(err, &p)
			},
		}),
		initialInterval: opts.InitialInterval,
		maxElapsed:      opts.MaxElapsed,
	}
}

// SensorCount returns the number of sensors configured for m.
func (c *ConfigClient) SensorCount(ctx context.Context, m entities.Measurement) (int, error) {
	var n int
	if err := c.getData(ctx, "/config/sensors/"+string(m), &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d for %s", ErrConfigRejected, n, m)
	}
	return n, nil
}

// SensorCounts queries the count of every measurement.
func (c *ConfigClient) SensorCounts(ctx context.Context) (SensorCounts, error) {
	counts := make(SensorCounts, len(entities.Measurements))
	for _, m := range entities.Measurements {
		n, err := c.SensorCount(ctx, m)
		if err != nil {
			return nil, err
		}
		counts[m] = n
	}
	return counts, nil
}

// Thresholds returns the acceptable range configured for m.
func (c *ConfigClient) Thresholds(ctx context.Context, m entities.Measurement) (entities.Threshold, error) {
	var t entities.Threshold
	err := c.getData(ctx, "/config/thresholds/"+string(m), &t)
	return t, err
}

func (c *ConfigClient) getData(ctx context.Context, path string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = c.maxElapsed

	err := backoff.Retry(func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.fetch(ctx, path, out)
		})
		var p *permanentError
		if errors.As(err, &p) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))

	var p *permanentError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &p):
		return fmt.Errorf("config %s: %w", path, p.err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrConfigUnavailable, path, err)
	}
}

func (c *ConfigClient) fetch(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return &permanentError{err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("config HTTP %d", resp.StatusCode)
	}

	var env messages.ConfigResponse
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &permanentError{fmt.Errorf("%w: HTTP %d", ErrConfigRejected, resp.StatusCode)}
		}
		return &permanentError{fmt.Errorf("%w: bad envelope: %v", ErrConfigRejected, err)}
	}
	if !env.Success || resp.StatusCode != http.StatusOK {
		return &permanentError{fmt.Errorf("%w: HTTP %d: %s", ErrConfigRejected, resp.StatusCode, env.Error)}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &permanentError{fmt.Errorf("%w: bad data: %v", ErrConfigRejected, err)}
	}
	return nil
}
