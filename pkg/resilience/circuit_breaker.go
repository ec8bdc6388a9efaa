package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/medflow/picking-service/pkg/logger"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned instead of calling through while the breaker is open
// or while a half-open breaker has used up its trial requests
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Circuit breaker default configuration values
const (
	DefaultMaxRequests      uint32        = 1
	DefaultInterval         time.Duration = 60 * time.Second
	DefaultTimeout          time.Duration = 30 * time.Second
	DefaultFailureThreshold uint32        = 5
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	MaxRequests      uint32        // Maximum number of requests allowed in half-open state
	Interval         time.Duration // Cyclic period after which closed-state counts are cleared (0 = never)
	Timeout          time.Duration // How long to stay open before going half-open
	FailureThreshold uint32        // Consecutive failures that trip the circuit

	// IsSuccessful decides whether an error counts against the breaker.
	// Nil counts every non-nil error as a failure.
	IsSuccessful func(err error) bool

	// OnStateChange is called after every transition, e.g. to export a gauge
	OnStateChange func(name string, state gobreaker.State)
}

// DefaultConfig returns the defaults for a named breaker
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      DefaultMaxRequests,
		Interval:         DefaultInterval,
		Timeout:          DefaultTimeout,
		FailureThreshold: DefaultFailureThreshold,
	}
}

// CircuitBreaker wraps gobreaker with logging
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *logger.Logger
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	log = log.WithComponent("circuit_breaker")

	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: cfg.IsSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, to)
			}
		},
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		name:   cfg.Name,
		logger: log,
	}
}

// Execute runs fn through the circuit breaker. A rejected call returns an
// error wrapping ErrCircuitOpen without invoking fn.
func Execute[T any](ctx context.Context, c *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := c.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Debug().Str("name", c.name).Err(err).Msg("call rejected by circuit breaker")
		return zero, errors.Join(ErrCircuitOpen, err)
	}
	if err != nil {
		return zero, err
	}

	value, _ := result.(T)
	return value, nil
}

// State returns the current state of the circuit breaker
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the circuit breaker name
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Status reports the breaker for health output
func (c *CircuitBreaker) Status() map[string]interface{} {
	counts := c.cb.Counts()
	return map[string]interface{}{
		"name":                 c.name,
		"state":                c.cb.State().String(),
		"requests":             counts.Requests,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// StateValue maps a state to the gauge value exported for it
func StateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
