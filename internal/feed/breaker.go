package feed

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
)

// CircuitBreakerSource wraps a Source with circuit breaker functionality
type CircuitBreakerSource struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
}

// execBreaker is a generic helper for circuit breaker wrapper methods
func execBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	source Source,
	fn func(Source) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(source) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// NewCircuitBreakerSource creates a CircuitBreakerSource with sensible defaults
func NewCircuitBreakerSource(source Source) *CircuitBreakerSource {
	return NewCircuitBreakerSourceWithSettings(source, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerSourceWithSettings creates a CircuitBreakerSource with custom settings
func NewCircuitBreakerSourceWithSettings(source Source, settings CircuitBreakerSettings) *CircuitBreakerSource {
	gbSettings := gobreaker.Settings{
		Name:        "FeedCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerSource{
		source:  source,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Snapshot wraps the underlying source call with circuit breaker
func (c *CircuitBreakerSource) Snapshot(ctx context.Context, underlying string) (chain.Snapshot, error) {
	return execBreaker(c.breaker, c.source, func(s Source) (chain.Snapshot, error) {
		return s.Snapshot(ctx, underlying)
	})
}

// Expirations wraps the underlying source call with circuit breaker
func (c *CircuitBreakerSource) Expirations(ctx context.Context, underlying string) ([]time.Time, error) {
	return execBreaker(c.breaker, c.source, func(s Source) ([]time.Time, error) {
		return s.Expirations(ctx, underlying)
	})
}
