// Package breaker guards the database lookups on the connection path with
// circuit breakers, so a struggling database fails handshakes fast instead
// of stacking them up.
package breaker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/fieldservice-realtime/internal/config"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker names, used as metric labels.
const (
	NameSessions    = "session-store"
	NameTeamMembers = "team-members"
	NameUsers       = "users"
)

// expected reports errors that are answers rather than failures: a missing
// row or an expired session must not trip the breaker.
type expected func(error) bool

func newBreaker[T any](name string, cfg config.BreakerConfig, isExpected expected, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if trip {
				logger.Warn("opening circuit breaker",
					"breaker", name,
					"consecutive_failures", counts.ConsecutiveFailures,
				)
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state transition",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || isExpected(err)
		},
	})
}

// execute runs fn through cb and records the outcome.
func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "failure").Inc()
	}
	return result, err
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
