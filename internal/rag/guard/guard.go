package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrCircuitOpen = errors.New("circuit open")

type Settings struct {
	Name              string
	Attempts          int
	Backoff           time.Duration
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
	// Transient reports whether an error is worth retrying. Defaults to
	// IsTransientGRPC.
	Transient func(error) bool
}

// Guard wraps calls to a remote dependency with a rate limit, a circuit
// breaker and bounded retries with linear backoff.
type Guard struct {
	name      string
	attempts  int
	backoff   time.Duration
	transient func(error) bool
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    *logger_i.Logger
}

func New(s Settings) *Guard {
	if s.Attempts <= 0 {
		s.Attempts = 1
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = config.BreakerFailureThreshold
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = config.BreakerOpenTimeout
	}
	if s.Transient == nil {
		s.Transient = IsTransientGRPC
	}

	limit := rate.Inf
	if s.RequestsPerSecond > 0 {
		limit = rate.Limit(s.RequestsPerSecond)
	}
	burst := s.Burst
	if burst <= 0 {
		burst = 1
	}

	log := logger_i.NewLogger("Guard").With("dependency", s.Name)
	g := &Guard{
		name:      s.Name,
		attempts:  s.Attempts,
		backoff:   s.Backoff,
		transient: s.Transient,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    log,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change", "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		// permanent errors say nothing about the health of the dependency
		IsSuccessful: func(err error) bool {
			return err == nil || !s.Transient(err)
		},
	})
	return g
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	log := g.logger.WithTrace(ctx)
	var err error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err = g.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err = g.breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", g.name, ErrCircuitOpen)
		}
		if !g.transient(err) || attempt == g.attempts {
			break
		}

		wait := g.backoff * time.Duration(attempt)
		log.Warn("Transient failure, retrying", "attempt", attempt, "wait", wait, "error", err)
		metrics.DependencyRetries.WithLabelValues(g.name).Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// IsTransientGRPC treats throttling and availability codes as retryable.
func IsTransientGRPC(err error) bool {
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

// IsTransientHTTP is the status-code rule shared by the HTTP providers.
func IsTransientHTTP(code int) bool {
	return code == 429 || code >= 500
}
