package email

import (
	"context"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"meetsync/internal/domain"
	"meetsync/internal/metrics"
)

// BreakerConfig tunes the circuit breaker placed in front of a remote mailer.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// breakerMailer stops calling the provider after consecutive failures so that
// notification side effects fail fast instead of stalling invitation requests.
type breakerMailer struct {
	next domain.Mailer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerMailer wraps next with a circuit breaker. While open, Send returns
// gobreaker.ErrOpenState without calling next.
func NewBreakerMailer(next domain.Mailer, cfg BreakerConfig, logger *slog.Logger) domain.Mailer {
	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.MailerBreakerState.Set(float64(to))
			logger.Warn("mailer circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}
	return &breakerMailer{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *breakerMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}
