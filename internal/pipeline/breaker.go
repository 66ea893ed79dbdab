package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
)

// Breaker stops issuing detail requests after repeated transport failures.
// A nil *Breaker passes every call through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns nil when cfg.ConsecutiveFailures is zero.
func NewBreaker(cfg config.BreakerConfig, logger zerolog.Logger) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		return nil
	}
	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        "efetch",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("circuit", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker.
func (b *Breaker) Do(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}
