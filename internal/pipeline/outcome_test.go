package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
	"github.com/henrybloomingdale/pubmed-digest/internal/digest"
	"github.com/henrybloomingdale/pubmed-digest/internal/eutils"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"client timeout", fmt.Errorf("fetch: %w", context.DeadlineExceeded), KindRequest},
		{"open circuit", gobreaker.ErrOpenState, KindCircuitOpen},
		{"half-open limit", gobreaker.ErrTooManyRequests, KindCircuitOpen},
		{"status", fmt.Errorf("fetch: %w", &eutils.StatusError{Code: 404}), KindStatus},
		{"excluded", &digest.SkipError{PMID: "1", Reason: digest.ReasonExcluded}, KindExcluded},
		{"malformed", &digest.SkipError{PMID: "1", Reason: digest.ReasonMalformed}, KindMalformed},
		{"no article", &digest.SkipError{PMID: "1", Reason: digest.ReasonNoArticle}, KindNoArticle},
		{"transport", errors.New("dial tcp: connection refused"), KindRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(context.Background(), tt.err))
		})
	}
}

func TestClassify_RunContextDone(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	err := fmt.Errorf("fetch: %w", context.Canceled)
	assert.Equal(t, KindCancelled, Classify(cancelled, err))
	assert.Equal(t, KindCancelled, Classify(expired, fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.Equal(t, FailureKind(""), Classify(cancelled, nil))
}

func TestSummary(t *testing.T) {
	var s Summary
	assert.Zero(t, s.TotalSkipped())
	assert.Empty(t, s.Kinds())
	assert.ErrorIs(t, s.Err(), ErrNoRecords)

	s.skip(KindStatus, 2)
	s.skip(KindExcluded, 1)
	s.skip(KindStatus, 1)
	s.Retained = 4

	assert.Equal(t, 4, s.TotalSkipped())
	assert.Equal(t, []FailureKind{KindExcluded, KindStatus}, s.Kinds())
	assert.NoError(t, s.Err())
}

func TestNewBreaker_Disabled(t *testing.T) {
	b := NewBreaker(config.BreakerConfig{}, zerolog.Nop())
	require.Nil(t, b)

	calls := 0
	for i := 0; i < 5; i++ {
		_, err := b.Do(func() ([]byte, error) {
			calls++
			return nil, errors.New("boom")
		})
		assert.EqualError(t, err, "boom")
	}
	assert.Equal(t, 5, calls)
}

func TestBreaker_PassesBody(t *testing.T) {
	b := NewBreaker(config.BreakerConfig{ConsecutiveFailures: 1, Cooldown: time.Minute}, zerolog.Nop())
	body, err := b.Do(func() ([]byte, error) { return []byte("<x/>"), nil })
	require.NoError(t, err)
	assert.Equal(t, []byte("<x/>"), body)
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	b := NewBreaker(config.BreakerConfig{ConsecutiveFailures: 1, Cooldown: time.Minute}, zerolog.Nop())

	_, err := b.Do(func() ([]byte, error) { return nil, context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)

	_, err = b.Do(func() ([]byte, error) { return []byte("ok"), nil })
	assert.NoError(t, err, "a cancelled call must not trip the breaker")
}

func TestBreaker_RecoversAfterCooldown(t *testing.T) {
	b := NewBreaker(config.BreakerConfig{ConsecutiveFailures: 1, Cooldown: 20 * time.Millisecond}, zerolog.Nop())

	_, err := b.Do(func() ([]byte, error) { return nil, errors.New("down") })
	require.Error(t, err)

	_, err = b.Do(func() ([]byte, error) { return []byte("ok"), nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	time.Sleep(40 * time.Millisecond)
	body, err := b.Do(func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}
