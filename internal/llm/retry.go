package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/avvvet/hotel-concierge/internal/metrics"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often and how long embedding calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, MinDelay: time.Second, MaxDelay: 20 * time.Second}
}

// Backoff returns a random delay for the given failed attempt (1-based).
// The upper bound doubles per attempt and is capped at MaxDelay; the
// result is never below MinDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	upper := p.MinDelay
	for i := 1; i < attempt && upper < p.MaxDelay; i++ {
		upper *= 2
	}
	if upper > p.MaxDelay {
		upper = p.MaxDelay
	}
	if upper <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + time.Duration(rand.Int64N(int64(upper-p.MinDelay)+1))
}

// RetryingEmbedder retries the wrapped embedder under a RetryPolicy.
type RetryingEmbedder struct {
	next   Embedder
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingEmbedder(next Embedder, policy RetryPolicy, logger *zap.Logger) *RetryingEmbedder {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryingEmbedder{next: next, policy: policy, logger: logger, sleep: sleepContext}
}

func (r *RetryingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		vectors, err := r.next.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Backoff(attempt)
		metrics.EmbeddingRetries.Inc()
		r.logger.Warn("embedding call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, NewTimeoutError(err)
		}
	}
	return nil, fmt.Errorf("embedding failed after retries: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
