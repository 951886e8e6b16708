package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"campground_ingest/internal/adapters/observability"
	"campground_ingest/internal/domain"
)

// RetryPolicy bounds the retry controller. Delay grows linearly:
// BaseDelay after the first failure, 2*BaseDelay after the second, ...
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// RetryingFetcher wraps a LocationFetcher and retries transient failures.
type RetryingFetcher struct {
	next   domain.LocationFetcher
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) bool
}

func NewRetryingFetcher(next domain.LocationFetcher, p RetryPolicy) *RetryingFetcher {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return &RetryingFetcher{next: next, policy: p, sleep: sleepCtx}
}

func (r *RetryingFetcher) SearchLocations(ctx context.Context, req domain.FetchRequest) (domain.RawPage, error) {
	var last *domain.FetchError
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		page, err := r.next.SearchLocations(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return domain.RawPage{}, ctx.Err()
		}

		var fe *domain.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() {
			return domain.RawPage{}, err
		}
		last = fe

		if attempt == r.policy.MaxAttempts {
			break
		}

		wait := r.policy.BaseDelay * time.Duration(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("status", fe.StatusCode).
			Dur("backoff", wait).
			Msg("upstream fetch failed, retrying")
		observability.ObserveRetry(fe.StatusCode)

		// context-aware sleep before retry
		if !r.sleep(ctx, wait) {
			return domain.RawPage{}, ctx.Err()
		}
	}

	return domain.RawPage{}, &domain.FetchError{
		Kind:       domain.FetchMaxRetriesExceeded,
		StatusCode: last.StatusCode,
		Message:    last.Message,
		Attempts:   r.policy.MaxAttempts,
		Err:        last,
	}
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
