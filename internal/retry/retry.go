// Package retry wraps cenkalti/backoff/v4 with the exponential
// backoff-with-jitter policy the spec asks for at several call sites:
// source fetches (4.E), LLM calls (4.M) and web-enrichment calls (4.L).
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Classifier tells the retrier whether an error is worth retrying.
// Non-retryable errors (e.g. 4xx other than 429) are returned immediately.
type Classifier func(err error) bool

// Policy configures exponential backoff with jitter.
type Policy struct {
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxRetries uint64
}

// DefaultLLMPolicy matches 4.M: backoff 2->30s, max 3 retries.
func DefaultLLMPolicy() Policy {
	return Policy{MinDelay: 2 * time.Second, MaxDelay: 30 * time.Second, MaxRetries: 3}
}

// DefaultEnrichmentPolicy matches 4.L's web-enrichment retry budget.
func DefaultEnrichmentPolicy() Policy {
	return Policy{MinDelay: 1 * time.Second, MaxDelay: 15 * time.Second, MaxRetries: 3}
}

// ErrNonRetryable wraps an error to signal Do should stop immediately.
type ErrNonRetryable struct{ Err error }

func (e *ErrNonRetryable) Error() string { return e.Err.Error() }
func (e *ErrNonRetryable) Unwrap() error { return e.Err }

// Do runs fn, retrying on retryable errors under the given policy with
// exponential backoff and uniform jitter. A Classifier returning false
// stops retrying immediately (the 4xx-non-429 case).
func Do(ctx context.Context, policy Policy, classify Classifier, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.MinDelay
	b.MaxInterval = policy.MaxDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.3 // uniform jitter around the computed interval
	bo := backoff.WithContext(backoff.WithMaxRetries(b, policy.MaxRetries), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if classify != nil && !classify(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// jitter returns d +/- up to 30%, used by callers that roll their own loop
// instead of going through Do (kept for parity with 4.E's per-source retry
// of the robots-cache warmup, which isn't a backoff.Operation).
func jitter(d time.Duration) time.Duration {
	factor := 0.7 + rand.Float64()*0.6
	return time.Duration(float64(d) * factor)
}

// Jitter exposes jitter for other packages that need a single jittered
// delay rather than a full retry loop.
func Jitter(d time.Duration) time.Duration { return jitter(d) }

// IsTransient is the default Classifier: network errors, context
// deadline/cancel propagation aside, are treated as retryable; everything
// else must opt in via a more specific classifier at the call site.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var nonRetryable *ErrNonRetryable
	if errors.As(err, &nonRetryable) {
		return false
	}
	return true
}
