package collector

import (
	"context"
	"fmt"
	"time"
)

// AttemptOutcome classifies one attempt.
type AttemptOutcome string

const (
	OutcomeSuccess           AttemptOutcome = "success"
	OutcomeParseFailure      AttemptOutcome = "parse_failure"
	OutcomeInvocationFailure AttemptOutcome = "invocation_failure"
)

// AttemptRecord describes one attempt. Attempt is 0-based. Retrying reports whether another
// attempt follows, after Delay.
type AttemptRecord struct {
	Attempt  int
	Outcome  AttemptOutcome
	Err      error
	Retrying bool
	Delay    time.Duration
}

// RetryPolicy bounds a unit of work.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Result is the terminal state of a retried unit of work. A non-nil Err marks a terminal
// failure; it is a value, not a failure of the caller.
type Result[T any] struct {
	Value    T
	Attempts int
	Err      error
}

// Failed reports whether every attempt failed.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// RunWithRetry invokes the agent and extracts a payload from its answer until one attempt
// succeeds or the policy is exhausted. An invocation error and an extraction failure are
// both retried after the policy delay. record is called for every attempt before the next
// one starts and before RunWithRetry returns.
//
// invoke runs under a context that ignores ctx's cancellation so an attempt in flight is
// never torn down; cancellation only stops further attempts from being scheduled.
func RunWithRetry[T any](
	ctx context.Context,
	policy RetryPolicy,
	invoke func(context.Context) (string, error),
	extract func(string) (T, error),
	record func(AttemptRecord),
) Result[T] {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if record == nil {
		record = func(AttemptRecord) {}
	}
	invokeCtx := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		rec := AttemptRecord{Attempt: attempt}

		text, err := invoke(invokeCtx)
		if err != nil {
			rec.Outcome = OutcomeInvocationFailure
			rec.Err = ErrInvocation{Err: err}
		} else {
			value, xerr := extract(text)
			if xerr == nil {
				rec.Outcome = OutcomeSuccess
				record(rec)
				return Result[T]{Value: value, Attempts: attempt + 1}
			}
			rec.Outcome = OutcomeParseFailure
			rec.Err = ErrExtraction{Err: xerr}
		}
		lastErr = rec.Err

		more := attempt+1 < maxAttempts
		if more && ctx.Err() == nil {
			rec.Retrying = true
			rec.Delay = policy.Delay
		}
		record(rec)

		if !more {
			break
		}
		if err := sleepContext(ctx, policy.Delay); err != nil {
			return Result[T]{
				Attempts: attempt + 1,
				Err:      fmt.Errorf("%w after %d attempt(s): %w", err, attempt+1, lastErr),
			}
		}
	}

	return Result[T]{
		Attempts: maxAttempts,
		Err:      ErrExhausted{Attempts: maxAttempts, Err: lastErr},
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
