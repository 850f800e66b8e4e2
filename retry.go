package memjoy

import (
	"context"
	"time"

	"github.com/efritz/backoff"
	"github.com/efritz/glock"
)

type (
	// AttemptFunc performs a single attempt of an operation. The context
	// is cancelled once the executor stops waiting for the attempt.
	AttemptFunc func(ctx context.Context) (interface{}, error)

	// PrepareFunc runs on the caller's goroutine before each attempt and
	// binds the attempt to the resources it should use. An error before
	// the first attempt aborts the execution. A later error spends the
	// attempt without replacing the last observed failure.
	PrepareFunc func(ctx context.Context) (AttemptFunc, error)

	// RetryPolicy bounds the time and number of attempts of an operation.
	RetryPolicy struct {
		// Timeout bounds each attempt. Zero disables the timeout.
		Timeout time.Duration

		// Retries is the number of attempts made after the first.
		Retries int

		// BaseDelay is the delay before the first retry. The delay before
		// retry n is n * BaseDelay.
		BaseDelay time.Duration
	}

	// RetryExecutor runs an attempt function under a per-attempt timeout
	// and a bounded, linearly backed-off retry budget. Attempts of a single
	// execution never overlap.
	RetryExecutor struct {
		clock  glock.Clock
		logger Logger
	}

	retryState int

	attemptResult struct {
		value interface{}
		err   error
	}
)

const (
	stateAttempting retryState = iota
	stateWaiting
	stateSucceeded
	stateFailed
)

// NewRetryExecutor creates a RetryExecutor.
func NewRetryExecutor(clock glock.Clock, logger Logger) *RetryExecutor {
	if clock == nil {
		clock = glock.NewRealClock()
	}

	if logger == nil {
		logger = NewNilLogger()
	}

	return &RetryExecutor{
		clock:  clock,
		logger: logger,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}

	return p.Retries + 1
}

// Backoff returns a fresh backoff whose nth interval is n * BaseDelay.
func (p RetryPolicy) Backoff() backoff.Backoff {
	return backoff.NewLinearBackoff(
		p.BaseDelay,
		p.BaseDelay,
		p.BaseDelay*time.Duration(p.Attempts()),
	)
}

// Execute runs attempt until it succeeds or the policy's attempt budget is
// spent. On failure the last observed error is returned, wrapped in a
// RetriesExhaustedError when the policy allowed retries and all of them
// were used.
func (e *RetryExecutor) Execute(ctx context.Context, verb Verb, policy RetryPolicy, attempt AttemptFunc) (interface{}, error) {
	prepare := func(ctx context.Context) (AttemptFunc, error) {
		return attempt, nil
	}

	return e.ExecuteWith(ctx, verb, policy, prepare, nil)
}

// ExecuteWith is like Execute, but each attempt is produced by prepare. The
// onFailure hook, if non-nil, is invoked synchronously after each failed
// attempt and before the next one is prepared.
func (e *RetryExecutor) ExecuteWith(
	ctx context.Context,
	verb Verb,
	policy RetryPolicy,
	prepare PrepareFunc,
	onFailure func(err error),
) (interface{}, error) {
	var (
		state  = stateAttempting
		delays = policy.Backoff()
		number = 0
		wait   <-chan time.Time
		value  interface{}
		err    error
	)

	for {
		switch state {
		case stateAttempting:
			attempt, prepareErr := prepare(ctx)
			if prepareErr != nil && number == 0 {
				return nil, prepareErr
			}

			number++

			if prepareErr != nil {
				// The attempt is spent but the last failure stands
				e.logger.Log(LevelWarn, "memcached.%s() could not prepare attempt %d: %s", verb, number, prepareErr.Error())

				if ctx.Err() != nil {
					err = ctx.Err()
				}
			} else {
				e.logger.Log(LevelDebug, "memcached.%s() try %d times", verb, number)

				if value, err = e.attempt(ctx, verb, number, policy.Timeout, attempt); err == nil {
					state = stateSucceeded
					continue
				}

				if onFailure != nil {
					onFailure(err)
				}
			}

			if number >= policy.Attempts() || isPermanent(err) || ctx.Err() != nil {
				state = stateFailed
				continue
			}

			wait = e.clock.After(delays.NextInterval())
			state = stateWaiting

		case stateWaiting:
			select {
			case <-wait:
				state = stateAttempting
			case <-ctx.Done():
				err = ctx.Err()
				state = stateFailed
			}

		case stateSucceeded:
			return value, nil

		case stateFailed:
			return nil, e.terminalError(verb, policy, number, err)
		}
	}
}

// Run a single attempt in its own goroutine. If the attempt does not finish
// within the timeout its context is cancelled and its eventual result is
// discarded.
func (e *RetryExecutor) attempt(
	ctx context.Context,
	verb Verb,
	number int,
	timeout time.Duration,
	attempt AttemptFunc,
) (interface{}, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan attemptResult, 1)

	go func() {
		value, err := attempt(attemptCtx)
		ch <- attemptResult{value, err}
	}()

	var timeoutPtr *time.Duration
	if timeout > 0 {
		timeoutPtr = &timeout
	}

	select {
	case result := <-ch:
		return result.value, result.err

	case <-makeTimeoutChan(timeoutPtr, e.clock):
		return nil, &TimeoutError{Verb: verb, Timeout: timeout, Attempt: number}

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *RetryExecutor) terminalError(verb Verb, policy RetryPolicy, attempts int, err error) error {
	if permanent, ok := err.(*permanentError); ok {
		return permanent.err
	}

	if policy.Retries > 0 && attempts >= policy.Attempts() {
		return &RetriesExhaustedError{Verb: verb, Attempts: attempts, Err: err}
	}

	return err
}
