package memjoy

import (
	"errors"
	"fmt"
	"time"

	"github.com/efritz/memjoy/iface"
)

type (
	// AcquireError is returned when the pool could not produce a connection.
	// The verb is never attempted in this case.
	AcquireError struct {
		Err error
	}

	// TimeoutError is returned when an attempt did not complete within the
	// per-attempt timeout. The abandoned request may still complete on the
	// server.
	TimeoutError struct {
		Verb    iface.Verb
		Timeout time.Duration
		Attempt int
	}

	// BackendError wraps an operation-level failure reported by the driver.
	BackendError struct {
		Verb iface.Verb
		Err  error
	}

	// RetriesExhaustedError wraps the last failure of an operation whose
	// retry budget was spent.
	RetriesExhaustedError struct {
		Verb     iface.Verb
		Attempts int
		Err      error
	}

	permanentError struct {
		err error
	}
)

var (
	// ErrNoConnection is returned (wrapped in an AcquireError) when the
	// borrow timeout elapses.
	ErrNoConnection = errors.New("no connection available in pool")

	// ErrPoolClosed is returned (wrapped in an AcquireError) when the pool
	// has been closed.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrUnsupportedVerb is returned by drivers which cannot express a verb.
	ErrUnsupportedVerb = iface.ErrUnsupportedVerb
)

func (e *AcquireError) Error() string {
	return fmt.Sprintf("could not acquire connection (%s)", e.Err.Error())
}

func (e *AcquireError) Unwrap() error { return e.Err }

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s attempt %d timed out after %s", e.Verb, e.Attempt, e.Timeout)
}

// Timeout makes TimeoutError satisfy the net.Error style timeout check.
func (e *TimeoutError) Timeout() bool { return true }

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed (%s)", e.Verb, e.Err.Error())
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %s", e.Verb, e.Attempts, e.Err.Error())
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an attempt failure as non-retryable. The retry executor
// stops immediately and returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err}
}

func isPermanent(err error) bool {
	var permanent *permanentError
	return errors.As(err, &permanent)
}

func isTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}
