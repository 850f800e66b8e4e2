package iface

import (
	"context"
	"errors"
	"time"
)

type (
	// Conn abstracts a single session with a cache backend. A connection
	// performs exactly one operation at a time; the pool guarantees that it
	// is owned by at most one caller between acquire and release.
	Conn interface {
		// Close the session with the remote server. Calling Close more
		// than once must be safe.
		Close() error

		// Do performs a single cache verb on the remote server and returns
		// its result. A logical miss (unknown key, value not stored, CAS
		// conflict) is reported through the result and not as an error.
		Do(ctx context.Context, op *Operation) (*Result, error)
	}

	// Notifier is implemented by connections which report asynchronous
	// health events. The channel is closed when the connection is closed.
	Notifier interface {
		Events() <-chan Event
	}

	// ConnError wraps an error after which the connection that produced it
	// can no longer be trusted. Such connections are destroyed rather than
	// returned to the pool.
	ConnError struct {
		Err error
	}
)

// ErrUnsupportedVerb is returned by drivers that cannot express a verb.
var ErrUnsupportedVerb = errors.New("verb not supported by driver")

func (e ConnError) Error() string { return e.Err.Error() }
func (e ConnError) Unwrap() error { return e.Err }

// IsConnError returns true if the given error (or one that it wraps) is a
// connection-level failure.
func IsConnError(err error) bool {
	var connErr ConnError
	return errors.As(err, &connErr)
}

// EventType distinguishes the kinds of health events a connection emits.
type EventType int

const (
	// EventFailure is emitted when the backend server went down.
	EventFailure EventType = iota

	// EventReconnecting is emitted when the driver re-established its
	// session after a failure.
	EventReconnecting
)

func (t EventType) String() string {
	switch t {
	case EventFailure:
		return "failure"
	case EventReconnecting:
		return "reconnecting"
	}

	return "unknown"
}

// Event is a health notification emitted by a connection.
type Event struct {
	Type          EventType
	Server        string
	Messages      []string
	TotalDownTime time.Duration
}
