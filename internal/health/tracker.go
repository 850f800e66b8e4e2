// Package health turns the outcome of driver requests into connection
// health events.
package health

import (
	"sync"
	"time"

	"github.com/efritz/glock"

	"github.com/efritz/memjoy/iface"
)

// Tracker synthesizes failure and reconnecting events for one connection.
// The first connection-level failure after a healthy period emits a failure
// event; the first success after a failure emits a reconnecting event with
// the total downtime. Events are dropped when the consumer falls behind.
type Tracker struct {
	server    string
	clock     glock.Clock
	events    chan iface.Event
	mutex     sync.Mutex
	downSince *time.Time
	closed    bool
}

// EventBufferSize is the number of undelivered events a tracker holds.
const EventBufferSize = 16

// NewTracker creates a tracker for the given server.
func NewTracker(server string, clock glock.Clock) *Tracker {
	if clock == nil {
		clock = glock.NewRealClock()
	}

	return &Tracker{
		server: server,
		clock:  clock,
		events: make(chan iface.Event, EventBufferSize),
	}
}

// Events returns the event stream. It is closed by Close.
func (t *Tracker) Events() <-chan iface.Event {
	return t.events
}

// Fail records a connection-level failure.
func (t *Tracker) Fail(err error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.downSince != nil {
		return
	}

	now := t.clock.Now()
	t.downSince = &now

	t.emit(iface.Event{
		Type:     iface.EventFailure,
		Server:   t.server,
		Messages: []string{err.Error()},
	})
}

// Succeed records a successful request.
func (t *Tracker) Succeed() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.downSince == nil {
		return
	}

	downtime := t.clock.Now().Sub(*t.downSince)
	t.downSince = nil

	t.emit(iface.Event{
		Type:          iface.EventReconnecting,
		Server:        t.server,
		TotalDownTime: downtime,
	})
}

// Down returns true if the last request failed at the connection level.
func (t *Tracker) Down() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.downSince != nil
}

// Close closes the event stream.
func (t *Tracker) Close() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

// Must be called with the mutex held.
func (t *Tracker) emit(event iface.Event) {
	if t.closed {
		return
	}

	select {
	case t.events <- event:
	default:
	}
}
