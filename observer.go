package memjoy

import (
	"strings"

	"github.com/efritz/memjoy/iface"
)

type (
	// Event is a health notification emitted by a connection.
	Event = iface.Event

	// FailureObserver translates connection health events into log
	// records. It never alters control flow.
	FailureObserver struct {
		logger Logger
	}
)

// NewFailureObserver creates a FailureObserver writing to the given logger.
func NewFailureObserver(logger Logger) *FailureObserver {
	return &FailureObserver{logger: logger}
}

// Observe logs a single health event.
func (o *FailureObserver) Observe(event Event) {
	switch event.Type {
	case iface.EventFailure:
		o.logger.Log(LevelError, "server %s went down due to: %s", event.Server, strings.Join(event.Messages, ""))

	case iface.EventReconnecting:
		o.logger.Log(LevelDebug, "downtime caused by server %s: %d ms", event.Server, event.TotalDownTime.Milliseconds())
	}
}

// Watch consumes the event stream of a connection until it is closed.
// The given hook, if non-nil, is invoked after each event is logged.
func (o *FailureObserver) Watch(events <-chan Event, hook func(Event)) {
	for event := range events {
		o.Observe(event)

		if hook != nil {
			hook(event)
		}
	}
}
