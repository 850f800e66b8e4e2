package memory

import (
	"context"
	"sync"

	"github.com/efritz/memjoy/iface"
	"github.com/efritz/memjoy/internal/health"
)

type conn struct {
	server  *Server
	tracker *health.Tracker
	mutex   sync.Mutex
	closed  bool
}

func (c *conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.server.disconnect(c)
	c.tracker.Close()
	return nil
}

func (c *conn) Events() <-chan iface.Event {
	return c.tracker.Events()
}

func (c *conn) Do(ctx context.Context, op *iface.Operation) (*iface.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.isClosed() {
		return nil, iface.ConnError{Err: ErrConnClosed}
	}

	latency, down, err := c.server.admit()
	if down {
		c.tracker.Fail(err)
		return nil, iface.ConnError{Err: err}
	}

	if err != nil {
		if iface.IsConnError(err) {
			c.tracker.Fail(err)
		}

		return nil, err
	}

	if latency > 0 {
		select {
		case <-c.server.clock.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if op.Verb == iface.VerbEnd {
		return &iface.Result{OK: true}, c.Close()
	}

	result, err := c.server.execute(op)
	if err == nil {
		c.tracker.Succeed()
	}

	return result, err
}

func (c *conn) isClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.closed
}
