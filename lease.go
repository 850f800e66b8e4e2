package memjoy

import "context"

// lease tracks the connection held by one call. A call may hold several
// connections over its lifetime (one is discarded after a timed out attempt
// and another one is acquired for the next attempt), but never more than one
// at once. Every acquired connection is released or destroyed exactly once.
// A lease is only used from the caller's goroutine.
type lease struct {
	client *client
	conn   Conn
}

// Return the held connection, acquiring one if necessary.
func (l *lease) ensure(ctx context.Context) (Conn, error) {
	if l.conn != nil {
		return l.conn, nil
	}

	conn, err := l.client.timedBorrow(ctx)
	if err != nil {
		return nil, err
	}

	l.conn = conn
	return conn, nil
}

// Destroy the held connection.
func (l *lease) discard() {
	if l.conn == nil {
		return
	}

	l.client.pool.Destroy(l.conn)
	l.conn = nil
}

// Release the held connection back to the pool.
func (l *lease) release() {
	if l.conn == nil {
		return
	}

	l.client.pool.Release(l.conn)
	l.conn = nil
}
