package iface

import (
	"context"
	"time"
)

// Pool abstracts a bounded pool of backend connections.
type Pool interface {
	// Close will close every idle connection and fail every pending
	// acquire. Connections which are still in use are closed when they
	// are released or destroyed.
	Close()

	// Acquire will block until a connection is available in the pool
	// or a new one may be dialed. Waiters are served in request order.
	Acquire(ctx context.Context) (Conn, error)

	// AcquireTimeout is like Acquire, but fails with ErrNoConnection if
	// no connection becomes available before the timeout elapses.
	AcquireTimeout(ctx context.Context, timeout time.Duration) (Conn, error)

	// Release returns a connection to the pool. This method must be called
	// at most once for each successful acquire. Releasing a connection
	// which is not currently issued is reported and otherwise ignored.
	Release(conn Conn)

	// Destroy closes the connection and frees its slot in the pool. It is
	// an alternative to Release for connections which are unusable.
	Destroy(conn Conn)

	// Stats returns a snapshot of the pool's bookkeeping.
	Stats() PoolStats
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Min         int
	Max         int
	Idle        int
	Outstanding int
	Waiters     int
}
