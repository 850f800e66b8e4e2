package iface

import "context"

// Batch wraps an ordered sequence of operations which run back to back on
// a single leased connection. A batch does NOT guarantee atomicity: other
// clients may interleave with it on the server.
type Batch interface {
	// Add will attach an operation to this batch. The operation is not
	// sent to the remote server until Run is invoked.
	Add(op *Operation)

	// Run will execute all operations attached to this batch and return
	// their results in order. The batch is only retried while none of
	// its operations has completed.
	Run(ctx context.Context, configs ...CallFunc) ([]*Result, error)
}
