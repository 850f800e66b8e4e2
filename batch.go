package memjoy

import (
	"context"
	"errors"
	"fmt"

	"github.com/efritz/memjoy/iface"
)

type (
	// Batch wraps an ordered sequence of operations which run back to
	// back on a single leased connection.
	Batch = iface.Batch

	batch struct {
		client     *client
		operations []*Operation
	}
)

// VerbBatch names batches in logs, metrics and traces.
const VerbBatch Verb = "batch"

// ErrPartialBatch is returned (wrapped) when a batch failed after some of
// its operations completed. Such a batch is never retried.
var ErrPartialBatch = errors.New("batch failed after partial completion")

func newBatch(client *client) Batch {
	return &batch{
		client:     client,
		operations: []*Operation{},
	}
}

// Add will attach an operation to this batch. The operation is not sent
// to the remote server until Run is invoked.
func (b *batch) Add(op *Operation) {
	b.operations = append(b.operations, op)
}

// Run will execute all operations attached to this batch on one connection
// and return their results in order.
func (b *batch) Run(ctx context.Context, configs ...CallFunc) ([]*Result, error) {
	keys := []string{}
	for _, op := range b.operations {
		keys = append(keys, op.Keys...)
	}

	value, err := b.client.run(ctx, VerbBatch, keys, configs, func(ctx context.Context, conn Conn) (interface{}, bool, error) {
		results := make([]*Result, 0, len(b.operations))
		terminated := false

		for _, op := range b.operations {
			result, err := conn.Do(ctx, op)
			if err != nil {
				// After this point we can't safely retry: operations
				// which already completed are not idempotent in general.
				if len(results) > 0 {
					return nil, false, Permanent(&partialBatchError{completed: len(results), err: err})
				}

				return nil, false, err
			}

			if result == nil {
				result = &Result{}
			}

			results = append(results, result)

			if op.Verb == iface.VerbEnd {
				terminated = true
				break
			}
		}

		return results, terminated, nil
	})

	if err != nil {
		return nil, err
	}

	return value.([]*Result), nil
}

type partialBatchError struct {
	completed int
	err       error
}

func (e *partialBatchError) Error() string {
	return fmt.Sprintf("%s (%d completed): %s", ErrPartialBatch.Error(), e.completed, e.err.Error())
}

func (e *partialBatchError) Unwrap() []error {
	return []error{ErrPartialBatch, e.err}
}
