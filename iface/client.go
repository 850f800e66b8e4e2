package iface

import (
	"context"
	"time"
)

type (
	// Client is a goroutine-safe, pooled cache client. Every verb leases
	// a connection from the pool, runs the verb under a per-attempt timeout
	// and retry budget, and returns the connection to the pool exactly once.
	Client interface {
		// Close will close all open connections to the remote server.
		Close()

		// Do runs an arbitrary operation and returns its raw result. The
		// timeout, retry and base delay fields of the operation override
		// the client defaults when non-zero.
		Do(ctx context.Context, op *Operation) (*Result, error)

		// Batch returns a builder object to which operations can be
		// attached. All operations run in order on a single connection.
		Batch() Batch

		// Touch resets the lifetime of an existing key. The boolean is false
		// when the key does not exist.
		Touch(ctx context.Context, key string, lifetime time.Duration, configs ...CallFunc) (bool, error)

		// Get returns the value stored under key. The boolean is false on a
		// cache miss.
		Get(ctx context.Context, key string, configs ...CallFunc) ([]byte, bool, error)

		// Gets is like Get but also returns the item's flags and CAS token.
		Gets(ctx context.Context, key string, configs ...CallFunc) (*Item, bool, error)

		// GetMulti returns the values of every key that was found. Missing
		// keys are absent from the map.
		GetMulti(ctx context.Context, keys []string, configs ...CallFunc) (map[string][]byte, error)

		// Set stores a value unconditionally.
		Set(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error)

		// Replace stores a value only if the key already exists.
		Replace(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error)

		// Add stores a value only if the key does not exist.
		Add(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error)

		// CAS stores a value only if the item has not been modified since
		// the token was read with Gets.
		CAS(ctx context.Context, key string, value []byte, lifetime time.Duration, cas uint64, configs ...CallFunc) (bool, error)

		// Append adds data after the existing value. The boolean is false
		// when the key does not exist.
		Append(ctx context.Context, key string, value []byte, configs ...CallFunc) (bool, error)

		// Prepend adds data before the existing value.
		Prepend(ctx context.Context, key string, value []byte, configs ...CallFunc) (bool, error)

		// Incr increments a numeric value and returns the new value. The
		// boolean is false when the key does not exist.
		Incr(ctx context.Context, key string, delta uint64, configs ...CallFunc) (uint64, bool, error)

		// Decr decrements a numeric value, stopping at zero.
		Decr(ctx context.Context, key string, delta uint64, configs ...CallFunc) (uint64, bool, error)

		// Del removes a key. The boolean is false when it did not exist.
		Del(ctx context.Context, key string, configs ...CallFunc) (bool, error)

		// Version returns the server version.
		Version(ctx context.Context, configs ...CallFunc) ([]Info, error)

		// Flush invalidates every item on the server.
		Flush(ctx context.Context, configs ...CallFunc) (bool, error)

		// Stats returns the server's general statistics.
		Stats(ctx context.Context, configs ...CallFunc) ([]Info, error)

		// Settings returns the server's configuration.
		Settings(ctx context.Context, configs ...CallFunc) ([]Info, error)

		// Slabs returns per-slab statistics.
		Slabs(ctx context.Context, configs ...CallFunc) ([]Info, error)

		// Items returns per-slab item statistics.
		Items(ctx context.Context, configs ...CallFunc) ([]Info, error)

		// Cachedump lists up to limit keys stored in the given slab.
		Cachedump(ctx context.Context, slabID, limit int, configs ...CallFunc) ([]Info, error)

		// End closes the backend session of the leased connection. The
		// connection is removed from the pool afterwards.
		End(ctx context.Context, configs ...CallFunc) (bool, error)
	}

	// CallConfig holds the per-call timeout and retry policy.
	CallConfig struct {
		Timeout   time.Duration
		Retries   int
		BaseDelay *time.Duration
	}

	// CallFunc is a function used to configure a single call.
	CallFunc func(*CallConfig)
)
