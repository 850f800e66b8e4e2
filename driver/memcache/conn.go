// Package memcache is a backend driver which speaks the memcached text
// protocol through gomemcache.
package memcache

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	gomemcache "github.com/bradfitz/gomemcache/memcache"
	"github.com/efritz/glock"

	"github.com/efritz/memjoy/iface"
	"github.com/efritz/memjoy/internal/health"
)

type (
	conn struct {
		client    *gomemcache.Client
		tracker   *health.Tracker
		clock     glock.Clock
		closeOnce sync.Once
		closeErr  error
	}

	dialerConfig struct {
		timeout time.Duration
		clock   glock.Clock
	}

	// ConfigFunc is a function used to configure a dialer.
	ConfigFunc func(*dialerConfig)
)

// maxRelativeExpiration is the largest lifetime memcached interprets as
// relative to now. Larger values are sent as absolute unix timestamps.
const maxRelativeExpiration = 30 * 24 * time.Hour

// WithTimeout sets the socket read/write and connect timeout (default is
// gomemcache's DefaultTimeout).
func WithTimeout(timeout time.Duration) ConfigFunc {
	return func(c *dialerConfig) { c.timeout = timeout }
}

// WithClock sets the clock used for downtime and expiration arithmetic.
func WithClock(clock glock.Clock) ConfigFunc {
	return func(c *dialerConfig) { c.clock = clock }
}

// NewDialer creates a function which dials a new connection on each call.
func NewDialer(addrs []string, configs ...ConfigFunc) func() (iface.Conn, error) {
	return func() (iface.Conn, error) {
		return Dial(addrs, configs...)
	}
}

// Dial creates a connection to the given memcached servers. Keys are
// distributed over multiple servers by gomemcache's server selector.
func Dial(addrs []string, configs ...ConfigFunc) (iface.Conn, error) {
	config := &dialerConfig{
		timeout: gomemcache.DefaultTimeout,
		clock:   glock.NewRealClock(),
	}

	for _, f := range configs {
		f(config)
	}

	if len(addrs) == 0 {
		return nil, gomemcache.ErrNoServers
	}

	client := gomemcache.New(addrs...)
	client.Timeout = config.timeout
	client.MaxIdleConns = 1

	if err := client.Ping(); err != nil {
		return nil, err
	}

	return &conn{
		client:  client,
		tracker: health.NewTracker(strings.Join(addrs, ","), config.clock),
		clock:   config.clock,
	}, nil
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
		c.tracker.Close()
	})

	return c.closeErr
}

func (c *conn) Events() <-chan iface.Event {
	return c.tracker.Events()
}

func (c *conn) Do(ctx context.Context, op *iface.Operation) (*iface.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.do(op)
	return result, c.wrapError(err)
}

func (c *conn) do(op *iface.Operation) (*iface.Result, error) {
	switch op.Verb {
	case iface.VerbTouch:
		return c.ok(c.client.Touch(op.Key(), c.expiration(op.Lifetime)), gomemcache.ErrCacheMiss)

	case iface.VerbGet, iface.VerbGets:
		item, err := c.client.Get(op.Key())
		if err == gomemcache.ErrCacheMiss {
			return &iface.Result{}, nil
		}

		if err != nil {
			return nil, err
		}

		return &iface.Result{Found: true, Value: item.Value, Flags: item.Flags, CAS: item.CasID}, nil

	case iface.VerbGetMulti:
		items, err := c.client.GetMulti(op.Keys)
		if err != nil {
			return nil, err
		}

		values := make(map[string][]byte, len(items))
		for key, item := range items {
			values[key] = item.Value
		}

		return &iface.Result{OK: true, Values: values}, nil

	case iface.VerbSet:
		return c.ok(c.client.Set(c.item(op)))

	case iface.VerbAdd:
		return c.ok(c.client.Add(c.item(op)), gomemcache.ErrNotStored)

	case iface.VerbReplace:
		return c.ok(c.client.Replace(c.item(op)), gomemcache.ErrNotStored)

	case iface.VerbCAS:
		return c.ok(c.client.CompareAndSwap(c.item(op)), gomemcache.ErrCASConflict, gomemcache.ErrNotStored, gomemcache.ErrCacheMiss)

	case iface.VerbAppend:
		return c.ok(c.client.Append(c.item(op)), gomemcache.ErrNotStored)

	case iface.VerbPrepend:
		return c.ok(c.client.Prepend(c.item(op)), gomemcache.ErrNotStored)

	case iface.VerbIncr:
		return c.counter(c.client.Increment(op.Key(), op.Delta))

	case iface.VerbDecr:
		return c.counter(c.client.Decrement(op.Key(), op.Delta))

	case iface.VerbDel:
		return c.ok(c.client.Delete(op.Key()), gomemcache.ErrCacheMiss)

	case iface.VerbFlush:
		return c.ok(c.client.FlushAll())

	case iface.VerbEnd:
		return c.ok(c.Close())
	}

	// gomemcache does not expose version, stats, settings, slabs, items
	// or cachedump.
	return nil, iface.ErrUnsupportedVerb
}

// Convert an error into a boolean result. The given sentinel errors are
// logical failures and produce a false result.
func (c *conn) ok(err error, logical ...error) (*iface.Result, error) {
	if err == nil {
		return &iface.Result{OK: true}, nil
	}

	for _, sentinel := range logical {
		if err == sentinel {
			return &iface.Result{OK: false}, nil
		}
	}

	return nil, err
}

func (c *conn) counter(value uint64, err error) (*iface.Result, error) {
	if err == gomemcache.ErrCacheMiss {
		return &iface.Result{}, nil
	}

	if err != nil {
		return nil, err
	}

	return &iface.Result{Found: true, Counter: value}, nil
}

func (c *conn) item(op *iface.Operation) *gomemcache.Item {
	return &gomemcache.Item{
		Key:        op.Key(),
		Value:      op.Value,
		Flags:      op.Flags,
		Expiration: c.expiration(op.Lifetime),
		CasID:      op.CAS,
	}
}

func (c *conn) expiration(lifetime time.Duration) int32 {
	if lifetime <= 0 {
		return 0
	}

	if lifetime > maxRelativeExpiration {
		return int32(c.clock.Now().Add(lifetime).Unix())
	}

	// Zero means never expire, so short lifetimes round up
	if lifetime < time.Second {
		return 1
	}

	return int32(lifetime / time.Second)
}

// Report the request outcome to the health tracker and wrap errors after
// which the session can no longer be trusted.
func (c *conn) wrapError(err error) error {
	if err == nil || !isConnectionError(err) {
		c.tracker.Succeed()
		return err
	}

	c.tracker.Fail(err)
	return iface.ConnError{Err: err}
}

func isConnectionError(err error) bool {
	var (
		netErr     net.Error
		timeoutErr *gomemcache.ConnectTimeoutError
	)

	return errors.As(err, &netErr) ||
		errors.As(err, &timeoutErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, gomemcache.ErrNoServers)
}
