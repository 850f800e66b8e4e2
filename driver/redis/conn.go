// Package redis is a backend driver which stores memcached-style items in
// Redis. Each item is a hash holding its value, flags and CAS token; every
// mutation runs as a Lua script so that it is atomic on the server.
package redis

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/efritz/glock"
	"github.com/gomodule/redigo/redis"

	"github.com/efritz/memjoy/iface"
	"github.com/efritz/memjoy/internal/health"
)

type (
	conn struct {
		addr      string
		conn      redis.Conn
		dial      func() (redis.Conn, error)
		tracker   *health.Tracker
		mutex     sync.Mutex
		closed    bool
		closeOnce sync.Once
		closeErr  error
	}

	dialerConfig struct {
		password       string
		database       int
		connectTimeout time.Duration
		readTimeout    time.Duration
		writeTimeout   time.Duration
		clock          glock.Clock
	}

	// ConfigFunc is a function used to configure a dialer.
	ConfigFunc func(*dialerConfig)
)

// CASCounterKey is the key of the counter which issues CAS tokens.
const CASCounterKey = "memjoy:cas"

var (
	storeScript = redis.NewScript(1, `
local exists = redis.call('EXISTS', KEYS[1]) == 1
local mode = ARGV[1]
if mode == 'add' then
	if exists then return 0 end
elseif mode ~= 'set' and not exists then
	return 0
end
if mode == 'cas' and redis.call('HGET', KEYS[1], 'c') ~= ARGV[5] then
	return 0
end
local value = ARGV[2]
if mode == 'append' then
	value = redis.call('HGET', KEYS[1], 'v') .. value
elseif mode == 'prepend' then
	value = value .. redis.call('HGET', KEYS[1], 'v')
end
redis.call('HSET', KEYS[1], 'v', value)
if mode ~= 'append' and mode ~= 'prepend' then
	redis.call('HSET', KEYS[1], 'f', ARGV[3])
	local ttl = tonumber(ARGV[4])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[1], ttl)
	else
		redis.call('PERSIST', KEYS[1])
	end
end
redis.call('HSET', KEYS[1], 'c', redis.call('INCR', '`+CASCounterKey+`'))
return 1
`)

	counterScript = redis.NewScript(1, `
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local current = tonumber(redis.call('HGET', KEYS[1], 'v'))
if current == nil then
	return redis.error_reply('CLIENT_ERROR cannot increment or decrement non-numeric value')
end
local delta = tonumber(ARGV[2])
local value = current + delta
if ARGV[1] == 'decr' then
	value = current - delta
	if value < 0 then value = 0 end
end
redis.call('HSET', KEYS[1], 'v', string.format('%d', value))
redis.call('HSET', KEYS[1], 'c', redis.call('INCR', '`+CASCounterKey+`'))
return value
`)

	touchScript = redis.NewScript(1, `
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
else
	redis.call('PERSIST', KEYS[1])
end
return 1
`)
)

// WithPassword sets the password (default is "").
func WithPassword(password string) ConfigFunc {
	return func(c *dialerConfig) { c.password = password }
}

// WithDatabase sets the database index (default is 0).
func WithDatabase(database int) ConfigFunc {
	return func(c *dialerConfig) { c.database = database }
}

// WithConnectTimeout sets the connect timeout for new connections
// (default is 5 seconds).
func WithConnectTimeout(timeout time.Duration) ConfigFunc {
	return func(c *dialerConfig) { c.connectTimeout = timeout }
}

// WithReadTimeout sets the read timeout of the connection (default is
// 5 seconds).
func WithReadTimeout(timeout time.Duration) ConfigFunc {
	return func(c *dialerConfig) { c.readTimeout = timeout }
}

// WithWriteTimeout sets the write timeout of the connection (default is
// 5 seconds).
func WithWriteTimeout(timeout time.Duration) ConfigFunc {
	return func(c *dialerConfig) { c.writeTimeout = timeout }
}

// WithClock sets the clock used for downtime arithmetic.
func WithClock(clock glock.Clock) ConfigFunc {
	return func(c *dialerConfig) { c.clock = clock }
}

// NewDialer creates a function which dials a new connection on each call.
// When several addresses are given, each connection picks one at random.
func NewDialer(addrs []string, configs ...ConfigFunc) func() (iface.Conn, error) {
	return func() (iface.Conn, error) {
		return Dial(chooseRandom(addrs), configs...)
	}
}

// Dial creates a connection to the Redis server at the given address.
func Dial(addr string, configs ...ConfigFunc) (iface.Conn, error) {
	config := &dialerConfig{
		connectTimeout: time.Second * 5,
		readTimeout:    time.Second * 5,
		writeTimeout:   time.Second * 5,
		clock:          glock.NewRealClock(),
	}

	for _, f := range configs {
		f(config)
	}

	dial := func() (redis.Conn, error) {
		return redis.Dial(
			"tcp",
			addr,
			redis.DialPassword(config.password),
			redis.DialDatabase(config.database),
			redis.DialConnectTimeout(config.connectTimeout),
			redis.DialReadTimeout(config.readTimeout),
			redis.DialWriteTimeout(config.writeTimeout),
		)
	}

	c, err := dial()
	if err != nil {
		return nil, err
	}

	return &conn{
		addr:    addr,
		conn:    c,
		dial:    dial,
		tracker: health.NewTracker(addr, config.clock),
	}, nil
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.mutex.Lock()
		c.closed = true
		c.closeErr = c.conn.Close()
		c.mutex.Unlock()

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

	if err := c.reconnect(); err != nil {
		c.tracker.Fail(err)
		return nil, iface.ConnError{Err: err}
	}

	result, err := c.do(op)
	if op.Verb == iface.VerbEnd {
		// A closed redigo connection always reports an error
		return result, err
	}

	return result, c.wrapError(err)
}

func (c *conn) do(op *iface.Operation) (*iface.Result, error) {
	switch op.Verb {
	case iface.VerbTouch:
		return c.ok(redis.Int(touchScript.Do(c.conn, op.Key(), milliseconds(op.Lifetime))))

	case iface.VerbGet:
		value, err := redis.Bytes(c.conn.Do("HGET", op.Key(), "v"))
		if err == redis.ErrNil {
			return &iface.Result{}, nil
		}

		if err != nil {
			return nil, err
		}

		return &iface.Result{Found: true, Value: value}, nil

	case iface.VerbGets:
		return c.gets(op.Key())

	case iface.VerbGetMulti:
		return c.getMulti(op.Keys)

	case iface.VerbSet, iface.VerbAdd, iface.VerbReplace, iface.VerbCAS, iface.VerbAppend, iface.VerbPrepend:
		return c.ok(redis.Int(storeScript.Do(
			c.conn,
			op.Key(),
			string(op.Verb),
			op.Value,
			op.Flags,
			milliseconds(op.Lifetime),
			strconv.FormatUint(op.CAS, 10),
		)))

	case iface.VerbIncr, iface.VerbDecr:
		value, err := redis.Uint64(counterScript.Do(c.conn, op.Key(), string(op.Verb), op.Delta))
		if err == redis.ErrNil {
			return &iface.Result{}, nil
		}

		if err != nil {
			return nil, err
		}

		return &iface.Result{Found: true, Counter: value}, nil

	case iface.VerbDel:
		return c.ok(redis.Int(c.conn.Do("DEL", op.Key())))

	case iface.VerbFlush:
		if _, err := c.conn.Do("FLUSHDB"); err != nil {
			return nil, err
		}

		return &iface.Result{OK: true}, nil

	case iface.VerbVersion:
		values, err := c.info("server")
		if err != nil {
			return nil, err
		}

		return c.infoResult(map[string]string{"version": values["redis_version"]}), nil

	case iface.VerbStats:
		values, err := c.info("")
		if err != nil {
			return nil, err
		}

		return c.infoResult(values), nil

	case iface.VerbSettings:
		values, err := redis.StringMap(c.conn.Do("CONFIG", "GET", "*"))
		if err != nil {
			return nil, err
		}

		return c.infoResult(values), nil

	case iface.VerbEnd:
		if err := c.Close(); err != nil {
			return nil, err
		}

		return &iface.Result{OK: true}, nil
	}

	// Slab allocation is specific to memcached.
	return nil, iface.ErrUnsupportedVerb
}

func (c *conn) gets(key string) (*iface.Result, error) {
	values, err := redis.Values(c.conn.Do("HMGET", key, "v", "f", "c"))
	if err != nil {
		return nil, err
	}

	if len(values) != 3 || values[0] == nil {
		return &iface.Result{}, nil
	}

	value, err := redis.Bytes(values[0], nil)
	if err != nil {
		return nil, err
	}

	flags, err := redis.Uint64(values[1], nil)
	if err != nil && err != redis.ErrNil {
		return nil, err
	}

	cas, err := redis.Uint64(values[2], nil)
	if err != nil && err != redis.ErrNil {
		return nil, err
	}

	return &iface.Result{Found: true, Value: value, Flags: uint32(flags), CAS: cas}, nil
}

// Fetch several keys in a single MULTI/EXEC round trip.
func (c *conn) getMulti(keys []string) (*iface.Result, error) {
	values := map[string][]byte{}
	if len(keys) == 0 {
		return &iface.Result{OK: true, Values: values}, nil
	}

	if err := c.conn.Send("MULTI"); err != nil {
		return nil, err
	}

	for _, key := range keys {
		if err := c.conn.Send("HGET", key, "v"); err != nil {
			return nil, err
		}
	}

	replies, err := redis.Values(c.conn.Do("EXEC"))
	if err != nil {
		return nil, err
	}

	for i, reply := range replies {
		if reply == nil || i >= len(keys) {
			continue
		}

		value, err := redis.Bytes(reply, nil)
		if err != nil {
			return nil, err
		}

		values[keys[i]] = value
	}

	return &iface.Result{OK: true, Values: values}, nil
}

// Parse the output of the INFO command into a flat map.
func (c *conn) info(section string) (map[string]string, error) {
	args := []interface{}{}
	if section != "" {
		args = append(args, section)
	}

	text, err := redis.Bytes(c.conn.Do("INFO", args...))
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(text))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
			values[parts[0]] = parts[1]
		}
	}

	return values, scanner.Err()
}

func (c *conn) infoResult(values map[string]string) *iface.Result {
	return &iface.Result{
		OK:   true,
		Info: []iface.Info{{Server: c.addr, Values: values}},
	}
}

func (c *conn) ok(n int, err error) (*iface.Result, error) {
	if err != nil {
		return nil, err
	}

	return &iface.Result{OK: n > 0}, nil
}

// Replace a broken session with a fresh one. The tracker reports the
// recovery once a request succeeds on the new session.
func (c *conn) reconnect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed || c.conn.Err() == nil {
		return nil
	}

	fresh, err := c.dial()
	if err != nil {
		return err
	}

	c.conn.Close()
	c.conn = fresh
	return nil
}

// If there's an error on the connection, wrap it and return that so we
// can flag the retry loop in the client to use a fresh connection instead
// of returning this one to the pool.
func (c *conn) wrapError(err error) error {
	if c.conn.Err() != nil {
		c.tracker.Fail(c.conn.Err())
		return iface.ConnError{Err: c.conn.Err()}
	}

	c.tracker.Succeed()
	return err
}

// Convert a lifetime to whole milliseconds. Positive lifetimes below one
// millisecond round up so that they still expire.
func milliseconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}

	if d < time.Millisecond {
		return 1
	}

	return int64(d / time.Millisecond)
}
