// Package memjoy is a resilience layer in front of a memcached-style cache
// backend. Concurrent callers share a small, bounded pool of long-lived
// backend connections; every call is bounded by a per-attempt timeout,
// retried with linear backoff, and returns its connection to the pool
// exactly once.
package memjoy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradhe/stopwatch"
	"github.com/efritz/glock"
	"github.com/efritz/overcurrent"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/efritz/memjoy/driver/memcache"
	"github.com/efritz/memjoy/iface"
)

type (
	// Client is a goroutine-safe, pooled cache client.
	Client = iface.Client

	// CallConfig holds the per-call timeout and retry policy.
	CallConfig = iface.CallConfig

	// CallFunc is a function used to configure a single call.
	CallFunc = iface.CallFunc

	client struct {
		pool           Pool
		executor       *RetryExecutor
		borrowTimeout  *time.Duration
		timeout        time.Duration
		retries        int
		baseDelay      *time.Duration
		evictOnFailure bool
		logger         Logger
		metrics        *metrics
		tracer         trace.Tracer
	}

	clientConfig struct {
		connectTimeout time.Duration
		poolMin        int
		poolCapacity   int
		idleTimeout    time.Duration
		evictOnFailure bool
		breakerFunc    BreakerFunc
		limiter        *rate.Limiter
		clock          glock.Clock
		borrowTimeout  *time.Duration
		timeout        time.Duration
		retries        int
		baseDelay      *time.Duration
		logger         Logger
		debugLogging   bool
		registerer     prometheus.Registerer
		tracerProvider trace.TracerProvider
		dialerFactory  DialerFactory
	}

	// ConfigFunc is a function used to initialize a new client.
	ConfigFunc func(*clientConfig)
)

const (
	// DefaultTimeout bounds each attempt of a call.
	DefaultTimeout = time.Second

	// DefaultRetries is the number of additional attempts of a call.
	DefaultRetries = 0
)

// NewClient creates a new Client. The server location is a "host:port"
// address or a comma-separated list of them.
func NewClient(serverLocation string, configs ...ConfigFunc) Client {
	config := &clientConfig{
		connectTimeout: time.Second * 5,
		poolMin:        0,
		poolCapacity:   DefaultPoolCapacity,
		idleTimeout:    0,
		breakerFunc:    noopBreakerFunc,
		clock:          glock.NewRealClock(),
		borrowTimeout:  nil,
		timeout:        DefaultTimeout,
		retries:        DefaultRetries,
		logger:         NewDefaultLogger(),
	}

	config.dialerFactory = func(addrs []string) DialFunc {
		dialer := memcache.NewDialer(addrs, memcache.WithTimeout(config.connectTimeout))

		return func() (Conn, error) {
			return dialer()
		}
	}

	for _, f := range configs {
		f(config)
	}

	logger := newGatedLogger(config.logger, config.debugLogging)

	pool := NewPool(
		config.dialerFactory(splitServerLocation(serverLocation)),
		PoolOptions{
			Min:            config.poolMin,
			Max:            config.poolCapacity,
			IdleTimeout:    config.idleTimeout,
			EvictOnFailure: config.evictOnFailure,
			Logger:         logger,
			Observer:       NewFailureObserver(logger),
			BreakerFunc:    config.breakerFunc,
			Limiter:        config.limiter,
			Clock:          config.clock,
		},
	)

	logger.Log(LevelDebug, "connect to memcached server: %s", serverLocation)

	return &client{
		pool:           pool,
		executor:       NewRetryExecutor(config.clock, logger),
		borrowTimeout:  config.borrowTimeout,
		timeout:        config.timeout,
		retries:        config.retries,
		baseDelay:      config.baseDelay,
		evictOnFailure: config.evictOnFailure,
		logger:         logger,
		metrics:        newMetrics(config.registerer, pool),
		tracer:         newTracer(config.tracerProvider),
	}
}

// WithConnectTimeout sets the connect timeout for new connections
// (default is 5 seconds).
func WithConnectTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.connectTimeout = timeout }
}

// WithPoolMin sets the number of connections the pool tries to keep
// alive (default is 0).
func WithPoolMin(min int) ConfigFunc {
	return func(c *clientConfig) { c.poolMin = min }
}

// WithPoolCapacity sets the maximum number of concurrent connections
// that can be open at once (default is 10).
func WithPoolCapacity(capacity int) ConfigFunc {
	return func(c *clientConfig) { c.poolCapacity = capacity }
}

// WithIdleTimeout sets the duration after which idle connections beyond
// the pool minimum are closed (default is 0, which disables eviction).
func WithIdleTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.idleTimeout = timeout }
}

// WithEvictOnFailure destroys connections which reported a failure event
// or a connection error instead of returning them to the pool (default is
// false, which leaves reconnection to the driver).
func WithEvictOnFailure(evict bool) ConfigFunc {
	return func(c *clientConfig) { c.evictOnFailure = evict }
}

// WithBreaker sets the circuit breaker instance to use around new
// connections. The default uses a no-op circuit breaker.
func WithBreaker(breaker overcurrent.CircuitBreaker) ConfigFunc {
	return func(c *clientConfig) { c.breakerFunc = breaker.Call }
}

// WithBreakerRegistry sets the overcurrent registry to use and the
// name of the circuit breaker config to use around new connections.
// The default uses a no-op circuit breaker.
func WithBreakerRegistry(registry overcurrent.Registry, name string) ConfigFunc {
	return func(c *clientConfig) {
		c.breakerFunc = func(f overcurrent.BreakerFunc) error {
			return registry.Call(name, f, nil)
		}
	}
}

// WithDialRateLimit limits the rate at which new connections are dialed.
func WithDialRateLimit(limit rate.Limit, burst int) ConfigFunc {
	return func(c *clientConfig) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithBorrowTimeout sets the maximum time to wait for a connection from
// the pool. The default waits until the call's context is done.
func WithBorrowTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.borrowTimeout = &timeout }
}

// WithDefaultTimeout sets the per-attempt timeout of calls which do not
// specify one (default is 1 second).
func WithDefaultTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithDefaultRetries sets the number of retries of calls which do not
// specify one (default is 0).
func WithDefaultRetries(retries int) ConfigFunc {
	return func(c *clientConfig) { c.retries = retries }
}

// WithBaseDelay sets the delay before the first retry of a call. The
// delay grows linearly with each retry. The default is the call timeout.
func WithBaseDelay(delay time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.baseDelay = &delay }
}

// WithLogger sets the logger instance (the default will use Go's
// builtin logging library).
func WithLogger(logger Logger) ConfigFunc {
	return func(c *clientConfig) { c.logger = logger }
}

// WithDebugLogging enables debug records (default is false).
func WithDebugLogging(debug bool) ConfigFunc {
	return func(c *clientConfig) { c.debugLogging = debug }
}

// WithMetrics registers pool and call metrics with the given registerer.
func WithMetrics(registerer prometheus.Registerer) ConfigFunc {
	return func(c *clientConfig) { c.registerer = registerer }
}

// WithTracerProvider sets the provider of the tracer used to create a span
// for each call (the default uses the global provider).
func WithTracerProvider(provider trace.TracerProvider) ConfigFunc {
	return func(c *clientConfig) { c.tracerProvider = provider }
}

// WithDialer sets the function used to create new connections.
func WithDialer(dialer DialFunc) ConfigFunc {
	return func(c *clientConfig) {
		c.dialerFactory = func(addrs []string) DialFunc { return dialer }
	}
}

// WithDialerFactory sets the function used to build a dialer from the
// configured server addresses.
func WithDialerFactory(factory DialerFactory) ConfigFunc {
	return func(c *clientConfig) { c.dialerFactory = factory }
}

func withClock(clock glock.Clock) ConfigFunc {
	return func(c *clientConfig) { c.clock = clock }
}

// WithTimeout bounds each attempt of a single call.
func WithTimeout(timeout time.Duration) CallFunc {
	return func(c *CallConfig) { c.Timeout = timeout }
}

// WithRetries sets the number of retries of a single call.
func WithRetries(retries int) CallFunc {
	return func(c *CallConfig) { c.Retries = retries }
}

// WithRetryDelay sets the delay before the first retry of a single call.
func WithRetryDelay(delay time.Duration) CallFunc {
	return func(c *CallConfig) { c.BaseDelay = &delay }
}

//
// Client Implementation

func (c *client) Close() {
	c.pool.Close()
}

func (c *client) Do(ctx context.Context, op *Operation) (*Result, error) {
	var configs []CallFunc
	if op.Timeout > 0 {
		configs = append(configs, WithTimeout(op.Timeout))
	}

	if op.Retries > 0 {
		configs = append(configs, WithRetries(op.Retries))
	}

	if op.BaseDelay > 0 {
		configs = append(configs, WithRetryDelay(op.BaseDelay))
	}

	return c.do(ctx, op, configs)
}

func (c *client) Batch() Batch {
	return newBatch(c)
}

//
// Client Helper Functions

// Run a single operation through the retry executor on a leased connection.
// The lease is released exactly once on every exit path.
func (c *client) do(ctx context.Context, op *Operation, configs []CallFunc) (*Result, error) {
	value, err := c.run(ctx, op.Verb, op.Keys, configs, func(ctx context.Context, conn Conn) (interface{}, bool, error) {
		result, err := conn.Do(ctx, op)
		if err == nil && result == nil {
			result = &Result{}
		}

		return result, op.Verb == iface.VerbEnd, err
	})

	if err != nil {
		return nil, err
	}

	return value.(*Result), nil
}

// Run an invocation through the retry executor on a leased connection. The
// invocation reports whether the backend session was terminated, in which
// case the connection is destroyed instead of released.
func (c *client) run(
	ctx context.Context,
	verb Verb,
	keys []string,
	configs []CallFunc,
	invoke func(ctx context.Context, conn Conn) (interface{}, bool, error),
) (value interface{}, err error) {
	var (
		policy   = c.policy(configs)
		lease    = &lease{client: c}
		attempts = 0
		start    = stopwatch.Start()
	)

	ctx, span := c.startSpan(ctx, verb, keys)

	defer func() {
		lease.release()
		c.metrics.observe(verb, err, attempts, time.Duration(start.Stop().Milliseconds())*time.Millisecond)
		endSpan(span, attempts, err)
	}()

	prepare := func(ctx context.Context) (AttemptFunc, error) {
		conn, err := lease.ensure(ctx)
		if err != nil {
			return nil, err
		}

		attempts++

		return func(ctx context.Context) (interface{}, error) {
			value, terminated, err := invoke(ctx, conn)
			if err != nil {
				return nil, c.wrapError(verb, err)
			}

			if terminated {
				return endedSession{value}, nil
			}

			return value, nil
		}, nil
	}

	onFailure := func(err error) {
		if c.shouldDiscard(err) {
			lease.discard()
		}
	}

	value, err = c.executor.ExecuteWith(ctx, verb, policy, prepare, onFailure)
	if err != nil {
		c.logger.Log(LevelError, "memcached.%s() error: %s", verb, err.Error())
		return nil, err
	}

	if ended, ok := value.(endedSession); ok {
		lease.discard()
		value = ended.value
	}

	c.logger.Log(LevelDebug, "memcached.%s() returned after %d attempts", verb, attempts)
	return value, nil
}

// Build the retry policy of a call from the client defaults and the given
// call configuration.
func (c *client) policy(configs []CallFunc) RetryPolicy {
	config := &CallConfig{
		Timeout:   c.timeout,
		Retries:   c.retries,
		BaseDelay: c.baseDelay,
	}

	for _, f := range configs {
		f(config)
	}

	policy := RetryPolicy{
		Timeout: config.Timeout,
		Retries: config.Retries,
	}

	if config.BaseDelay != nil {
		policy.BaseDelay = *config.BaseDelay
	} else {
		policy.BaseDelay = config.Timeout
	}

	return policy
}

// Borrows and logs the time it took to return from blocking on the
// pool's acquire method.
func (c *client) timedBorrow(ctx context.Context) (Conn, error) {
	start := stopwatch.Start()
	conn, err := c.borrow(ctx)
	elapsed := start.Stop().Milliseconds()

	if err == nil {
		c.logger.Log(LevelDebug, "Received connection after %vms", elapsed)
	} else {
		c.logger.Log(LevelWarn, "Could not borrow connection after %vms", elapsed)
	}

	return conn, err
}

// Borrows from the pool using the correct method (depending on if
// a borrow timeout was configured on this client).
func (c *client) borrow(ctx context.Context) (Conn, error) {
	if c.borrowTimeout == nil {
		return c.pool.Acquire(ctx)
	}

	return c.pool.AcquireTimeout(ctx, *c.borrowTimeout)
}

// Wrap a driver error. Errors which can never succeed on retry are
// marked permanent.
func (c *client) wrapError(verb Verb, err error) error {
	var permanent *permanentError
	if errors.As(err, &permanent) {
		return Permanent(&BackendError{Verb: verb, Err: permanent.err})
	}

	if errors.Is(err, ErrUnsupportedVerb) {
		return Permanent(&BackendError{Verb: verb, Err: err})
	}

	return &BackendError{Verb: verb, Err: err}
}

// endedSession marks the value of an invocation which closed the backend
// session of its connection.
type endedSession struct {
	value interface{}
}

// Given an attempt failure, determine if the connection which carried the
// attempt can no longer be reused. A timed out or cancelled attempt may
// still be in flight on its connection, so that connection is never handed
// to another caller. A connection error only evicts the connection when
// the client is configured to do so; otherwise the driver reconnects.
func (c *client) shouldDiscard(err error) bool {
	if isTimeout(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return c.evictOnFailure && iface.IsConnError(err)
}

func splitServerLocation(serverLocation string) []string {
	addrs := []string{}
	for _, addr := range strings.Split(serverLocation, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}

	return addrs
}
