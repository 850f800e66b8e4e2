package memjoy

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/efritz/glock"
	"github.com/efritz/overcurrent"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/efritz/memjoy/iface"
)

type (
	// Pool abstracts a bounded pool of backend connections.
	Pool = iface.Pool

	// PoolStats is a point-in-time view of a pool.
	PoolStats = iface.PoolStats

	// PoolOptions configures a pool. Zero values are replaced by defaults.
	PoolOptions struct {
		// Min is the number of connections the pool tries to keep alive.
		Min int

		// Max is the maximum number of connections, idle or in use.
		Max int

		// IdleTimeout is the duration after which idle connections beyond
		// Min are closed. Zero disables idle eviction.
		IdleTimeout time.Duration

		// EvictOnFailure destroys connections which emitted a failure
		// event instead of returning them to the idle set.
		EvictOnFailure bool

		Logger      Logger
		Observer    *FailureObserver
		BreakerFunc BreakerFunc
		Limiter     *rate.Limiter
		Clock       glock.Clock
	}

	pool struct {
		dialer         DialFunc
		min            int
		max            int
		idleTimeout    time.Duration
		evictOnFailure bool
		logger         Logger
		observer       *FailureObserver
		breakerFunc    BreakerFunc
		limiter        *rate.Limiter
		clock          glock.Clock
		done           chan struct{}

		mutex       sync.Mutex
		entries     map[Conn]*entry
		idle        []*entry
		outstanding int
		waiters     *list.List
		closed      bool
	}

	entry struct {
		id       string
		conn     Conn
		inUse    bool
		failed   bool
		lastUsed time.Time
	}

	waiter struct {
		ch      chan grant
		elem    *list.Element
		granted bool
	}

	// grant is handed to a waiting acquirer. A nil connection grants the
	// right to dial a new connection in the freed slot.
	grant struct {
		conn Conn
		err  error
	}

	// BreakerFunc bridges the interface between the Call function of
	// an overcurrent breaker and an overcurrent registry.
	BreakerFunc func(overcurrent.BreakerFunc) error
)

// DefaultPoolCapacity is the maximum pool size used when none is configured.
const DefaultPoolCapacity = 10

func noopBreakerFunc(f overcurrent.BreakerFunc) error {
	return f(context.Background())
}

// NewPool creates a pool and synchronously dials its minimum number of
// connections. Warm-up failures are logged; the pool dials again lazily.
func NewPool(dialer DialFunc, options PoolOptions) Pool {
	p := &pool{
		dialer:         dialer,
		min:            options.Min,
		max:            options.Max,
		idleTimeout:    options.IdleTimeout,
		evictOnFailure: options.EvictOnFailure,
		logger:         options.Logger,
		observer:       options.Observer,
		breakerFunc:    options.BreakerFunc,
		limiter:        options.Limiter,
		clock:          options.Clock,
		done:           make(chan struct{}),
		entries:        map[Conn]*entry{},
		waiters:        list.New(),
	}

	if p.max <= 0 {
		p.max = DefaultPoolCapacity
	}

	if p.min < 0 {
		p.min = 0
	}

	if p.min > p.max {
		p.min = p.max
	}

	if p.logger == nil {
		p.logger = NewNilLogger()
	}

	if p.observer == nil {
		p.observer = NewFailureObserver(p.logger)
	}

	if p.breakerFunc == nil {
		p.breakerFunc = noopBreakerFunc
	}

	if p.clock == nil {
		p.clock = glock.NewRealClock()
	}

	p.fill(context.Background())

	if p.idleTimeout > 0 {
		go p.reapLoop()
	}

	return p
}

func (p *pool) Close() {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return
	}

	p.closed = true
	close(p.done)

	idle := p.idle
	p.idle = nil

	for _, e := range idle {
		delete(p.entries, e.conn)
	}

	for p.waiters.Len() > 0 {
		p.nextWaiter().ch <- grant{err: ErrPoolClosed}
	}
	p.mutex.Unlock()

	for _, e := range idle {
		p.closeEntry(e)
	}
}

func (p *pool) Acquire(ctx context.Context) (Conn, error) {
	return p.acquire(ctx, nil)
}

func (p *pool) AcquireTimeout(ctx context.Context, timeout time.Duration) (Conn, error) {
	return p.acquire(ctx, &timeout)
}

func (p *pool) Release(conn Conn) {
	p.mutex.Lock()
	e, ok := p.entries[conn]
	if !ok || !e.inUse {
		p.mutex.Unlock()
		p.logger.Log(LevelWarn, "Released a connection which is not issued by the pool")
		return
	}

	if p.closed || e.failed {
		p.mutex.Unlock()
		p.Destroy(conn)
		return
	}

	e.lastUsed = p.clock.Now()

	if w := p.nextWaiter(); w != nil {
		// Hand the connection directly to the oldest waiter. It stays
		// in use, so the outstanding count does not change.
		w.ch <- grant{conn: conn}
		p.mutex.Unlock()
		return
	}

	e.inUse = false
	p.outstanding--
	p.idle = append(p.idle, e)
	p.mutex.Unlock()
}

func (p *pool) Destroy(conn Conn) {
	p.mutex.Lock()
	e, ok := p.entries[conn]
	if !ok || !e.inUse {
		p.mutex.Unlock()
		p.logger.Log(LevelWarn, "Destroyed a connection which is not issued by the pool")
		return
	}

	delete(p.entries, conn)
	p.outstanding--
	p.handoffSlot()
	refill := !p.closed && p.size() < p.min
	p.mutex.Unlock()

	p.closeEntry(e)

	if refill {
		go p.fill(context.Background())
	}
}

func (p *pool) Stats() PoolStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return PoolStats{
		Min:         p.min,
		Max:         p.max,
		Idle:        len(p.idle),
		Outstanding: p.outstanding,
		Waiters:     p.waiters.Len(),
	}
}

//
// Pool Helper Functions

// Get a connection from the pool. If timeout is nil, no timeout is applied
// beyond the given context. Idle connections are preferred in order to
// minimize the number of open connections when the pool is not under heavy
// concurrent load.
func (p *pool) acquire(ctx context.Context, timeout *time.Duration) (Conn, error) {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil, &AcquireError{ErrPoolClosed}
	}

	if n := len(p.idle); n > 0 {
		e := p.idle[n-1]
		p.idle = p.idle[:n-1]
		e.inUse = true
		p.outstanding++
		p.mutex.Unlock()
		return e.conn, nil
	}

	if p.size() < p.max {
		p.outstanding++
		p.mutex.Unlock()
		return p.dial(ctx)
	}

	w := &waiter{ch: make(chan grant, 1)}
	w.elem = p.waiters.PushBack(w)
	p.mutex.Unlock()

	select {
	case g := <-w.ch:
		return p.redeem(ctx, g)

	case <-ctx.Done():
		return nil, p.abandon(w, ctx.Err())

	case <-makeTimeoutChan(timeout, p.clock):
		return nil, p.abandon(w, ErrNoConnection)
	}
}

func (p *pool) redeem(ctx context.Context, g grant) (Conn, error) {
	if g.err != nil {
		return nil, &AcquireError{g.err}
	}

	if g.conn != nil {
		return g.conn, nil
	}

	return p.dial(ctx)
}

// Stop waiting for a grant. If a grant was handed to this waiter while it
// was giving up, the grant is returned to the pool.
func (p *pool) abandon(w *waiter, err error) error {
	p.mutex.Lock()
	if !w.granted {
		p.waiters.Remove(w.elem)
		p.mutex.Unlock()
		return &AcquireError{err}
	}
	p.mutex.Unlock()

	g := <-w.ch
	if g.err == nil {
		if g.conn != nil {
			p.Release(g.conn)
		} else {
			p.mutex.Lock()
			p.outstanding--
			p.handoffSlot()
			p.mutex.Unlock()
		}
	}

	return &AcquireError{err}
}

// Dial a new connection in a slot which was already counted as outstanding.
// The call to the dialer function is wrapped in a circuit breaker so that if
// the remote end is down we are not going to hammer it.
func (p *pool) dial(ctx context.Context) (Conn, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		// Free the slot so that we're not draining our pool on
		// connection errors.
		p.mutex.Lock()
		p.outstanding--
		p.handoffSlot()
		p.mutex.Unlock()

		p.logger.Log(LevelError, "Could not connect to cache server (%s)", err.Error())
		return nil, &AcquireError{err}
	}

	e := p.newEntry(conn)
	e.inUse = true

	p.mutex.Lock()
	if p.closed {
		p.outstanding--
		p.mutex.Unlock()
		p.closeEntry(e)
		return nil, &AcquireError{ErrPoolClosed}
	}

	p.entries[conn] = e
	p.mutex.Unlock()

	p.watch(e)
	p.logger.Log(LevelDebug, "Established a new connection %s with cache server", e.id)
	return conn, nil
}

func (p *pool) connect(ctx context.Context) (Conn, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var conn Conn
	err := p.breakerFunc(func(ctx context.Context) error {
		temp, err := p.dialer()
		conn = temp
		return err
	})

	return conn, err
}

// Dial connections until the pool holds at least its minimum population.
// Each new connection is handed to a waiter or made idle.
func (p *pool) fill(ctx context.Context) {
	p.mutex.Lock()
	deficit := p.min - p.size()
	if p.closed || deficit <= 0 {
		p.mutex.Unlock()
		return
	}

	p.outstanding += deficit
	p.mutex.Unlock()

	var g errgroup.Group
	for i := 0; i < deficit; i++ {
		g.Go(func() error {
			conn, err := p.connect(ctx)
			if err != nil {
				p.mutex.Lock()
				p.outstanding--
				p.handoffSlot()
				p.mutex.Unlock()
				return err
			}

			p.adopt(conn)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Log(LevelWarn, "Could not warm up connection pool (%s)", err.Error())
	}
}

// Register a freshly dialed connection whose slot was reserved by fill.
func (p *pool) adopt(conn Conn) {
	e := p.newEntry(conn)

	p.mutex.Lock()
	if p.closed {
		p.outstanding--
		p.mutex.Unlock()
		p.closeEntry(e)
		return
	}

	p.entries[conn] = e

	if w := p.nextWaiter(); w != nil {
		e.inUse = true
		w.ch <- grant{conn: conn}
	} else {
		p.outstanding--
		p.idle = append(p.idle, e)
	}
	p.mutex.Unlock()

	p.watch(e)
	p.logger.Log(LevelDebug, "Established a new connection %s with cache server", e.id)
}

func (p *pool) newEntry(conn Conn) *entry {
	return &entry{
		id:       uuid.New().String(),
		conn:     conn,
		lastUsed: p.clock.Now(),
	}
}

// Forward the health events of a connection to the failure observer.
func (p *pool) watch(e *entry) {
	notifier, ok := e.conn.(iface.Notifier)
	if !ok {
		return
	}

	events := notifier.Events()
	if events == nil {
		return
	}

	go p.observer.Watch(events, func(event Event) {
		if event.Type == iface.EventFailure && p.evictOnFailure {
			p.markFailed(e.conn)
		}
	})
}

// Flag a connection as failed. Idle connections are destroyed immediately,
// connections in use are destroyed when they are released.
func (p *pool) markFailed(conn Conn) {
	p.mutex.Lock()
	e, ok := p.entries[conn]
	if !ok {
		p.mutex.Unlock()
		return
	}

	e.failed = true

	if e.inUse {
		p.mutex.Unlock()
		return
	}

	for i, candidate := range p.idle {
		if candidate == e {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}

	delete(p.entries, conn)
	p.handoffSlot()
	refill := !p.closed && p.size() < p.min
	p.mutex.Unlock()

	p.logger.Log(LevelWarn, "Evicting failed connection %s", e.id)
	p.closeEntry(e)

	if refill {
		go p.fill(context.Background())
	}
}

func (p *pool) reapLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.clock.After(p.idleTimeout):
		}

		p.reap()
		p.fill(context.Background())
	}
}

// Close idle connections which have not been used within the idle timeout
// while the pool holds more than its minimum population.
func (p *pool) reap() {
	p.mutex.Lock()
	var (
		now     = p.clock.Now()
		size    = p.size()
		kept    = p.idle[:0]
		expired []*entry
	)

	for _, e := range p.idle {
		if size > p.min && now.Sub(e.lastUsed) >= p.idleTimeout {
			delete(p.entries, e.conn)
			expired = append(expired, e)
			size--
			continue
		}

		kept = append(kept, e)
	}

	p.idle = kept
	p.mutex.Unlock()

	for _, e := range expired {
		p.logger.Log(LevelDebug, "Closing idle connection %s", e.id)
		p.closeEntry(e)
	}
}

// Pop the oldest waiter. Must be called with the mutex held.
func (p *pool) nextWaiter() *waiter {
	front := p.waiters.Front()
	if front == nil {
		return nil
	}

	w := p.waiters.Remove(front).(*waiter)
	w.granted = true
	return w
}

// Give a free slot to the oldest waiter, who will dial a connection in its
// place. Must be called with the mutex held.
func (p *pool) handoffSlot() {
	if p.closed || p.size() >= p.max {
		return
	}

	if w := p.nextWaiter(); w != nil {
		p.outstanding++
		w.ch <- grant{}
	}
}

// The number of live and reserved connections. Must be called with the
// mutex held.
func (p *pool) size() int {
	return p.outstanding + len(p.idle)
}

func (p *pool) closeEntry(e *entry) {
	if err := e.conn.Close(); err != nil {
		p.logger.Log(LevelWarn, "Could not close connection %s (%s)", e.id, err.Error())
	}
}

var blockingChan = make(chan time.Time)

// Wraps time.After around a possibly nil-timeout. When timeout is nil this
// method will return a channel which is always open but never written to.
func makeTimeoutChan(timeout *time.Duration, clock glock.Clock) <-chan time.Time {
	if timeout == nil {
		return blockingChan
	}

	return clock.After(*timeout)
}
