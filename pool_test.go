package memjoy

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aphistic/sweet"
	"github.com/efritz/glock"
	. "github.com/efritz/go-mockgen/matchers"
	"github.com/efritz/overcurrent"
	. "github.com/onsi/gomega"
	"golang.org/x/time/rate"

	"github.com/efritz/memjoy/memory"
	"github.com/efritz/memjoy/mocks"
)

type PoolSuite struct{}

func (s *PoolSuite) TestNewPoolWarmsMinimum(t sweet.T) {
	var (
		dials int32
		pool  = NewPool(
			func() (Conn, error) { atomic.AddInt32(&dials, 1); return mocks.NewMockConn(), nil },
			PoolOptions{Min: 3, Max: 5, Logger: testLogger},
		)
	)

	defer pool.Close()

	Expect(atomic.LoadInt32(&dials)).To(Equal(int32(3)))
	Expect(pool.Stats()).To(Equal(PoolStats{Min: 3, Max: 5, Idle: 3}))
}

func (s *PoolSuite) TestNewPoolDefaults(t sweet.T) {
	pool := NewPool(testDial, PoolOptions{Min: 20, Max: -1})
	defer pool.Close()

	stats := pool.Stats()
	Expect(stats.Max).To(Equal(DefaultPoolCapacity))
	Expect(stats.Min).To(Equal(DefaultPoolCapacity))
	Expect(stats.Idle).To(Equal(DefaultPoolCapacity))
}

func (s *PoolSuite) TestNewPoolAtCapacity(t sweet.T) {
	var (
		clock  = glock.NewMockClock()
		signal = make(chan struct{})
		pool   = NewPool(testDial, PoolOptions{Max: 20, Logger: testLogger, Clock: clock})
	)

	for i := 0; i < 20; i++ {
		_, err := pool.Acquire(context.Background())
		Expect(err).To(BeNil())
	}

	go func() {
		defer close(signal)

		_, err := pool.AcquireTimeout(context.Background(), time.Second*10)
		Expect(errors.Is(err, ErrNoConnection)).To(BeTrue())

		var acquireErr *AcquireError
		Expect(errors.As(err, &acquireErr)).To(BeTrue())
	}()

	clock.BlockingAdvance(time.Second * 10)
	Eventually(signal).Should(BeClosed())
	Expect(pool.Stats().Waiters).To(Equal(0))
	Expect(pool.Stats().Outstanding).To(Equal(20))
}

func (s *PoolSuite) TestAcquireFavorsIdle(t sweet.T) {
	var (
		dials = 0
		pool  = NewPool(
			func() (Conn, error) { dials++; return mocks.NewMockConn(), nil },
			PoolOptions{Max: 20, Logger: testLogger},
		)
	)

	// Dial one
	c1, _ := pool.Acquire(context.Background())
	Expect(dials).To(Equal(1))

	// Still acquired, dial another
	c2, _ := pool.Acquire(context.Background())
	Expect(dials).To(Equal(2))
	Expect(c2).NotTo(BeIdenticalTo(c1))

	// Return both, will get these back immediately
	pool.Release(c1)
	pool.Release(c2)
	pool.Acquire(context.Background())
	pool.Acquire(context.Background())
	Expect(dials).To(Equal(2))

	// Two acquired, dial a third
	pool.Acquire(context.Background())
	Expect(dials).To(Equal(3))
}

func (s *PoolSuite) TestPoolCapacity(t sweet.T) {
	var (
		signal = make(chan struct{})
		conns  = make([]Conn, 0, 20)
		pool   = NewPool(testDial, PoolOptions{Max: 20, Logger: testLogger})
		second Conn
	)

	for i := 0; i < 20; i++ {
		conn, _ := pool.Acquire(context.Background())
		conns = append(conns, conn)
	}

	go func() {
		second, _ = pool.Acquire(context.Background())
		close(signal)
	}()

	Consistently(signal).ShouldNot(BeClosed())
	pool.Release(conns[7])
	Eventually(signal).Should(BeClosed())
	Expect(second).To(BeIdenticalTo(conns[7]))
	Expect(pool.Stats().Outstanding).To(Equal(20))
}

func (s *PoolSuite) TestWaitersServedInOrder(t sweet.T) {
	var (
		order = make(chan int, 2)
		pool  = NewPool(testDial, PoolOptions{Max: 1, Logger: testLogger})
	)

	conn, _ := pool.Acquire(context.Background())

	for i := 1; i <= 2; i++ {
		go func(i int) {
			c, err := pool.Acquire(context.Background())
			Expect(err).To(BeNil())
			order <- i
			pool.Release(c)
		}(i)

		Eventually(func() int { return pool.Stats().Waiters }).Should(Equal(i))
	}

	pool.Release(conn)
	Eventually(order).Should(Receive(Equal(1)))
	Eventually(order).Should(Receive(Equal(2)))
	Eventually(func() int { return pool.Stats().Idle }).Should(Equal(1))
}

func (s *PoolSuite) TestReleaseUnknownConnection(t sweet.T) {
	pool := NewPool(testDial, PoolOptions{Max: 2, Logger: testLogger})

	conn, _ := pool.Acquire(context.Background())
	pool.Release(mocks.NewMockConn())
	pool.Destroy(mocks.NewMockConn())
	Expect(pool.Stats().Outstanding).To(Equal(1))

	pool.Release(conn)
	pool.Release(conn)
	pool.Destroy(conn)
	Expect(pool.Stats()).To(Equal(PoolStats{Max: 2, Idle: 1}))
}

func (s *PoolSuite) TestDestroyFreesSlot(t sweet.T) {
	var (
		dials = int32(0)
		conn  = mocks.NewMockConn()
		next  = make(chan Conn, 1)
		pool  = NewPool(
			func() (Conn, error) {
				if atomic.AddInt32(&dials, 1) == 1 {
					return conn, nil
				}

				return mocks.NewMockConn(), nil
			},
			PoolOptions{Max: 1, Logger: testLogger},
		)
	)

	c, _ := pool.Acquire(context.Background())
	Expect(c).To(BeIdenticalTo(conn))

	go func() {
		c, _ := pool.Acquire(context.Background())
		next <- c
	}()

	Eventually(func() int { return pool.Stats().Waiters }).Should(Equal(1))
	pool.Destroy(conn)

	var replacement Conn
	Eventually(next).Should(Receive(&replacement))
	Expect(replacement).NotTo(BeIdenticalTo(conn))
	Expect(conn.CloseFunc).To(BeCalledOnce())
	Expect(atomic.LoadInt32(&dials)).To(Equal(int32(2)))

	// A destroyed connection cannot be released or destroyed again
	pool.Release(conn)
	pool.Destroy(conn)
	Expect(conn.CloseFunc).To(BeCalledOnce())
	Expect(pool.Stats().Outstanding).To(Equal(1))
}

func (s *PoolSuite) TestDestroyRefillsMinimum(t sweet.T) {
	var (
		dials int32
		pool  = NewPool(
			func() (Conn, error) { atomic.AddInt32(&dials, 1); return mocks.NewMockConn(), nil },
			PoolOptions{Min: 1, Max: 3, Logger: testLogger},
		)
	)

	conn, _ := pool.Acquire(context.Background())
	Expect(pool.Stats().Idle).To(Equal(0))

	pool.Destroy(conn)
	Eventually(func() int { return pool.Stats().Idle }).Should(Equal(1))
	Expect(atomic.LoadInt32(&dials)).To(Equal(int32(2)))
}

func (s *PoolSuite) TestAcquireContextCanceled(t sweet.T) {
	var (
		result = make(chan error, 1)
		pool   = NewPool(testDial, PoolOptions{Max: 1, Logger: testLogger})
	)

	pool.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_, err := pool.Acquire(ctx)
		result <- err
	}()

	Eventually(func() int { return pool.Stats().Waiters }).Should(Equal(1))
	cancel()

	var err error
	Eventually(result).Should(Receive(&err))
	Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	Expect(pool.Stats().Waiters).To(Equal(0))
}

func (s *PoolSuite) TestClose(t sweet.T) {
	var (
		conns = make([]*mocks.MockConn, 0, 15)
		pool  = NewPool(
			func() (Conn, error) {
				conn := mocks.NewMockConn()
				conns = append(conns, conn)
				return conn, nil
			},
			PoolOptions{Max: 20, Logger: testLogger},
		)
	)

	for i := 0; i < 15; i++ {
		pool.Acquire(context.Background())
	}

	for i := 0; i < 10; i++ {
		pool.Release(conns[i])
	}

	// Close the 10 idle connections in the pool
	pool.Close()
	for i, conn := range conns {
		if i < 10 {
			Expect(conn.CloseFunc).To(BeCalledOnce())
		} else {
			Expect(conn.CloseFunc).NotTo(BeCalled())
		}
	}

	// Outstanding connections are closed when they come back
	for i := 10; i < 15; i++ {
		pool.Release(conns[i])
		Expect(conns[i].CloseFunc).To(BeCalledOnce())
	}

	_, err := pool.Acquire(context.Background())
	Expect(errors.Is(err, ErrPoolClosed)).To(BeTrue())
	Expect(pool.Stats().Outstanding).To(Equal(0))
}

func (s *PoolSuite) TestCloseFailsWaiters(t sweet.T) {
	var (
		result = make(chan error, 1)
		pool   = NewPool(testDial, PoolOptions{Max: 1, Logger: testLogger})
	)

	pool.Acquire(context.Background())

	go func() {
		_, err := pool.Acquire(context.Background())
		result <- err
	}()

	Eventually(func() int { return pool.Stats().Waiters }).Should(Equal(1))
	pool.Close()

	var err error
	Eventually(result).Should(Receive(&err))
	Expect(errors.Is(err, ErrPoolClosed)).To(BeTrue())
}

func (s *PoolSuite) TestCloseBlocks(t sweet.T) {
	var (
		signal = make(chan struct{})
		block  = make(chan struct{})
		conn   = mocks.NewMockConn()
		pool   = NewPool(func() (Conn, error) { return conn, nil }, PoolOptions{Max: 20, Logger: testLogger})
	)

	conn.CloseFunc.SetDefaultHook(func() error {
		<-block
		return nil
	})

	c, _ := pool.Acquire(context.Background())
	pool.Release(c)

	go func() {
		pool.Close()
		close(signal)
	}()

	Consistently(signal).ShouldNot(Receive())
	close(block)
	Eventually(signal).Should(BeClosed())
}

func (s *PoolSuite) TestCircuitBreaker(t sweet.T) {
	var (
		count       = 5
		breakerFunc = func(f overcurrent.BreakerFunc) error {
			if count <= 0 {
				return overcurrent.ErrCircuitOpen
			}

			count--
			return f(context.Background())
		}

		pool = NewPool(testDial, PoolOptions{Max: 20, Logger: testLogger, BreakerFunc: breakerFunc})
	)

	for i := 0; i < 5; i++ {
		_, err := pool.Acquire(context.Background())
		Expect(err).To(BeNil())
	}

	for i := 0; i < 100; i++ {
		_, err := pool.Acquire(context.Background())
		Expect(errors.Is(err, overcurrent.ErrCircuitOpen)).To(BeTrue())
	}

	Expect(pool.Stats().Outstanding).To(Equal(5))
}

func (s *PoolSuite) TestDialErrorFreesSlot(t sweet.T) {
	var (
		dialErr = errors.New("connection refused")
		pool    = NewPool(func() (Conn, error) { return nil, dialErr }, PoolOptions{Max: 1, Logger: testLogger})
	)

	for i := 0; i < 3; i++ {
		_, err := pool.Acquire(context.Background())
		Expect(err).To(MatchError(&AcquireError{dialErr}))
	}

	Expect(pool.Stats().Outstanding).To(Equal(0))
}

func (s *PoolSuite) TestDialRateLimit(t sweet.T) {
	var (
		dials = 0
		pool  = NewPool(
			func() (Conn, error) { dials++; return mocks.NewMockConn(), nil },
			PoolOptions{Max: 5, Logger: testLogger, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)},
		)
	)

	_, err := pool.Acquire(context.Background())
	Expect(err).To(BeNil())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	_, err = pool.Acquire(ctx)
	Expect(err).To(HaveOccurred())
	Expect(dials).To(Equal(1))
	Expect(pool.Stats().Outstanding).To(Equal(1))
}

func (s *PoolSuite) TestIdleConnectionsReaped(t sweet.T) {
	var (
		clock = glock.NewMockClock()
		conns = make([]Conn, 0, 3)
		pool  = NewPool(testDial, PoolOptions{Min: 1, Max: 5, IdleTimeout: time.Minute, Logger: testLogger, Clock: clock})
	)

	defer pool.Close()

	for i := 0; i < 3; i++ {
		conn, _ := pool.Acquire(context.Background())
		conns = append(conns, conn)
	}

	for _, conn := range conns {
		pool.Release(conn)
	}

	Expect(pool.Stats().Idle).To(Equal(3))
	clock.BlockingAdvance(time.Minute)

	// Connections beyond the minimum are closed
	Eventually(func() int { return pool.Stats().Idle }).Should(Equal(1))

	closed := 0
	for _, conn := range conns {
		closed += len(conn.(*mocks.MockConn).CloseFunc.History())
	}

	Expect(closed).To(Equal(2))
}

func (s *PoolSuite) TestEvictOnFailure(t sweet.T) {
	var (
		server = memory.NewServer()
		pool   = NewPool(server.Dial, PoolOptions{Max: 2, EvictOnFailure: true, Logger: testLogger})
	)

	defer pool.Close()

	idle, _ := pool.Acquire(context.Background())
	inUse, _ := pool.Acquire(context.Background())
	pool.Release(idle)

	server.Fail("connection reset")

	// The idle connection is evicted immediately
	Eventually(func() int { return pool.Stats().Idle }).Should(Equal(0))
	Eventually(server.Connections).Should(Equal(1))

	// The connection in use is destroyed once it comes back
	pool.Release(inUse)
	Eventually(server.Connections).Should(Equal(0))
	Eventually(func() PoolStats { return pool.Stats() }).Should(Equal(PoolStats{Max: 2}))
}

func (s *PoolSuite) TestFailedConnectionsKeptByDefault(t sweet.T) {
	var (
		server = memory.NewServer()
		pool   = NewPool(server.Dial, PoolOptions{Max: 2, Logger: testLogger})
	)

	defer pool.Close()

	conn, _ := pool.Acquire(context.Background())
	pool.Release(conn)

	server.Fail("connection reset")
	Consistently(func() int { return pool.Stats().Idle }).Should(Equal(1))

	server.Recover()
	c, err := pool.Acquire(context.Background())
	Expect(err).To(BeNil())
	Expect(c).To(BeIdenticalTo(conn))
}

func (s *PoolSuite) TestEvictedIdleConnectionRefillsMinimum(t sweet.T) {
	var (
		failing = memory.NewServer()
		healthy = memory.NewServer()
		dials   = int32(0)
		pool    = NewPool(
			func() (Conn, error) {
				if atomic.AddInt32(&dials, 1) == 1 {
					return failing.Dial()
				}

				return healthy.Dial()
			},
			PoolOptions{Min: 1, Max: 2, EvictOnFailure: true, Logger: testLogger},
		)
	)

	defer pool.Close()

	Expect(pool.Stats().Idle).To(Equal(1))
	failing.Fail("connection reset")

	// The minimum is restored without waiting for a reaper tick
	Eventually(failing.Connections).Should(Equal(0))
	Eventually(healthy.Connections).Should(Equal(1))
	Eventually(func() int { return pool.Stats().Idle }).Should(Equal(1))
}

func (s *PoolSuite) TestConcurrentExclusiveOwnership(t sweet.T) {
	var (
		mutex      sync.Mutex
		wg         sync.WaitGroup
		holders    = map[Conn]struct{}{}
		peak       = 0
		violations = 0
		failures   = int32(0)
		done       = make(chan struct{})
		pool       = NewPool(testDial, PoolOptions{Max: 4, Logger: testLogger})
	)

	defer pool.Close()

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				conn, err := pool.Acquire(context.Background())
				if err != nil {
					atomic.AddInt32(&failures, 1)
					return
				}

				mutex.Lock()
				if _, ok := holders[conn]; ok {
					violations++
				}
				holders[conn] = struct{}{}
				if len(holders) > peak {
					peak = len(holders)
				}
				mutex.Unlock()

				runtime.Gosched()

				mutex.Lock()
				delete(holders, conn)
				mutex.Unlock()

				if j%10 == 9 {
					pool.Destroy(conn)
				} else {
					pool.Release(conn)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	Eventually(done, time.Second*10).Should(BeClosed())
	Expect(atomic.LoadInt32(&failures)).To(Equal(int32(0)))
	Expect(violations).To(Equal(0))
	Expect(peak).To(BeNumerically("<=", 4))

	stats := pool.Stats()
	Expect(stats.Outstanding).To(Equal(0))
	Expect(stats.Waiters).To(Equal(0))
	Expect(stats.Idle).To(BeNumerically("<=", 4))
}

//
// Helpers

func testDial() (Conn, error) {
	return mocks.NewMockConn(), nil
}
