package memory

import (
	"context"
	"errors"
	"time"

	"github.com/aphistic/sweet"
	"github.com/efritz/glock"
	. "github.com/onsi/gomega"

	"github.com/efritz/memjoy/iface"
)

type ServerSuite struct{}

func (s *ServerSuite) TestSetAndGet(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	Expect(do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"k"}, Value: []byte("v"), Flags: 3}).OK).To(BeTrue())

	result := do(conn, &iface.Operation{Verb: iface.VerbGets, Keys: []string{"k"}})
	Expect(result.Found).To(BeTrue())
	Expect(result.Value).To(Equal([]byte("v")))
	Expect(result.Flags).To(Equal(uint32(3)))
	Expect(result.CAS).To(Equal(uint64(1)))

	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"missing"}}).Found).To(BeFalse())
}

func (s *ServerSuite) TestSharedBetweenConnections(t sweet.T) {
	server, _, conn := setupTestServer()
	defer conn.Close()

	other, err := server.Dial()
	Expect(err).To(BeNil())
	defer other.Close()

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"k"}, Value: []byte("v")})
	Expect(do(other, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Value).To(Equal([]byte("v")))
	Expect(server.Connections()).To(Equal(2))
}

func (s *ServerSuite) TestAddReplaceCAS(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	Expect(do(conn, &iface.Operation{Verb: iface.VerbAdd, Keys: []string{"k"}, Value: []byte("a")}).OK).To(BeTrue())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbAdd, Keys: []string{"k"}, Value: []byte("b")}).OK).To(BeFalse())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbReplace, Keys: []string{"x"}, Value: []byte("b")}).OK).To(BeFalse())

	token := do(conn, &iface.Operation{Verb: iface.VerbGets, Keys: []string{"k"}}).CAS
	Expect(do(conn, &iface.Operation{Verb: iface.VerbCAS, Keys: []string{"k"}, Value: []byte("c"), CAS: token}).OK).To(BeTrue())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbCAS, Keys: []string{"k"}, Value: []byte("d"), CAS: token}).OK).To(BeFalse())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbCAS, Keys: []string{"x"}, Value: []byte("d"), CAS: token}).OK).To(BeFalse())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Value).To(Equal([]byte("c")))
}

func (s *ServerSuite) TestAppendPrepend(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	Expect(do(conn, &iface.Operation{Verb: iface.VerbPrepend, Keys: []string{"k"}, Value: []byte("a")}).OK).To(BeFalse())

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"k"}, Value: []byte("b")})
	do(conn, &iface.Operation{Verb: iface.VerbAppend, Keys: []string{"k"}, Value: []byte("c")})
	do(conn, &iface.Operation{Verb: iface.VerbPrepend, Keys: []string{"k"}, Value: []byte("a")})
	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Value).To(Equal([]byte("abc")))
}

func (s *ServerSuite) TestCounters(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	Expect(do(conn, &iface.Operation{Verb: iface.VerbIncr, Keys: []string{"n"}, Delta: 1}).Found).To(BeFalse())

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"n"}, Value: []byte("18446744073709551615")})

	// Increments wrap around at 64 bits
	result := do(conn, &iface.Operation{Verb: iface.VerbIncr, Keys: []string{"n"}, Delta: 2})
	Expect(result.Found).To(BeTrue())
	Expect(result.Counter).To(Equal(uint64(1)))

	// Decrements stop at zero
	result = do(conn, &iface.Operation{Verb: iface.VerbDecr, Keys: []string{"n"}, Delta: 5})
	Expect(result.Counter).To(Equal(uint64(0)))

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"s"}, Value: []byte("abc")})
	_, err := conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbIncr, Keys: []string{"s"}, Delta: 1})
	Expect(err).To(Equal(ErrNonNumeric))
}

func (s *ServerSuite) TestExpiration(t sweet.T) {
	_, clock, conn := setupTestServer()
	defer conn.Close()

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"k"}, Value: []byte("v"), Lifetime: time.Minute})
	clock.Advance(time.Second * 30)
	Expect(do(conn, &iface.Operation{Verb: iface.VerbTouch, Keys: []string{"k"}, Lifetime: time.Minute}).OK).To(BeTrue())

	clock.Advance(time.Second * 45)
	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Found).To(BeTrue())

	clock.Advance(time.Second * 15)
	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Found).To(BeFalse())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbTouch, Keys: []string{"k"}, Lifetime: time.Minute}).OK).To(BeFalse())
}

func (s *ServerSuite) TestDelFlushGetMulti(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"a"}, Value: []byte("1")})
	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"b"}, Value: []byte("2")})

	result := do(conn, &iface.Operation{Verb: iface.VerbGetMulti, Keys: []string{"a", "b", "c"}})
	Expect(result.Values).To(Equal(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	Expect(do(conn, &iface.Operation{Verb: iface.VerbDel, Keys: []string{"a"}}).OK).To(BeTrue())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbDel, Keys: []string{"a"}}).OK).To(BeFalse())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbFlush}).OK).To(BeTrue())
	Expect(do(conn, &iface.Operation{Verb: iface.VerbGetMulti, Keys: []string{"a", "b"}}).Values).To(BeEmpty())
}

func (s *ServerSuite) TestInfo(t sweet.T) {
	_, _, conn := setupTestServer()
	defer conn.Close()

	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"a"}, Value: []byte("123")})
	do(conn, &iface.Operation{Verb: iface.VerbSet, Keys: []string{"b"}, Value: []byte("45")})
	do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"a"}})

	version := do(conn, &iface.Operation{Verb: iface.VerbVersion}).Info
	Expect(version).To(HaveLen(1))
	Expect(version[0].Server).To(Equal("cache-1:11211"))
	Expect(version[0].Values).To(HaveKeyWithValue("version", Version))

	stats := do(conn, &iface.Operation{Verb: iface.VerbStats}).Info[0].Values
	Expect(stats).To(HaveKeyWithValue("curr_items", "2"))
	Expect(stats).To(HaveKeyWithValue("get_hits", "1"))
	Expect(stats).To(HaveKeyWithValue("cmd_set", "2"))

	Expect(do(conn, &iface.Operation{Verb: iface.VerbSettings}).Info[0].Values).To(HaveKeyWithValue("cas_enabled", "yes"))
	Expect(do(conn, &iface.Operation{Verb: iface.VerbSlabs}).Info[0].Values).To(HaveKeyWithValue("total_malloced", "5"))
	Expect(do(conn, &iface.Operation{Verb: iface.VerbItems}).Info[0].Values).To(HaveKeyWithValue("items:1:number", "2"))

	dump := do(conn, &iface.Operation{Verb: iface.VerbCachedump, SlabID: 1, Limit: 1}).Info[0].Values
	Expect(dump).To(Equal(map[string]string{"a": "[3 b; 0 s]"}))
	Expect(do(conn, &iface.Operation{Verb: iface.VerbCachedump, SlabID: 2}).Info[0].Values).To(BeEmpty())
}

func (s *ServerSuite) TestEnd(t sweet.T) {
	server, _, conn := setupTestServer()

	Expect(do(conn, &iface.Operation{Verb: iface.VerbEnd}).OK).To(BeTrue())
	Expect(server.Connections()).To(Equal(0))

	_, err := conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	Expect(iface.IsConnError(err)).To(BeTrue())
	Expect(errors.Is(err, ErrConnClosed)).To(BeTrue())
}

func (s *ServerSuite) TestFailAndRecover(t sweet.T) {
	server, clock, conn := setupTestServer()
	defer conn.Close()

	events := conn.(iface.Notifier).Events()
	server.Fail("connection refused")

	var event iface.Event
	Eventually(events).Should(Receive(&event))
	Expect(event).To(Equal(iface.Event{
		Type:     iface.EventFailure,
		Server:   "cache-1:11211",
		Messages: []string{"server is down: connection refused"},
	}))

	_, err := conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	Expect(iface.IsConnError(err)).To(BeTrue())
	Expect(errors.Is(err, ErrServerDown)).To(BeTrue())

	_, err = server.Dial()
	Expect(errors.Is(err, ErrServerDown)).To(BeTrue())

	clock.Advance(time.Second * 3)
	server.Recover()

	Eventually(events).Should(Receive(&event))
	Expect(event.Type).To(Equal(iface.EventReconnecting))
	Expect(event.TotalDownTime).To(Equal(time.Second * 3))

	Expect(do(conn, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}}).Found).To(BeFalse())
}

func (s *ServerSuite) TestFailNext(t sweet.T) {
	server, _, conn := setupTestServer()
	defer conn.Close()

	broken := iface.ConnError{Err: errors.New("reset")}
	server.FailNext(errors.New("busy"), nil, broken)

	_, err := conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	Expect(err).To(MatchError("busy"))

	_, err = conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	Expect(err).To(BeNil())

	_, err = conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	Expect(iface.IsConnError(err)).To(BeTrue())

	var event iface.Event
	Eventually(conn.(iface.Notifier).Events()).Should(Receive(&event))
	Expect(event.Type).To(Equal(iface.EventFailure))
	Expect(server.Requests()).To(Equal(3))
}

func (s *ServerSuite) TestLatency(t sweet.T) {
	server, clock, conn := setupTestServer()
	defer conn.Close()

	server.SetLatency(time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.Do(context.Background(), &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
	}()

	clock.BlockingAdvance(time.Second)
	Eventually(done).Should(BeClosed())

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)

	go func() {
		_, err := conn.Do(ctx, &iface.Operation{Verb: iface.VerbGet, Keys: []string{"k"}})
		errs <- err
	}()

	cancel()
	Eventually(errs).Should(Receive(Equal(context.Canceled)))
}

//
// Helpers

func setupTestServer() (*Server, *glock.MockClock, iface.Conn) {
	clock := glock.NewMockClock()
	server := NewServer(WithClock(clock), WithName("cache-1:11211"))

	conn, err := server.Dial()
	Expect(err).To(BeNil())

	return server, clock, conn
}

func do(conn iface.Conn, op *iface.Operation) *iface.Result {
	result, err := conn.Do(context.Background(), op)
	Expect(err).To(BeNil())
	Expect(result).NotTo(BeNil())
	return result
}
