// Package memory is an in-process cache server implementing every memcached
// verb. It is meant for tests: connections can be failed, recovered and
// slowed down on demand, and time is driven by a glock clock.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/efritz/glock"

	"github.com/efritz/memjoy/iface"
	"github.com/efritz/memjoy/internal/health"
)

type (
	// Server holds the items shared by every connection dialed from it.
	Server struct {
		name      string
		clock     glock.Clock
		startedAt time.Time
		mutex     sync.Mutex
		items     map[string]*item
		cas       uint64
		down      error
		injected  []error
		latency   time.Duration
		conns     map[*conn]struct{}
		dials     int
		requests  int
		stats     counters
	}

	item struct {
		value     []byte
		flags     uint32
		cas       uint64
		storedAt  time.Time
		expiresAt time.Time
	}

	counters struct {
		gets     int
		sets     int
		hits     int
		misses   int
		touches  int
		deletes  int
		total    int
		incrs    int
		decrs    int
		casHits  int
		casMiss  int
		casBadID int
	}

	serverConfig struct {
		name  string
		clock glock.Clock
	}

	// ConfigFunc is a function used to configure a server.
	ConfigFunc func(*serverConfig)
)

// Version is the version reported by the version verb.
const Version = "1.6.21"

var (
	// ErrServerDown is returned by requests made while the server is failed.
	ErrServerDown = errors.New("server is down")

	// ErrConnClosed is returned by requests made on a closed connection.
	ErrConnClosed = errors.New("connection closed")

	// ErrNonNumeric is returned when incrementing or decrementing an item
	// whose value is not a decimal number.
	ErrNonNumeric = errors.New("CLIENT_ERROR cannot increment or decrement non-numeric value")
)

// WithName sets the server identifier reported in events and info results
// (default is "memory").
func WithName(name string) ConfigFunc {
	return func(c *serverConfig) { c.name = name }
}

// WithClock sets the clock used for expiration and latency.
func WithClock(clock glock.Clock) ConfigFunc {
	return func(c *serverConfig) { c.clock = clock }
}

// NewServer creates an empty server.
func NewServer(configs ...ConfigFunc) *Server {
	config := &serverConfig{
		name:  "memory",
		clock: glock.NewRealClock(),
	}

	for _, f := range configs {
		f(config)
	}

	return &Server{
		name:      config.name,
		clock:     config.clock,
		startedAt: config.clock.Now(),
		items:     map[string]*item{},
		conns:     map[*conn]struct{}{},
	}
}

// Addr returns the server identifier.
func (s *Server) Addr() string {
	return s.name
}

// Dial opens a new connection. It fails while the server is down.
func (s *Server) Dial() (iface.Conn, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.dials++

	if s.down != nil {
		return nil, s.down
	}

	c := &conn{
		server:  s,
		tracker: health.NewTracker(s.name, s.clock),
	}

	s.conns[c] = struct{}{}
	return c, nil
}

// Fail takes the server down. Every open connection reports a failure event
// carrying the given messages, and requests fail with a connection error
// until Recover is called.
func (s *Server) Fail(messages ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := ErrServerDown
	if len(messages) > 0 {
		err = fmt.Errorf("%w: %s", ErrServerDown, strings.Join(messages, ""))
	}

	s.down = err

	for c := range s.conns {
		c.tracker.Fail(err)
	}
}

// Recover brings the server back up. Every open connection reports a
// reconnecting event with its total downtime.
func (s *Server) Recover() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.down = nil

	for c := range s.conns {
		c.tracker.Succeed()
	}
}

// FailNext makes the next len(errs) requests fail with the given errors,
// in order. A nil entry lets the corresponding request through.
func (s *Server) FailNext(errs ...error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.injected = append(s.injected, errs...)
}

// SetLatency delays every subsequent request by the given duration on the
// server's clock.
func (s *Server) SetLatency(latency time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.latency = latency
}

// Dials returns the number of dial attempts made against the server.
func (s *Server) Dials() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.dials
}

// Requests returns the number of requests that reached the server.
func (s *Server) Requests() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.requests
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.conns)
}

func (s *Server) disconnect(c *conn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.conns, c)
}

// Record the request and decide whether it fails before touching any item.
// The down flag marks failures which break the connection.
func (s *Server) admit() (latency time.Duration, down bool, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requests++

	if s.down != nil {
		return 0, true, s.down
	}

	if len(s.injected) > 0 {
		err = s.injected[0]
		s.injected = s.injected[1:]

		if err != nil {
			return 0, false, err
		}
	}

	return s.latency, false, nil
}

func (s *Server) execute(op *iface.Operation) (*iface.Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch op.Verb {
	case iface.VerbTouch:
		s.stats.touches++

		it := s.lookup(op.Key())
		if it == nil {
			return &iface.Result{}, nil
		}

		it.expiresAt = s.expiration(op.Lifetime)
		return &iface.Result{OK: true}, nil

	case iface.VerbGet, iface.VerbGets:
		s.stats.gets++

		it := s.lookup(op.Key())
		if it == nil {
			s.stats.misses++
			return &iface.Result{}, nil
		}

		s.stats.hits++
		return &iface.Result{Found: true, Value: copyBytes(it.value), Flags: it.flags, CAS: it.cas}, nil

	case iface.VerbGetMulti:
		values := map[string][]byte{}
		for _, key := range op.Keys {
			s.stats.gets++

			if it := s.lookup(key); it != nil {
				s.stats.hits++
				values[key] = copyBytes(it.value)
			} else {
				s.stats.misses++
			}
		}

		return &iface.Result{OK: true, Values: values}, nil

	case iface.VerbSet, iface.VerbAdd, iface.VerbReplace, iface.VerbCAS:
		return &iface.Result{OK: s.store(op)}, nil

	case iface.VerbAppend, iface.VerbPrepend:
		s.stats.sets++

		it := s.lookup(op.Key())
		if it == nil {
			return &iface.Result{}, nil
		}

		if op.Verb == iface.VerbAppend {
			it.value = append(copyBytes(it.value), op.Value...)
		} else {
			it.value = append(copyBytes(op.Value), it.value...)
		}

		it.cas = s.nextCAS()
		return &iface.Result{OK: true}, nil

	case iface.VerbIncr, iface.VerbDecr:
		return s.counter(op)

	case iface.VerbDel:
		s.stats.deletes++

		if s.lookup(op.Key()) == nil {
			return &iface.Result{}, nil
		}

		delete(s.items, op.Key())
		return &iface.Result{OK: true}, nil

	case iface.VerbFlush:
		s.items = map[string]*item{}
		return &iface.Result{OK: true}, nil

	case iface.VerbVersion:
		return s.info(map[string]string{"version": Version}), nil

	case iface.VerbStats:
		return s.info(s.statValues()), nil

	case iface.VerbSettings:
		return s.info(map[string]string{
			"maxconns":      "1024",
			"item_size_max": "1048576",
			"evictions":     "on",
			"cas_enabled":   "yes",
		}), nil

	case iface.VerbSlabs:
		return s.info(s.slabValues()), nil

	case iface.VerbItems:
		return s.info(s.itemValues()), nil

	case iface.VerbCachedump:
		return s.info(s.dumpValues(op.SlabID, op.Limit)), nil
	}

	return nil, iface.ErrUnsupportedVerb
}

func (s *Server) store(op *iface.Operation) bool {
	s.stats.sets++
	current := s.lookup(op.Key())

	switch op.Verb {
	case iface.VerbAdd:
		if current != nil {
			return false
		}

	case iface.VerbReplace:
		if current == nil {
			return false
		}

	case iface.VerbCAS:
		if current == nil {
			s.stats.casMiss++
			return false
		}

		if current.cas != op.CAS {
			s.stats.casBadID++
			return false
		}

		s.stats.casHits++
	}

	s.stats.total++
	s.items[op.Key()] = &item{
		value:     copyBytes(op.Value),
		flags:     op.Flags,
		cas:       s.nextCAS(),
		storedAt:  s.clock.Now(),
		expiresAt: s.expiration(op.Lifetime),
	}

	return true
}

// Increments wrap around at 64 bits and decrements stop at zero.
func (s *Server) counter(op *iface.Operation) (*iface.Result, error) {
	if op.Verb == iface.VerbIncr {
		s.stats.incrs++
	} else {
		s.stats.decrs++
	}

	it := s.lookup(op.Key())
	if it == nil {
		return &iface.Result{}, nil
	}

	current, err := strconv.ParseUint(string(it.value), 10, 64)
	if err != nil {
		return nil, ErrNonNumeric
	}

	value := current + op.Delta
	if op.Verb == iface.VerbDecr {
		value = 0
		if current > op.Delta {
			value = current - op.Delta
		}
	}

	it.value = []byte(strconv.FormatUint(value, 10))
	it.cas = s.nextCAS()
	return &iface.Result{Found: true, Counter: value}, nil
}

// Return the live item stored under key, dropping it if it has expired.
func (s *Server) lookup(key string) *item {
	it, ok := s.items[key]
	if !ok {
		return nil
	}

	if !it.expiresAt.IsZero() && !s.clock.Now().Before(it.expiresAt) {
		delete(s.items, key)
		return nil
	}

	return it
}

func (s *Server) expiration(lifetime time.Duration) time.Time {
	if lifetime <= 0 {
		return time.Time{}
	}

	return s.clock.Now().Add(lifetime)
}

func (s *Server) nextCAS() uint64 {
	s.cas++
	return s.cas
}

func (s *Server) info(values map[string]string) *iface.Result {
	return &iface.Result{
		OK:   true,
		Info: []iface.Info{{Server: s.name, Values: values}},
	}
}

func (s *Server) statValues() map[string]string {
	now := s.clock.Now()

	return map[string]string{
		"uptime":            strconv.FormatInt(int64(now.Sub(s.startedAt)/time.Second), 10),
		"time":              strconv.FormatInt(now.Unix(), 10),
		"version":           Version,
		"curr_connections":  strconv.Itoa(len(s.conns)),
		"total_connections": strconv.Itoa(s.dials),
		"curr_items":        strconv.Itoa(s.liveItems()),
		"total_items":       strconv.Itoa(s.stats.total),
		"cmd_get":           strconv.Itoa(s.stats.gets),
		"cmd_set":           strconv.Itoa(s.stats.sets),
		"cmd_touch":         strconv.Itoa(s.stats.touches),
		"get_hits":          strconv.Itoa(s.stats.hits),
		"get_misses":        strconv.Itoa(s.stats.misses),
		"delete_hits":       strconv.Itoa(s.stats.deletes),
		"incr_hits":         strconv.Itoa(s.stats.incrs),
		"decr_hits":         strconv.Itoa(s.stats.decrs),
		"cas_hits":          strconv.Itoa(s.stats.casHits),
		"cas_misses":        strconv.Itoa(s.stats.casMiss),
		"cas_badval":        strconv.Itoa(s.stats.casBadID),
	}
}

// Every item lives in slab 1.
func (s *Server) slabValues() map[string]string {
	size := 0
	for _, key := range s.liveKeys() {
		size += len(s.items[key].value)
	}

	return map[string]string{
		"active_slabs":   "1",
		"total_malloced": strconv.Itoa(size),
		"1:used_chunks":  strconv.Itoa(s.liveItems()),
	}
}

func (s *Server) itemValues() map[string]string {
	keys := s.liveKeys()
	if len(keys) == 0 {
		return map[string]string{}
	}

	oldest := s.clock.Now()
	for _, key := range keys {
		if storedAt := s.items[key].storedAt; storedAt.Before(oldest) {
			oldest = storedAt
		}
	}

	return map[string]string{
		"items:1:number": strconv.Itoa(len(keys)),
		"items:1:age":    strconv.FormatInt(int64(s.clock.Now().Sub(oldest)/time.Second), 10),
	}
}

// Values are formatted like memcached's "ITEM <key> [<size> b; <exptime> s]"
// lines. A limit of zero dumps every item.
func (s *Server) dumpValues(slabID, limit int) map[string]string {
	values := map[string]string{}
	if slabID != 1 {
		return values
	}

	for _, key := range s.liveKeys() {
		if limit > 0 && len(values) >= limit {
			break
		}

		it := s.items[key]

		exptime := int64(0)
		if !it.expiresAt.IsZero() {
			exptime = it.expiresAt.Unix()
		}

		values[key] = fmt.Sprintf("[%d b; %d s]", len(it.value), exptime)
	}

	return values
}

func (s *Server) liveKeys() []string {
	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		if s.lookup(key) != nil {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys
}

func (s *Server) liveItems() int {
	return len(s.liveKeys())
}

func copyBytes(value []byte) []byte {
	if value == nil {
		return nil
	}

	return append([]byte(nil), value...)
}

