package iface

import "time"

// Verb names one cache operation understood by the backend driver.
type Verb string

const (
	VerbTouch     Verb = "touch"
	VerbGet       Verb = "get"
	VerbGets      Verb = "gets"
	VerbGetMulti  Verb = "getMulti"
	VerbSet       Verb = "set"
	VerbReplace   Verb = "replace"
	VerbAdd       Verb = "add"
	VerbCAS       Verb = "cas"
	VerbAppend    Verb = "append"
	VerbPrepend   Verb = "prepend"
	VerbIncr      Verb = "incr"
	VerbDecr      Verb = "decr"
	VerbDel       Verb = "del"
	VerbVersion   Verb = "version"
	VerbFlush     Verb = "flush"
	VerbStats     Verb = "stats"
	VerbSettings  Verb = "settings"
	VerbSlabs     Verb = "slabs"
	VerbItems     Verb = "items"
	VerbCachedump Verb = "cachedump"
	VerbEnd       Verb = "end"
)

// Verbs lists every verb in the order the client exposes them.
var Verbs = []Verb{
	VerbTouch, VerbGet, VerbGets, VerbGetMulti, VerbSet, VerbReplace,
	VerbAdd, VerbCAS, VerbAppend, VerbPrepend, VerbIncr, VerbDecr, VerbDel,
	VerbVersion, VerbFlush, VerbStats, VerbSettings, VerbSlabs, VerbItems,
	VerbCachedump, VerbEnd,
}

type (
	// Operation is one logical request. It must not be modified once it
	// has been handed to a connection.
	Operation struct {
		Verb     Verb
		Keys     []string
		Value    []byte
		Flags    uint32
		Lifetime time.Duration
		CAS      uint64
		Delta    uint64
		SlabID   int
		Limit    int

		// Timeout bounds each attempt, Retries bounds the number of
		// additional attempts and BaseDelay scales the backoff between
		// attempts. These are consumed by the client, not the driver.
		Timeout   time.Duration
		Retries   int
		BaseDelay time.Duration
	}

	// Result is the semantic (not wire-level) outcome of an operation.
	// Only the fields relevant to the operation's verb are populated.
	Result struct {
		// OK reports success for storage verbs, touch, del, flush and end.
		OK bool

		// Found reports whether the key existed for get, gets, incr
		// and decr.
		Found   bool
		Value   []byte
		Flags   uint32
		CAS     uint64
		Counter uint64
		Values  map[string][]byte
		Info    []Info
	}

	// Item is a value together with its CAS token as returned by gets.
	Item struct {
		Key   string
		Value []byte
		Flags uint32
		CAS   uint64
	}

	// Info is backend-reported structured information from one server
	// (version, stats, settings, slabs, items and cachedump).
	Info struct {
		Server string
		Values map[string]string
	}
)

// Key returns the first key of the operation or the empty string.
func (op *Operation) Key() string {
	if len(op.Keys) == 0 {
		return ""
	}

	return op.Keys[0]
}
