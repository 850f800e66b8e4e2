package memjoy

import "github.com/efritz/memjoy/iface"

type (
	// Conn abstracts a single session with a cache backend.
	Conn = iface.Conn

	// Operation is one logical request.
	Operation = iface.Operation

	// Result is the semantic outcome of an operation.
	Result = iface.Result

	// Item is a value together with its CAS token.
	Item = iface.Item

	// Info is backend-reported structured information from one server.
	Info = iface.Info

	// Verb names one cache operation.
	Verb = iface.Verb

	// DialFunc creates a connection to the cache backend or returns an error.
	DialFunc func() (Conn, error)

	// DialerFactory creates a DialFunc for the given server locations.
	DialerFactory func(addrs []string) DialFunc
)
