// Package metrics holds the acceptor's performance counters behind atomics.
// No counter/metrics library appears anywhere in the retrieved example pack
// (no prometheus, expvar-style, or OTel dependency in any of the six repos),
// so these few shared mutable counts are plain sync/atomic fields — see
// DESIGN.md for the full justification.
package metrics

import "sync/atomic"

// Counters tracks connection and turn counts for the acceptor's
// flush-and-print-on-shutdown behavior.
type Counters struct {
	connectionsAccepted uint64
	connectionsClosed   uint64
	turnsProcessed      uint64
	turnsRejected       uint64
	acceptErrors        uint64
}

func (c *Counters) ConnectionAccepted() { atomic.AddUint64(&c.connectionsAccepted, 1) }
func (c *Counters) ConnectionClosed()   { atomic.AddUint64(&c.connectionsClosed, 1) }
func (c *Counters) TurnProcessed()      { atomic.AddUint64(&c.turnsProcessed, 1) }
func (c *Counters) TurnRejected()       { atomic.AddUint64(&c.turnsRejected, 1) }
func (c *Counters) AcceptError()        { atomic.AddUint64(&c.acceptErrors, 1) }

// Snapshot is a point-in-time, non-atomic copy suitable for logging or
// printing.
type Snapshot struct {
	ConnectionsAccepted uint64
	ConnectionsClosed   uint64
	TurnsProcessed      uint64
	TurnsRejected       uint64
	AcceptErrors        uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		ConnectionsAccepted: atomic.LoadUint64(&c.connectionsAccepted),
		ConnectionsClosed:   atomic.LoadUint64(&c.connectionsClosed),
		TurnsProcessed:      atomic.LoadUint64(&c.turnsProcessed),
		TurnsRejected:       atomic.LoadUint64(&c.turnsRejected),
		AcceptErrors:        atomic.LoadUint64(&c.acceptErrors),
	}
}
