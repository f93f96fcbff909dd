// Package charger is the aggregate root: it owns every connector on the
// box, assigns them monotonic ids that are never reused, and drives
// them once per tick in a fair rotation — the same per-device scheduling
// shape the HAL service's devPeriodMS/devNextDue bookkeeping used for
// many independent adaptors sharing one tick loop, collapsed here to a
// simple round-robin since every connector is serviced every tick.
package charger

import (
	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/eventqueue"
	"github.com/pazzk-labs/evse-core/types"
)

// Connector is the contract charger.Process drives. Both
// connector.Connector and connector/session.Session satisfy it.
type Connector interface {
	ID() uint32
	Name() string
	Enabled() bool
	Available() bool
	Enable() error
	Disable() error
	Process(nowMs int64) (types.ConnectorEvent, error)
}

// Charger aggregates N connectors behind one tick loop and one event
// queue.
type Charger struct {
	connectors map[uint32]Connector
	order      []uint32 // registration order; rotated each tick for fairness
	idCounter  uint32
	rrOffset   int

	queue      *eventqueue.Queue
	subscribed bool
}

// New builds an empty charger with a bounded event queue of the given
// record capacity.
func New(queueCapacity int) *Charger {
	return &Charger{
		connectors: make(map[uint32]Connector),
		queue:      eventqueue.New(queueCapacity),
	}
}

// Attach registers a connector and assigns it the next id. Ids are
// never reused, even after Detach, so a stale reference from an
// upstream system can never silently alias a different physical
// connector.
func (c *Charger) Attach(conn Connector) (uint32, error) {
	if conn == nil {
		return 0, errcode.Wrap(errcode.Invalid, "charger.Attach", "connector is nil", nil)
	}
	c.idCounter++
	id := c.idCounter
	c.connectors[id] = conn
	c.order = append(c.order, id)
	return id, nil
}

// Detach removes a connector from scheduling. Its id is retired, not
// reused.
func (c *Charger) Detach(id uint32) error {
	if _, ok := c.connectors[id]; !ok {
		return errcode.Wrap(errcode.NotFound, "charger.Detach", "unknown connector id", nil)
	}
	delete(c.connectors, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetByID returns the connector with the given id.
func (c *Charger) GetByID(id uint32) (Connector, error) {
	conn, ok := c.connectors[id]
	if !ok {
		return nil, errcode.Wrap(errcode.NotFound, "charger.GetByID", "unknown connector id", nil)
	}
	return conn, nil
}

// GetByName returns the first connector (in registration order)
// matching name.
func (c *Charger) GetByName(name string) (Connector, error) {
	for _, id := range c.order {
		if conn := c.connectors[id]; conn.Name() == name {
			return conn, nil
		}
	}
	return nil, errcode.Wrap(errcode.NotFound, "charger.GetByName", "unknown connector name", nil)
}

// GetAvailable returns every enabled, idle connector, in registration
// order.
func (c *Charger) GetAvailable() []Connector {
	var out []Connector
	for _, id := range c.order {
		if conn := c.connectors[id]; conn.Available() {
			out = append(out, conn)
		}
	}
	return out
}

// Count returns the number of attached connectors.
func (c *Charger) Count() int { return len(c.order) }

// Process runs one tick: every attached connector is serviced exactly
// once, starting from a rotating offset so that if a caller imposes a
// per-tick budget by only draining part of the order, no connector is
// permanently starved. Events raised by each connector are pushed onto
// the charger's event queue tagged with that connector's id.
func (c *Charger) Process(nowMs int64) error {
	n := len(c.order)
	if n == 0 {
		return nil
	}
	if c.rrOffset >= n {
		c.rrOffset = 0
	}
	start := c.rrOffset
	var firstErr error
	for i := 0; i < n; i++ {
		id := c.order[(start+i)%n]
		conn := c.connectors[id]
		events, err := conn.Process(nowMs)
		if err != nil && firstErr == nil {
			firstErr = errcode.Wrap(errcode.Io, "charger.Process", "connector process failed", err)
		}
		if events != 0 {
			c.queue.Push(types.ConnectorEventRecord{ConnectorID: id, Events: events, TsMs: uint32(nowMs)})
		}
	}
	c.rrOffset = (start + 1) % n
	return firstErr
}

// Subscribe grants the caller exclusive access to drain the event
// queue — only one subscriber at a time, matching the single-consumer
// side of the underlying SPSC queue.
func (c *Charger) Subscribe() (*Subscription, error) {
	if c.subscribed {
		return nil, errcode.Wrap(errcode.Busy, "charger.Subscribe", "already has a subscriber", nil)
	}
	c.subscribed = true
	return &Subscription{charger: c}, nil
}

// Subscription is the single-consumer handle returned by Subscribe.
type Subscription struct {
	charger *Charger
	closed  bool
}

// Readable exposes the event queue's readiness notification.
func (s *Subscription) Readable() <-chan struct{} { return s.charger.queue.Readable() }

// Drain pops every currently queued event record.
func (s *Subscription) Drain() []types.ConnectorEventRecord { return s.charger.queue.Drain() }

// Stats reports the event queue's overflow telemetry.
func (s *Subscription) Stats() eventqueue.Stats { return s.charger.queue.Stats() }

// Close releases the subscription so another caller may Subscribe.
func (s *Subscription) Close() {
	if !s.closed {
		s.charger.subscribed = false
		s.closed = true
	}
}
