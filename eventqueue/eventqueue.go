// Package eventqueue is the bounded, single-producer/single-consumer queue
// that carries connector_event_t bitsets from the tick loop up to whatever
// consumes charger events (the session bridge, the CLI, a test harness).
//
// It is built directly on top of x/shmring rather than reinventing a ring
// buffer: shmring already gives the SPSC invariants (distance bookkeeping,
// edge-coalesced readiness, zero-copy spans) this queue needs, so the queue
// itself is only a fixed-width record codec over a shmring.Ring.
package eventqueue

import (
	"encoding/binary"

	"github.com/pazzk-labs/evse-core/types"
	"github.com/pazzk-labs/evse-core/x/shmring"
)

// recordSize is the wire width of a single types.ConnectorEventRecord:
// ConnectorID(4) + Events(2) + TsMs(4).
const recordSize = 10

// Queue is a bounded FIFO of connector event records. Overflow never
// reorders: when a record won't fit, it is dropped and Stats().Overflows
// increments; the next successfully enqueued record gains the
// EventQueueOverflow bit so a consumer can tell it missed something.
type Queue struct {
	ring      *shmring.Ring
	overflows uint64
	pending   types.ConnectorEvent // overflow bit carried to the next push
}

// New builds a queue whose backing ring holds at least capacity records.
// The ring size is rounded up to the next power-of-two byte count shmring
// requires.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	bytes := capacity * recordSize
	size := 2
	for size < bytes {
		size <<= 1
	}
	return &Queue{ring: shmring.New(size)}
}

// Stats reports overflow telemetry.
type Stats struct {
	Overflows uint64
}

func (q *Queue) Stats() Stats { return Stats{Overflows: q.overflows} }

// Readable exposes the backing ring's readiness notification so a consumer
// can select on it instead of polling.
func (q *Queue) Readable() <-chan struct{} { return q.ring.Readable() }

// Push enqueues rec, merging in the pending overflow bit if a prior push
// was dropped for lack of space. Returns false (and drops rec) if the ring
// has no room for a full record.
func (q *Queue) Push(rec types.ConnectorEventRecord) bool {
	if q.pending != 0 {
		rec.Events |= q.pending
	}
	if q.ring.Space() < recordSize {
		q.overflows++
		q.pending = types.EventEventQueueOverflow
		return false
	}
	var buf [recordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], rec.ConnectorID)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(rec.Events))
	binary.LittleEndian.PutUint32(buf[6:10], rec.TsMs)
	n := q.ring.TryWriteFrom(buf[:])
	if n != recordSize {
		// space check above should make this unreachable; treat as overflow
		// rather than leave a torn record in the ring.
		q.overflows++
		q.pending = types.EventEventQueueOverflow
		return false
	}
	q.pending = 0
	return true
}

// Pop dequeues the oldest record, if any.
func (q *Queue) Pop() (types.ConnectorEventRecord, bool) {
	if q.ring.Available() < recordSize {
		return types.ConnectorEventRecord{}, false
	}
	var buf [recordSize]byte
	n := q.ring.TryReadInto(buf[:])
	if n != recordSize {
		return types.ConnectorEventRecord{}, false
	}
	return types.ConnectorEventRecord{
		ConnectorID: binary.LittleEndian.Uint32(buf[0:4]),
		Events:      types.ConnectorEvent(binary.LittleEndian.Uint16(buf[4:6])),
		TsMs:        binary.LittleEndian.Uint32(buf[6:10]),
	}, true
}

// Drain pops every currently available record, in order.
func (q *Queue) Drain() []types.ConnectorEventRecord {
	var out []types.ConnectorEventRecord
	for {
		rec, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}
