package safety

// defaultUptodateDueMs bounds how old the newest recorded zero-crossing
// may be before the entry reports Stale. The source material doubles
// this window while a charging pulse is active and leaves it ambiguous
// whether that was intentional; this port keeps a single window
// regardless of pulse state (see DESIGN.md).
const defaultUptodateDueMs = 500

const debounceMs = 8
const maxWindowEdges = 60

// FrequencyEntry watches mains zero-crossing edges (fed from an
// interrupt handler, the way gpio IRQ events fed the debounce/edge
// worker) and flags an abnormal or stale supply frequency.
type FrequencyEntry struct {
	name string

	nominalHz   float64
	toleranceHz float64
	uptodateDue int64

	edges     [maxWindowEdges]int64
	count     int
	head      int
	lastEdgeMs int64
	haveEdge  bool
}

// NewFrequencyEntry builds an entry expecting nominalHz ± toleranceHz.
func NewFrequencyEntry(name string, nominalHz, toleranceHz float64) *FrequencyEntry {
	return &FrequencyEntry{
		name:        name,
		nominalHz:   nominalHz,
		toleranceHz: toleranceHz,
		uptodateDue: defaultUptodateDueMs,
	}
}

func (f *FrequencyEntry) Name() string { return f.name }

// RecordEdge is called from the zero-crossing interrupt handler. Edges
// closer together than the debounce window are dropped, the same
// contact-bounce rejection the GPIO IRQ worker applies to buttons.
func (f *FrequencyEntry) RecordEdge(nowMs int64) {
	if f.haveEdge && nowMs-f.lastEdgeMs < debounceMs {
		return
	}
	f.edges[f.head] = nowMs
	f.head = (f.head + 1) % maxWindowEdges
	if f.count < maxWindowEdges {
		f.count++
	}
	f.lastEdgeMs = nowMs
	f.haveEdge = true
}

// Check reports the entry's current status at nowMs.
func (f *FrequencyEntry) Check(nowMs int64) Status {
	if !f.haveEdge || nowMs-f.lastEdgeMs > f.uptodateDue {
		return StatusStale
	}
	if f.count < 3 {
		return StatusSamplingError
	}

	oldestIdx := (f.head - f.count + maxWindowEdges) % maxWindowEdges
	newestIdx := (f.head - 1 + maxWindowEdges) % maxWindowEdges
	span := f.edges[newestIdx] - f.edges[oldestIdx]
	if span <= 0 {
		return StatusSamplingError
	}
	// Two zero-crossings per AC cycle.
	cycles := float64(f.count-1) / 2.0
	hz := cycles * 1000.0 / float64(span)

	lo, hi := f.nominalHz-f.toleranceHz, f.nominalHz+f.toleranceHz
	if hz < lo || hz > hi {
		return StatusAbnormalFrequency
	}
	return StatusOK
}

// EdgeCount reports the number of edges currently in the sliding window.
func (f *FrequencyEntry) EdgeCount() int { return f.count }
