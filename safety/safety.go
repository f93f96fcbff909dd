// Package safety is the ordered registry of safety checks the charger
// consults before it will let a connector close its contactor. Each
// Entry is a small polymorphic capability object, the same shape the
// registry/builder pattern used for pluggable HAL devices — except here
// the registry holds live safety checks instead of device adaptors.
package safety

import "github.com/pazzk-labs/evse-core/errcode"

// Status is the outcome of checking a single safety entry.
type Status uint8

const (
	StatusOK Status = iota
	StatusStale
	StatusSamplingError
	StatusAbnormalFrequency
	StatusEmergencyStop
	StatusTripped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStale:
		return "stale"
	case StatusSamplingError:
		return "sampling_error"
	case StatusAbnormalFrequency:
		return "abnormal_frequency"
	case StatusEmergencyStop:
		return "emergency_stop"
	case StatusTripped:
		return "tripped"
	default:
		return "unknown"
	}
}

// Entry is one safety check. Check is called once per supervisor Check()
// and must not block — it samples whatever state the entry already
// accumulated (e.g. from an ISR-fed edge counter) and returns a verdict.
type Entry interface {
	Name() string
	Check(nowMs int64) Status
}

// EntryID identifies a registered entry for later Remove.
type EntryID uint32

type registered struct {
	id      EntryID
	entry   Entry
	enabled bool
}

// Supervisor holds an ordered registry of safety entries. Check walks the
// registry in registration order and returns the first non-OK status it
// finds (or StatusOK if every enabled entry passed), matching the
// fail-fast, first-trip-wins semantics a safety loop needs.
type Supervisor struct {
	entries []*registered
	nextID  EntryID
}

// New builds an empty supervisor.
func New() *Supervisor { return &Supervisor{} }

// Add registers entry disabled; it is skipped by Check until Enable(id).
func (s *Supervisor) Add(entry Entry) EntryID {
	s.nextID++
	s.entries = append(s.entries, &registered{id: s.nextID, entry: entry})
	return s.nextID
}

// AddAndEnable registers entry and enables it immediately.
func (s *Supervisor) AddAndEnable(entry Entry) EntryID {
	id := s.Add(entry)
	_ = s.Enable(id)
	return id
}

// Enable turns an entry on.
func (s *Supervisor) Enable(id EntryID) error { return s.setEnabled(id, true) }

// Disable turns an entry off without removing it from the registry.
func (s *Supervisor) Disable(id EntryID) error { return s.setEnabled(id, false) }

func (s *Supervisor) setEnabled(id EntryID, on bool) error {
	for _, r := range s.entries {
		if r.id == id {
			r.enabled = on
			return nil
		}
	}
	return errcode.Wrap(errcode.NotFound, "safety.setEnabled", "unknown entry id", nil)
}

// Remove deregisters an entry entirely.
func (s *Supervisor) Remove(id EntryID) error {
	for i, r := range s.entries {
		if r.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return errcode.Wrap(errcode.NotFound, "safety.Remove", "unknown entry id", nil)
}

// Check evaluates every enabled entry in registration order and returns
// the first failing (name, status) pair, or ("", StatusOK) if all pass.
func (s *Supervisor) Check(nowMs int64) (name string, status Status) {
	for _, r := range s.entries {
		if !r.enabled {
			continue
		}
		if st := r.entry.Check(nowMs); st != StatusOK {
			return r.entry.Name(), st
		}
	}
	return "", StatusOK
}

// Iterate calls fn for every registered entry in registration order,
// enabled or not.
func (s *Supervisor) Iterate(fn func(id EntryID, entry Entry, enabled bool)) {
	for _, r := range s.entries {
		fn(r.id, r.entry, r.enabled)
	}
}

// Destroy clears the registry. After Destroy, Check always returns OK —
// callers must re-populate the supervisor before trusting it again.
func (s *Supervisor) Destroy() {
	s.entries = nil
	s.nextID = 0
}
