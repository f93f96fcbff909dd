package safety

import "testing"

type alwaysOK struct{ name string }

func (a alwaysOK) Name() string             { return a.name }
func (a alwaysOK) Check(nowMs int64) Status { return StatusOK }

type alwaysStatus struct {
	name string
	st   Status
}

func (a alwaysStatus) Name() string             { return a.name }
func (a alwaysStatus) Check(nowMs int64) Status { return a.st }

func TestSupervisorCheckFirstTripWins(t *testing.T) {
	s := New()
	s.AddAndEnable(alwaysOK{"a"})
	failID := s.AddAndEnable(alwaysStatus{"b", StatusAbnormalFrequency})
	s.AddAndEnable(alwaysStatus{"c", StatusEmergencyStop})

	name, status := s.Check(0)
	if name != "b" || status != StatusAbnormalFrequency {
		t.Fatalf("Check() = (%q, %v), want (\"b\", AbnormalFrequency)", name, status)
	}

	if err := s.Disable(failID); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	name, status = s.Check(0)
	if name != "c" || status != StatusEmergencyStop {
		t.Fatalf("after disabling b: Check() = (%q, %v), want (\"c\", EmergencyStop)", name, status)
	}
}

func TestSupervisorAddDisabledUntilEnabled(t *testing.T) {
	s := New()
	id := s.Add(alwaysStatus{"tripped", StatusTripped})
	if _, status := s.Check(0); status != StatusOK {
		t.Fatalf("newly-added entry should be disabled, got status %v", status)
	}
	if err := s.Enable(id); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if _, status := s.Check(0); status != StatusTripped {
		t.Fatalf("after Enable: status = %v, want Tripped", status)
	}
}

func TestSupervisorRemoveUnknownID(t *testing.T) {
	s := New()
	if err := s.Remove(999); err == nil {
		t.Fatal("expected error removing unknown id")
	}
}

func TestSupervisorDestroyClearsRegistry(t *testing.T) {
	s := New()
	s.AddAndEnable(alwaysStatus{"x", StatusTripped})
	s.Destroy()
	if _, status := s.Check(0); status != StatusOK {
		t.Fatalf("after Destroy: status = %v, want OK", status)
	}
}

func TestSupervisorIterateVisitsAll(t *testing.T) {
	s := New()
	s.Add(alwaysOK{"a"})
	s.AddAndEnable(alwaysOK{"b"})

	var seen []string
	s.Iterate(func(id EntryID, entry Entry, enabled bool) {
		seen = append(seen, entry.Name())
	})
	if len(seen) != 2 {
		t.Fatalf("Iterate visited %d entries, want 2", len(seen))
	}
}
