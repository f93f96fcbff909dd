package session

import (
	"testing"

	"github.com/pazzk-labs/evse-core/connector"
	"github.com/pazzk-labs/evse-core/metering"
	"github.com/pazzk-labs/evse-core/pilot"
	"github.com/pazzk-labs/evse-core/simhw"
	"github.com/pazzk-labs/evse-core/types"
)

func newTestSession(t *testing.T, cp *simhw.CP, currentMilliA int32) *Session {
	t.Helper()
	p, err := pilot.New(&simhw.PWM{}, &simhw.Relay{}, cp)
	if err != nil {
		t.Fatalf("pilot.New: %v", err)
	}
	meter, err := metering.New(&simhw.Meter{Next: types.MeterSample{CurrentMilliA: currentMilliA}}, &simhw.MemStore{})
	if err != nil {
		t.Fatalf("metering.New: %v", err)
	}
	base, err := connector.New(connector.Params{Name: "c1", MaxCurrentA: 32}, p, nil, meter)
	if err != nil {
		t.Fatalf("connector.New: %v", err)
	}
	sess, err := New(base)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := sess.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	return sess
}

func TestSessionStartsAvailableWhenIdle(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	sess := newTestSession(t, cp, 0)
	if _, err := sess.Process(1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sess.Overlay() != Available {
		t.Fatalf("Overlay() = %v, want Available", sess.Overlay())
	}
}

func TestSessionEnableRaisesEnabledEvent(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	sess := newTestSession(t, cp, 0)
	events, err := sess.Process(1)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !events.Has(types.EventEnabled) {
		t.Fatalf("expected EventEnabled from the Enable() queued earlier, got %v", events.Names())
	}
}

func TestSessionUnauthorizedPluggedNeverCloses(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel9V} // plug in, state B
	sess := newTestSession(t, cp, 0)
	if _, err := sess.Process(1); err != nil {
		t.Fatalf("Process: %v", err)
	}

	cp.Level = pilot.CPLevel6V // EV now presents ready, but still unauthorized
	if _, err := sess.Process(2); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sess.Base().State() == connector.StateC || sess.Base().State() == connector.StateD {
		t.Fatalf("unauthorized session should never reach C/D, got %v", sess.Base().State())
	}
}

func TestSessionRemoteStartThenChargingRaisesBillingStarted(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel9V}
	sess := newTestSession(t, cp, 2000) // meaningful current draw: not suspended

	if err := sess.RemoteStart("tag-1"); err != nil {
		t.Fatalf("RemoteStart: %v", err)
	}
	if _, err := sess.Process(1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sess.Overlay() != Preparing {
		t.Fatalf("precondition failed: Overlay() = %v, want Preparing", sess.Overlay())
	}

	cp.Level = pilot.CPLevel6V
	events, err := sess.Process(2)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sess.Overlay() != Charging {
		t.Fatalf("Overlay() = %v, want Charging", sess.Overlay())
	}
	if !events.Has(types.EventBillingStarted) {
		t.Fatalf("expected EventBillingStarted, got %v", events.Names())
	}
	if sess.TransactionID() == 0 {
		t.Fatal("expected a nonzero transaction id once charging starts")
	}
}

func TestSessionRemoteStartBeforePlugRaisesOccupied(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	sess := newTestSession(t, cp, 0)

	if err := sess.RemoteStart("tag-1"); err != nil {
		t.Fatalf("RemoteStart: %v", err)
	}
	events, err := sess.Process(1)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sess.Overlay() != Preparing {
		t.Fatalf("Overlay() = %v, want Preparing (authorized, EV not yet plugged)", sess.Overlay())
	}
	if !events.Has(types.EventOccupied) {
		t.Fatalf("expected EventOccupied, got %v", events.Names())
	}
}

func TestSessionRemoteStopEndsSessionViaFinishing(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel9V}
	sess := newTestSession(t, cp, 2000)
	sess.RemoteStart("tag-1")
	sess.Process(1)
	cp.Level = pilot.CPLevel6V
	sess.Process(2)
	if sess.Overlay() != Charging {
		t.Fatalf("precondition failed: Overlay() = %v, want Charging", sess.Overlay())
	}

	if err := sess.RemoteStop(); err != nil {
		t.Fatalf("RemoteStop: %v", err)
	}
	events, err := sess.Process(3)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !events.Has(types.EventBillingEnded) {
		t.Fatalf("expected EventBillingEnded, got %v", events.Names())
	}
	if sess.Overlay() != Finishing {
		t.Fatalf("Overlay() = %v, want Finishing (still plugged in)", sess.Overlay())
	}

	cp.Level = pilot.CPLevel12V // unplug
	sess.Process(4)
	if sess.Overlay() == Finishing {
		t.Fatal("Overlay() should leave Finishing once unplugged")
	}
}

func TestSessionReserveRejectsOtherIDTag(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	sess := newTestSession(t, cp, 0)

	if err := sess.Reserve("tag-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := sess.RemoteStart("tag-2"); err == nil {
		t.Fatal("expected RemoteStart for a different idTag to be rejected")
	}
	if err := sess.RemoteStart("tag-1"); err != nil {
		t.Fatalf("RemoteStart for the reserving idTag should succeed: %v", err)
	}
}

func TestSessionReserveRejectedRaisesAuthRejected(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	sess := newTestSession(t, cp, 0)

	sess.Reserve("tag-1")
	sess.RemoteStart("tag-2")
	events, err := sess.Process(1)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !events.Has(types.EventAuthRejected) {
		t.Fatalf("expected EventAuthRejected, got %v", events.Names())
	}
}

func TestSessionReserveRejectedWhileCharging(t *testing.T) {
	cp := &simhw.CP{Level: pilot.CPLevel9V}
	sess := newTestSession(t, cp, 2000)
	sess.RemoteStart("tag-1")
	sess.Process(1)
	cp.Level = pilot.CPLevel6V
	sess.Process(2)

	if err := sess.Reserve("tag-2"); err == nil {
		t.Fatal("expected Reserve to fail while charging")
	}
}
