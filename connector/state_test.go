package connector

import (
	"testing"

	"github.com/pazzk-labs/evse-core/safety"
	"github.com/pazzk-labs/evse-core/types"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name        string
		current     State
		cp          types.PilotState
		maxCurrentA uint16
		status      safety.Status
		elapsedMs   int64
		wantNext    State
		wantClosed  bool
		wantAdvert  uint16
	}{
		{"idle stays idle", StateA, types.PilotStateA, 32, safety.StatusOK, 0, StateA, false, 0},
		{"plug in goes to B", StateA, types.PilotStateB, 32, safety.StatusOK, 0, StateB, false, 0},
		{"ready with current closes contactor", StateB, types.PilotStateC, 32, safety.StatusOK, 0, StateC, true, 32},
		{"ventilation-required state closes contactor", StateC, types.PilotStateD, 16, safety.StatusOK, 0, StateD, true, 16},
		{"unplug from charging opens contactor", StateC, types.PilotStateA, 32, safety.StatusOK, 0, StateA, false, 0},
		{"zero current policy refusal holds at B", StateB, types.PilotStateC, 0, safety.StatusOK, 0, StateB, false, 0},
		{"safety failure forces F regardless of cp", StateC, types.PilotStateC, 32, safety.StatusStale, 0, StateF, false, 0},
		{"safety failure forces F even when idle", StateA, types.PilotStateA, 32, safety.StatusStale, 0, StateF, false, 0},
		{"pilot E while idle has no B to have skipped", StateA, types.PilotStateE, 32, safety.StatusOK, 0, StateE, false, 0},
		{"raw jump A to C is an illegal skip of B", StateA, types.PilotStateC, 32, safety.StatusOK, 0, StateF, false, 0},
		{"raw jump A to D is an illegal skip of B", StateA, types.PilotStateD, 32, safety.StatusOK, 0, StateF, false, 0},
		{"EV-side fault while charging forces F", StateC, types.PilotStateE, 32, safety.StatusOK, 0, StateF, false, 0},
		{"F stays F before the recovery dwell elapses", StateF, types.PilotStateA, 32, safety.StatusOK, evResponseTimeoutMs - 1, StateF, false, 0},
		{"F recovers to A once the dwell elapses and safety is OK", StateF, types.PilotStateA, 32, safety.StatusOK, evResponseTimeoutMs, StateA, false, 0},
		{"F does not recover while safety still fails, however long it dwells", StateF, types.PilotStateA, 32, safety.StatusStale, evResponseTimeoutMs * 2, StateF, false, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			next, eff, _, _ := Transition(c.current, c.cp, c.maxCurrentA, c.status, c.elapsedMs)
			if next != c.wantNext {
				t.Fatalf("next state = %v, want %v", next, c.wantNext)
			}
			if eff.ContactorClosed != c.wantClosed {
				t.Fatalf("contactor closed = %v, want %v", eff.ContactorClosed, c.wantClosed)
			}
			if eff.AdvertiseCurrentA != c.wantAdvert {
				t.Fatalf("advertised current = %d, want %d", eff.AdvertiseCurrentA, c.wantAdvert)
			}
		})
	}
}

func TestTransitionEvents(t *testing.T) {
	_, _, events, _ := Transition(StateA, types.PilotStateB, 32, safety.StatusOK, 0)
	if !events.Has(types.EventPlugged) {
		t.Fatalf("expected EventPlugged, got %v", events.Names())
	}

	_, _, events, _ = Transition(StateB, types.PilotStateC, 32, safety.StatusOK, 0)
	if !events.Has(types.EventChargingStarted) {
		t.Fatalf("expected EventChargingStarted, got %v", events.Names())
	}

	_, _, events, _ = Transition(StateC, types.PilotStateA, 32, safety.StatusOK, 0)
	if !events.Has(types.EventUnplugged) || !events.Has(types.EventChargingEnded) {
		t.Fatalf("expected unplugged+charging-ended, got %v", events.Names())
	}

	_, _, events, fault := Transition(StateC, types.PilotStateC, 32, safety.StatusStale, 0)
	if !events.Has(types.EventChargingEnded) || !events.Has(types.EventError) {
		t.Fatalf("expected ChargingEnded|Error, got %v", events.Names())
	}
	if fault != ErrorEVSESide {
		t.Fatalf("fault = %v, want ErrorEVSESide", fault)
	}

	_, _, events, fault = Transition(StateC, types.PilotStateC, 32, safety.StatusEmergencyStop, 0)
	if fault != ErrorEmergencyStop {
		t.Fatalf("fault = %v, want ErrorEmergencyStop", fault)
	}

	_, _, events, fault = Transition(StateC, types.PilotStateE, 32, safety.StatusOK, 0)
	if !events.Has(types.EventChargingEnded) || !events.Has(types.EventError) {
		t.Fatalf("expected ChargingEnded|Error for EV-side fault, got %v", events.Names())
	}
	if fault != ErrorEVSide {
		t.Fatalf("fault = %v, want ErrorEVSide", fault)
	}

	_, _, events, _ = Transition(StateA, types.PilotStateC, 32, safety.StatusOK, 0)
	if !events.Has(types.EventError) || events.Has(types.EventPlugged) {
		t.Fatalf("illegal A->C jump should raise Error without Plugged, got %v", events.Names())
	}

	_, _, events, _ = Transition(StateF, types.PilotStateA, 32, safety.StatusOK, evResponseTimeoutMs)
	if !events.Has(types.EventErrorRecovery) || events.Has(types.EventUnplugged) {
		t.Fatalf("F->A recovery should raise only ErrorRecovery, got %v", events.Names())
	}
}

func TestChargingNeverClosesWithoutSafety(t *testing.T) {
	for cp := types.PilotStateA; cp <= types.PilotStateF; cp++ {
		_, eff, _, _ := Transition(StateC, cp, 32, safety.StatusStale, 0)
		if eff.ContactorClosed {
			t.Fatalf("cp=%v: contactor closed with a failing safety status", cp)
		}
	}
}
