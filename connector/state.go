// Package connector is the free-vend connector state machine: one IEC
// 61851-1 control-pilot reading in, one contactor/advertised-current
// decision out. Transition is a pure function — it never touches a pin
// or a bus, it only computes what the caller should do — so it is
// exhaustively table-testable the way a parser or a codec would be.
package connector

import (
	"github.com/pazzk-labs/evse-core/safety"
	"github.com/pazzk-labs/evse-core/types"
)

// State mirrors the IEC 61851-1 control-pilot states 1:1; the free-vend
// FSM has no states beyond what the pilot line already expresses.
type State uint8

const (
	StateA State = iota // not connected
	StateB               // connected, not ready
	StateC               // ready, no ventilation required
	StateD               // ready, ventilation required
	StateE               // EV-side error (New starts a connector in StateA, not E)
	StateF               // EVSE-side fault / unavailable
)

func fromPilot(p types.PilotState) State { return State(p) }

func (s State) String() string { return types.PilotState(s).String() }

// Charging reports whether s is a state in which the contactor may be
// closed (C or D).
func (s State) Charging() bool { return s == StateC || s == StateD }

// Plugged reports whether s is a state reached only while the EV is
// physically connected (B, C or D). F is reached from any state on a
// safety trip, so it is deliberately excluded — recovering out of F
// must never be mistaken for an unplug.
func (s State) Plugged() bool { return s == StateB || s == StateC || s == StateD }

// ConnectorError classifies why the FSM is sitting in StateF, mirroring
// the connector_error_t the original firmware reports alongside a
// CHARGER_EVENT_ERROR.
type ConnectorError uint8

const (
	ErrorNone ConnectorError = iota
	ErrorEVSide
	ErrorEVSESide
	ErrorEmergencyStop
)

func (e ConnectorError) String() string {
	switch e {
	case ErrorEVSide:
		return "ev_side"
	case ErrorEVSESide:
		return "evse_side"
	case ErrorEmergencyStop:
		return "emergency_stop"
	default:
		return "none"
	}
}

// evResponseTimeoutMs is the minimum dwell in StateF before recovery is
// even evaluated (I4), chosen the same ballpark as the original
// EV_RESPONSE_TIMEOUT (~5 s).
const evResponseTimeoutMs = 5000

// Effects is what the caller must apply to the hardware after a
// Transition: the contactor target and the current to advertise on the
// pilot line. The FSM never calls pilot.Pilot itself.
type Effects struct {
	ContactorClosed   bool
	AdvertiseCurrentA uint16
}

// Transition computes the next state and side effects from the current
// state, the freshly-read CP state, the configured max current, the
// safety supervisor's latest status, and how long the connector has
// dwelt in its current state. Invariant: the contactor is only ever
// requested closed when next is C or D AND safety currently passes (P1);
// a safety failure always wins over any non-Fault transition (P5) by
// forcing next to StateF regardless of cp.
func Transition(current State, cp types.PilotState, maxCurrentA uint16, safetyStatus safety.Status, elapsedInStateMs int64) (State, Effects, types.ConnectorEvent, ConnectorError) {
	safetyOK := safetyStatus == safety.StatusOK

	var next State
	var faultKind ConnectorError

	switch {
	case !safetyOK:
		next = StateF
		if safetyStatus == safety.StatusEmergencyStop {
			faultKind = ErrorEmergencyStop
		} else {
			faultKind = ErrorEVSESide
		}
	case current == StateF:
		// Recovery is gated on dwell alone: the EVSE drives the pilot
		// line to its own F presentation while faulted, so reading cp
		// back never tells us anything new here.
		if elapsedInStateMs >= evResponseTimeoutMs {
			next = StateA
		} else {
			next = StateF
		}
	case current == StateA && (cp == types.PilotStateC || cp == types.PilotStateD):
		// A raw pilot jump straight to C/D is impossible without first
		// observing B; treat it as an EV-side fault rather than admit
		// charging off an unexplained reading.
		next = StateF
		faultKind = ErrorEVSide
	case current.Charging() && cp == types.PilotStateE:
		next = StateF
		faultKind = ErrorEVSide
	default:
		next = fromPilot(cp)
		if next.Charging() && maxCurrentA == 0 {
			// Policy refuses service (e.g. unauthorized session): hold at
			// "connected, not ready" rather than closing the contactor.
			next = StateB
		}
	}

	var events types.ConnectorEvent
	if next != current {
		if current == StateA && next == StateB {
			events |= types.EventPlugged
		}
		if current.Plugged() && next == StateA {
			events |= types.EventUnplugged
		}
		if next.Charging() && !current.Charging() {
			events |= types.EventChargingStarted
		}
		if current.Charging() && !next.Charging() {
			events |= types.EventChargingEnded
		}
		if next == StateF && current != StateF {
			events |= types.EventError
		}
		if current == StateF && next != StateF {
			events |= types.EventErrorRecovery
		}
	}

	eff := Effects{}
	if next.Charging() && safetyOK {
		eff.ContactorClosed = true
		eff.AdvertiseCurrentA = maxCurrentA
	}
	return next, eff, events, faultKind
}
