// Package session is the session-governed overlay FSM. It wraps a
// free-vend connector.Connector and adds the remote-start/stop,
// reservation, and authorization policy a networked charge point needs,
// without changing how the underlying pilot/contactor FSM works — the
// overlay only ever throttles the advertised current the base FSM is
// allowed to use, the same enable/disable/process contract the base
// connector exposes.
package session

import (
	"github.com/pazzk-labs/evse-core/connector"
	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/types"
)

// OverlayState is the session-governed view of a connector, the
// OCPP-familiar state set layered on top of the IEC pilot states.
type OverlayState string

const (
	Booting       OverlayState = "Booting"
	Available     OverlayState = "Available"
	Preparing     OverlayState = "Preparing"
	Charging      OverlayState = "Charging"
	SuspendedEV   OverlayState = "SuspendedEV"
	SuspendedEVSE OverlayState = "SuspendedEVSE"
	Finishing     OverlayState = "Finishing"
	Reserved      OverlayState = "Reserved"
	Unavailable   OverlayState = "Unavailable"
	Faulted       OverlayState = "Faulted"
)

// Session wraps one connector.Connector with authorization/reservation
// state.
type Session struct {
	base *connector.Connector

	overlay       OverlayState
	authorized    bool
	idTag         string
	transactionID uint32
	nextTxID      uint32

	reserved      bool
	reservationTag string

	finishing bool

	// maxCurrentA is the base connector's configured ceiling, captured at
	// New because Process overwrites the base params while unauthorized.
	maxCurrentA uint16

	// pending holds events that originate outside Process (Reserve,
	// Enable, a rejected RemoteStart) and are delivered on the next tick,
	// since the charger.Connector contract only ever forwards events
	// returned from Process.
	pending types.ConnectorEvent
}

// New wraps base. The overlay starts Booting until the first Process
// call classifies it into Available/Unavailable.
func New(base *connector.Connector) (*Session, error) {
	if base == nil {
		return nil, errcode.Wrap(errcode.Invalid, "session.New", "base connector is required", nil)
	}
	return &Session{base: base, overlay: Booting, maxCurrentA: base.Params().MaxCurrentA}, nil
}

func (s *Session) Overlay() OverlayState { return s.overlay }
func (s *Session) Base() *connector.Connector { return s.base }
func (s *Session) TransactionID() uint32 { return s.transactionID }

// ID/Name/Available let Session satisfy the same contract charger.Charger
// drives for a plain connector.Connector.
func (s *Session) ID() uint32      { return s.base.ID() }
func (s *Session) Name() string    { return s.base.Name() }
func (s *Session) Available() bool { return s.overlay == Available }
func (s *Session) Enabled() bool   { return s.base.Enabled() }

// Enable arms the base connector. The overlay remains Booting until the
// first Process call.
func (s *Session) Enable() error {
	if err := s.base.Enable(); err != nil {
		return err
	}
	s.pending |= types.EventEnabled
	return nil
}

// Disable forces the base connector (and therefore the overlay) to a
// faulted/unavailable rest state.
func (s *Session) Disable() error {
	s.overlay = Unavailable
	return s.base.Disable()
}

// Reserve marks the connector reserved for idTag. Per the resolved open
// question on reservation semantics, this never touches the pilot
// state machine (the connector stays wherever the CP line puts it, A or
// B) — it only changes which RemoteStart calls are accepted.
func (s *Session) Reserve(idTag string) error {
	if s.base.State().Charging() {
		return errcode.Wrap(errcode.Busy, "session.Reserve", "connector is charging", nil)
	}
	s.reserved = true
	s.reservationTag = idTag
	s.pending |= types.EventReserved
	return nil
}

// CancelReservation clears a reservation regardless of who holds it.
func (s *Session) CancelReservation() {
	s.reserved = false
	s.reservationTag = ""
}

// RemoteStart authorizes idTag to draw up to the connector's configured
// current. If the connector is reserved for a different idTag, the
// request is rejected.
func (s *Session) RemoteStart(idTag string) error {
	if s.reserved && s.reservationTag != "" && s.reservationTag != idTag {
		s.pending |= types.EventAuthRejected
		return errcode.Wrap(errcode.Busy, "session.RemoteStart", "connector reserved for another idTag", nil)
	}
	s.authorized = true
	s.idTag = idTag
	s.reserved = false
	s.reservationTag = ""
	return nil
}

// RemoteStop withdraws authorization. The base connector will throttle
// its advertised current to 0 on the next Process call, which in turn
// drops the pilot state to "connected, not ready" rather than closing
// the contactor.
func (s *Session) RemoteStop() error {
	if s.overlay == Charging || s.overlay == SuspendedEV {
		s.finishing = true
	}
	s.authorized = false
	s.idTag = ""
	return nil
}

// Process runs one tick of the base FSM under the overlay's current
// authorization, then reclassifies the overlay state and synthesizes
// BillingStarted/BillingEnded/Occupied/Unoccupied on top of whatever
// the base FSM raised, plus any pending event queued by Reserve,
// Enable, or a rejected RemoteStart since the last tick.
func (s *Session) Process(nowMs int64) (types.ConnectorEvent, error) {
	if s.authorized {
		s.base.SetMaxCurrentA(s.maxCurrentA)
	} else {
		s.base.SetMaxCurrentA(0)
	}

	events, err := s.base.Process(nowMs)
	if err != nil {
		return events, err
	}

	currentMilliA := int32(-1) // unknown: never classify as SuspendedEV without a real sample
	if m := s.base.Metering(); m != nil {
		if sample, ok := m.LastSample(); ok {
			currentMilliA = sample.CurrentMilliA
		}
	}

	if s.finishing && s.base.State() == connector.StateA {
		s.finishing = false
	}

	prevOverlay := s.overlay
	if s.finishing {
		s.overlay = Finishing
	} else {
		s.overlay = deriveOverlay(s.base.State(), s.authorized, s.reserved, currentMilliA)
	}

	if prevOverlay != Preparing && s.overlay == Preparing {
		events |= types.EventOccupied
	}
	if prevOverlay == Preparing && (s.overlay == Available || s.overlay == Reserved) {
		events |= types.EventUnoccupied
	}
	if prevOverlay != Charging && s.overlay == Charging {
		s.nextTxID++
		s.transactionID = s.nextTxID
		events |= types.EventBillingStarted
	}
	if prevOverlay == Charging && s.overlay != Charging {
		events |= types.EventBillingEnded
	}
	if prevOverlay == Charging && s.overlay == SuspendedEV {
		events |= types.EventChargingSuspended
	}
	if prevOverlay == Charging && s.overlay == SuspendedEVSE {
		events |= types.EventChargingSuspended
	}

	events |= s.pending
	s.pending = 0
	return events, nil
}

// suspendedEVThresholdMilliA is the current draw below which an
// authorized, contactor-closed connector is considered EV-suspended
// rather than actively charging.
const suspendedEVThresholdMilliA = 500

func deriveOverlay(base connector.State, authorized, reserved bool, currentMilliA int32) OverlayState {
	switch base {
	case connector.StateF:
		return Faulted
	case connector.StateA:
		if authorized {
			return Preparing
		}
		if reserved {
			return Reserved
		}
		return Available
	case connector.StateE:
		return Faulted
	case connector.StateB:
		if authorized {
			return Preparing
		}
		return SuspendedEVSE
	case connector.StateC, connector.StateD:
		if !authorized {
			return SuspendedEVSE
		}
		if currentMilliA >= 0 && currentMilliA < suspendedEVThresholdMilliA {
			return SuspendedEV
		}
		return Charging
	default:
		return Unavailable
	}
}
