// Package pilot drives the IEC 61851-1 control pilot line: it turns a
// requested advertised current into a PWM duty cycle, reads back the CP
// voltage level the EV is presenting, and switches the contactor relay.
//
// The capability interfaces below are the same borrowed-handle shape the
// devices/pwm_out and devices/gpio_dout adaptors used for their PWM and
// GPIO handles — a Pilot never owns the pin or PWM channel, it only holds
// a reference handed to it at construction.
package pilot

import (
	"fmt"

	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/types"
	"github.com/pazzk-labs/evse-core/x/mathx"
)

// PWM is the duty-cycle output the control pilot line rides on.
type PWM interface {
	Configure(freqHz uint64, top uint16) error
	SetDutyPermille(permille uint16) error // 0..1000, 1000 == 100%
}

// Relay is the contactor driving line.
type Relay interface {
	ConfigureOutput(initial bool) error
	Set(closed bool)
	Get() bool
}

// CPLevel is the raw voltage bucket a pilot-sense ADC/comparator reports
// on the control-pilot line.
type CPLevel uint8

const (
	CPLevel12V  CPLevel = iota // state A: not connected
	CPLevel9V                  // state B: connected, not ready
	CPLevel6V                  // state C: ready, no ventilation
	CPLevel3V                  // state D: ready, ventilation required
	CPLevelNeg12V              // state F: EVSE fault / short
	CPLevelUnstable             // can't resolve a bucket (noise, disconnection mid-read)
)

// CPReader samples the control-pilot line voltage.
type CPReader interface {
	ReadLevel() (CPLevel, error)
}

// Pilot is the downward capability the connector FSM drives. It never
// decides EVSE policy — it only translates requests into pin/PWM writes
// and translates the CP reading into a PilotState.
type Pilot struct {
	pwm   PWM
	relay Relay
	cp    CPReader

	dutyPermille uint16
	contactor    bool
}

// New builds a Pilot over the given handles. pwm and cp are required;
// relay may be nil for a free-vend board with no software-controlled
// contactor (the relay is then assumed always closed when duty permits).
func New(pwm PWM, relay Relay, cp CPReader) (*Pilot, error) {
	if pwm == nil || cp == nil {
		return nil, errcode.Wrap(errcode.Invalid, "pilot.New", "pwm and cp reader are required", nil)
	}
	if err := pwm.Configure(1000, 1000); err != nil {
		return nil, errcode.Wrap(errcode.Io, "pilot.New", "configure pwm", err)
	}
	if relay != nil {
		if err := relay.ConfigureOutput(false); err != nil {
			return nil, errcode.Wrap(errcode.Io, "pilot.New", "configure relay", err)
		}
	}
	p := &Pilot{pwm: pwm, relay: relay, cp: cp}
	return p, p.setDutyPermille(1000) // state A default: advertise nothing, 100% duty
}

// DutyPermilleForCurrent implements the IEC 61851-1 duty table for
// 6-51 A: duty% = maxCurrentA * 10 / 6, clamped to the advertisable range.
// Values below 6 A saturate to the 6 A duty; values above 51 A saturate
// to the 51 A duty (85%, i.e. 850 permille).
func DutyPermilleForCurrent(maxCurrentA uint16) uint16 {
	a := mathx.Clamp(maxCurrentA, 6, 51)
	pct := (uint32(a)*10 + 3) / 6 // round(amps*10/6), a whole percent
	return uint16(pct) * 10
}

// SetAdvertisedCurrent moves the pilot to the duty cycle that advertises
// maxCurrentA of availability (states C/D). 0 means "advertise nothing,
// stay in state A" and is encoded as 100% duty per the IEC table.
func (p *Pilot) SetAdvertisedCurrent(maxCurrentA uint16) error {
	if maxCurrentA == 0 {
		return p.setDutyPermille(1000)
	}
	return p.setDutyPermille(DutyPermilleForCurrent(maxCurrentA))
}

// SetHighLevelCommRequest drives the 5% duty used to request the EV enter
// high-level-communication / state D handshake.
func (p *Pilot) SetHighLevelCommRequest() error { return p.setDutyPermille(50) }

// SetUnavailable drives 0% duty (state F): the EVSE is refusing service.
func (p *Pilot) SetUnavailable() error { return p.setDutyPermille(0) }

func (p *Pilot) setDutyPermille(permille uint16) error {
	if err := p.pwm.SetDutyPermille(permille); err != nil {
		return errcode.Wrap(errcode.Io, "pilot.setDutyPermille", fmt.Sprintf("permille=%d", permille), err)
	}
	p.dutyPermille = permille
	return nil
}

// DutyPermille reports the last commanded duty.
func (p *Pilot) DutyPermille() uint16 { return p.dutyPermille }

// SetContactor closes or opens the contactor relay. Callers (the
// connector FSM, under the safety supervisor's authority) are
// responsible for only closing it in states C/D.
func (p *Pilot) SetContactor(closed bool) error {
	if p.relay == nil {
		if closed {
			return errcode.Wrap(errcode.Unsupported, "pilot.SetContactor", "no software-controlled relay", nil)
		}
		return nil
	}
	p.relay.Set(closed)
	p.contactor = closed
	return nil
}

// ContactorClosed reports the last commanded contactor state.
func (p *Pilot) ContactorClosed() bool { return p.contactor }

// ReadState samples the CP line and maps it onto a PilotState.
func (p *Pilot) ReadState() (types.PilotState, error) {
	lvl, err := p.cp.ReadLevel()
	if err != nil {
		return types.PilotStateE, errcode.Wrap(errcode.Io, "pilot.ReadState", "read cp level", err)
	}
	switch lvl {
	case CPLevel12V:
		return types.PilotStateA, nil
	case CPLevel9V:
		return types.PilotStateB, nil
	case CPLevel6V:
		return types.PilotStateC, nil
	case CPLevel3V:
		return types.PilotStateD, nil
	case CPLevelNeg12V:
		return types.PilotStateF, nil
	default:
		return types.PilotStateE, nil
	}
}
