package connector

import (
	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/metering"
	"github.com/pazzk-labs/evse-core/pilot"
	"github.com/pazzk-labs/evse-core/safety"
	"github.com/pazzk-labs/evse-core/types"
)

// Params are the per-connector configuration values, set once at attach
// time (or from config.Load) and otherwise read-only from the FSM's
// perspective.
type Params struct {
	ID              uint32
	Name            string
	MaxCurrentA     uint16
	SafetyEntryName string // which supervisor entry, if any, gates this connector
}

// Connector owns one physical charging point: a Pilot capability, an
// optional per-connector safety view, and a metering instance. It
// implements the enable/disable/process contract the charger aggregate
// (and the session overlay, which wraps a Connector) both drive.
type Connector struct {
	params Params

	pilot    *pilot.Pilot
	safety   *safety.Supervisor
	metering *metering.Instance

	state          State
	enabled        bool
	lastTick       int64
	stateEnteredMs int64
	fault          ConnectorError
}

// New builds a Connector. safetySup and meter may be nil if this
// connector has no per-connector safety entries or metering (charger-
// level instances still gate/account for it).
func New(params Params, p *pilot.Pilot, safetySup *safety.Supervisor, meter *metering.Instance) (*Connector, error) {
	if p == nil {
		return nil, errcode.Wrap(errcode.Invalid, "connector.New", "pilot is required", nil)
	}
	if params.MaxCurrentA == 0 {
		params.MaxCurrentA = 6
	}
	return &Connector{params: params, pilot: p, safety: safetySup, metering: meter, state: StateA}, nil
}

func (c *Connector) ID() uint32     { return c.params.ID }
func (c *Connector) Name() string   { return c.params.Name }
func (c *Connector) State() State   { return c.state }
func (c *Connector) Enabled() bool  { return c.enabled }
func (c *Connector) Params() Params { return c.params }

// Error reports why the connector is currently in StateF, or ErrorNone
// if it isn't faulted.
func (c *Connector) Error() ConnectorError { return c.fault }

// Available reports whether the connector is idle and could accept a
// new plug-in (used by the charger aggregate's GetAvailable).
func (c *Connector) Available() bool { return c.enabled && c.state == StateA }

// Metering exposes the connector's metering instance, if any, so an
// overlay (the session-governed FSM) can read totals/samples without
// this package needing to know about sessions.
func (c *Connector) Metering() *metering.Instance { return c.metering }

// SetMaxCurrentA changes the advertised current ceiling applied on the
// next Process call. A session overlay uses this to throttle a
// connector to 0 while unauthorized without touching the pilot state
// machine itself.
func (c *Connector) SetMaxCurrentA(a uint16) { c.params.MaxCurrentA = a }

// Enable arms the connector for Process. It does not itself change the
// pilot state — the next Process call reads the CP line and transitions
// normally.
func (c *Connector) Enable() error {
	c.enabled = true
	return nil
}

// Disable forces the contactor open and the pilot to Unavailable,
// regardless of what the CP line currently reads.
func (c *Connector) Disable() error {
	c.enabled = false
	if err := c.pilot.SetContactor(false); err != nil {
		return err
	}
	if err := c.pilot.SetUnavailable(); err != nil {
		return err
	}
	c.state = StateF
	return nil
}

// Process runs one tick: read the CP line, check safety, transition,
// and apply the resulting side effects. It returns the events raised by
// this tick (zero or more bits set).
func (c *Connector) Process(nowMs int64) (types.ConnectorEvent, error) {
	if !c.enabled {
		return 0, nil
	}

	cp, err := c.pilot.ReadState()
	if err != nil {
		return 0, errcode.Wrap(errcode.Io, "connector.Process", "read pilot state", err)
	}

	status := safety.StatusOK
	if c.safety != nil {
		_, status = c.safety.Check(nowMs)
	}

	prevTick := c.lastTick
	elapsed := nowMs - c.stateEnteredMs
	next, eff, events, faultKind := Transition(c.state, cp, c.params.MaxCurrentA, status, elapsed)
	if next != c.state {
		c.stateEnteredMs = nowMs
	}
	if events.Has(types.EventError) {
		c.fault = faultKind
	}
	if events.Has(types.EventErrorRecovery) {
		c.fault = ErrorNone
	}
	c.state = next
	c.lastTick = nowMs

	if err := c.pilot.SetContactor(eff.ContactorClosed); err != nil {
		return events, errcode.Wrap(errcode.Io, "connector.Process", "set contactor", err)
	}
	if eff.AdvertiseCurrentA > 0 {
		if err := c.pilot.SetAdvertisedCurrent(eff.AdvertiseCurrentA); err != nil {
			return events, errcode.Wrap(errcode.Io, "connector.Process", "advertise current", err)
		}
	} else if next == StateF {
		if err := c.pilot.SetUnavailable(); err != nil {
			return events, errcode.Wrap(errcode.Io, "connector.Process", "set unavailable", err)
		}
	}

	if c.metering != nil {
		interval := int64(0)
		if prevTick != 0 {
			interval = nowMs - prevTick
		}
		if _, err := c.metering.Step(nowMs, interval); err != nil {
			return events, errcode.Wrap(errcode.Io, "connector.Process", "metering step", err)
		}
	}

	return events, nil
}
