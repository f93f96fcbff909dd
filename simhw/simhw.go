// Package simhw is a host-only simulated pilot/metering hardware layer:
// implements pilot.PWM, pilot.Relay, pilot.CPReader and metering.Meter
// without touching any real pin or bus, so the CLI and tests can drive
// the charger core on a laptop the same way cmd/boardtest drove the
// HAL core against simulated/real Pico peripherals.
package simhw

import (
	"github.com/pazzk-labs/evse-core/pilot"
	"github.com/pazzk-labs/evse-core/types"
)

// PWM is a software pilot duty output. CP.Level (below) lets a test or
// the CLI impose what the EV "responds" with at the current duty.
type PWM struct {
	freqHz uint64
	top    uint16
	duty   uint16
}

func (p *PWM) Configure(freqHz uint64, top uint16) error {
	p.freqHz, p.top = freqHz, top
	return nil
}

func (p *PWM) SetDutyPermille(permille uint16) error {
	p.duty = permille
	return nil
}

func (p *PWM) DutyPermille() uint16 { return p.duty }

// Relay is a software contactor.
type Relay struct {
	closed bool
}

func (r *Relay) ConfigureOutput(initial bool) error { r.closed = initial; return nil }
func (r *Relay) Set(closed bool)                    { r.closed = closed }
func (r *Relay) Get() bool                          { return r.closed }

// CP is a software control-pilot line: whatever Level is set to is what
// ReadState() will resolve to next tick.
type CP struct {
	Level pilot.CPLevel
	Err   error
}

func (c *CP) ReadLevel() (pilot.CPLevel, error) { return c.Level, c.Err }

// Meter is a software metering chip: Sample returns whatever Next is
// set to, defaulting to a zero reading.
type Meter struct {
	Next types.MeterSample
}

func (m *Meter) Sample() (types.MeterSample, error) { return m.Next, nil }

// MemStore is an in-memory metering.Store, for tests and the CLI demo
// where nothing should touch disk.
type MemStore struct {
	totals types.EnergyTotals
}

func (s *MemStore) Load() (types.EnergyTotals, error) { return s.totals, nil }
func (s *MemStore) Save(t types.EnergyTotals) error    { s.totals = t; return nil }
