// Package metering is the polymorphic energy-metering facade: it accepts
// any device kind behind the Meter interface (HLW8112, a simulator, or a
// future chip) and owns the accumulation + persistence-trigger policy
// that is the same regardless of which chip is underneath.
package metering

import (
	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/types"
)

// Meter is the capability a concrete metering chip driver implements.
// Sample must not block on anything slower than a bus transaction.
type Meter interface {
	Sample() (types.MeterSample, error)
}

// Store persists and restores the running energy totals. It is the
// target of the Instance's save-on-threshold policy, not a generic KV
// store — one Store per metering Instance.
type Store interface {
	Load() (types.EnergyTotals, error)
	Save(types.EnergyTotals) error
}

// Persistence trigger thresholds: whichever condition is met first
// triggers a save.
const (
	saveThresholdWh     uint64 = 1000 // 1 kWh
	saveThresholdMillis int64  = 5 * 60 * 1000
)

// Instance wraps a Meter with the accumulate/persist policy. Wh/varh are
// monotonically increasing runtime counters seeded from the last
// persisted totals.
type Instance struct {
	meter Meter
	store Store

	totals        types.EnergyTotals
	savedTotals   types.EnergyTotals
	lastSaveMs    int64
	lastSample    types.MeterSample
	haveSample    bool

	// sub-Wh energy carried between steps, in watt-milliseconds
	remWms   int64
	remVarms int64
}

// New builds an Instance, loading the last persisted totals from store
// so Wh/varh resume rather than reset on restart.
func New(meter Meter, store Store) (*Instance, error) {
	if meter == nil || store == nil {
		return nil, errcode.Wrap(errcode.Invalid, "metering.New", "meter and store are required", nil)
	}
	totals, err := store.Load()
	if err != nil {
		return nil, errcode.Wrap(errcode.Io, "metering.New", "load totals", err)
	}
	return &Instance{meter: meter, store: store, totals: totals, savedTotals: totals}, nil
}

// Totals returns the current runtime energy counters.
func (in *Instance) Totals() types.EnergyTotals { return in.totals }

// LastSample returns the most recent poll, if any.
func (in *Instance) LastSample() (types.MeterSample, bool) { return in.lastSample, in.haveSample }

// Step polls the meter, accumulates Wh/varh from the sample's
// instantaneous power since the prior step, and persists when either
// threshold is crossed. intervalMs is the elapsed time since the last
// Step call (0 on the first call, so the first sample never contributes
// spurious energy).
func (in *Instance) Step(nowMs int64, intervalMs int64) (saved bool, err error) {
	sample, err := in.meter.Sample()
	if err != nil {
		return false, errcode.Wrap(errcode.Io, "metering.Step", "sample", err)
	}

	first := !in.haveSample
	if in.haveSample && intervalMs > 0 {
		// power is in whole watts; wh added = W * hours elapsed, with the
		// sub-Wh remainder kept for the next step
		in.remWms += int64(sample.PowerW) * intervalMs
		in.remVarms += int64(sample.ReactivePowerVar) * intervalMs
		deltaWh := uint64(in.remWms / 3600000)
		deltaVarh := uint64(in.remVarms / 3600000)
		in.remWms %= 3600000
		in.remVarms %= 3600000
		in.totals.WattHours += deltaWh
		in.totals.ReactiveVarHours += deltaVarh
	}
	in.lastSample = sample
	in.haveSample = true

	if first {
		in.lastSaveMs = nowMs
	}

	deltaSinceSave := in.totals.WattHours - in.savedTotals.WattHours
	elapsedSinceSave := nowMs - in.lastSaveMs
	if deltaSinceSave >= saveThresholdWh || elapsedSinceSave >= saveThresholdMillis {
		if err := in.store.Save(in.totals); err != nil {
			return false, errcode.Wrap(errcode.Io, "metering.Step", "save totals", err)
		}
		in.savedTotals = in.totals
		in.lastSaveMs = nowMs
		return true, nil
	}
	return false, nil
}
