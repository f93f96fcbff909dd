package session

import "github.com/pazzk-labs/evse-core/errcode"

// Measurand is one OCPP-style reportable quantity. The distilled core
// spec only named energy; the measurand enumeration itself comes from
// the original firmware's ocpp handler, which reports a configurable
// set per meter-values message rather than energy alone.
type Measurand string

const (
	MeasurandEnergyActiveImportRegister Measurand = "Energy.Active.Import.Register"
	MeasurandPowerActive                Measurand = "Power.Active.Import"
	MeasurandCurrentImport              Measurand = "Current.Import"
	MeasurandVoltage                    Measurand = "Voltage"
	MeasurandFrequency                  Measurand = "Frequency"
	MeasurandPowerFactor                Measurand = "Power.Factor"
)

// MeasurandSet is the configured subset of measurands a session reports.
type MeasurandSet map[Measurand]bool

// DefaultMeasurandSet matches the original firmware's default
// meter-values configuration.
func DefaultMeasurandSet() MeasurandSet {
	return MeasurandSet{
		MeasurandEnergyActiveImportRegister: true,
		MeasurandPowerActive:                true,
		MeasurandCurrentImport:              true,
		MeasurandVoltage:                    true,
	}
}

// SampledValue is one measurand's reading in a snapshot.
type SampledValue struct {
	Measurand Measurand `json:"measurand"`
	Value     int64     `json:"value"`
	Unit      string    `json:"unit"`
}

// Snapshot produces the set of sampled values configured in set for the
// session's current metering sample. Callers use this for clock-aligned
// or transaction-sampled meter-values reporting upward. PowerFactor is
// never reported, even when present in set: MeterSample carries no
// power-factor reading.
func (s *Session) Snapshot(set MeasurandSet) ([]SampledValue, error) {
	m := s.base.Metering()
	if m == nil {
		return nil, errcode.Wrap(errcode.Unsupported, "session.Snapshot", "connector has no metering instance", nil)
	}
	sample, ok := m.LastSample()
	if !ok {
		return nil, errcode.Wrap(errcode.NotFound, "session.Snapshot", "no metering sample yet", nil)
	}
	totals := m.Totals()

	var out []SampledValue
	add := func(meas Measurand, v int64, unit string) {
		if set[meas] {
			out = append(out, SampledValue{Measurand: meas, Value: v, Unit: unit})
		}
	}
	add(MeasurandEnergyActiveImportRegister, int64(totals.WattHours), "Wh")
	add(MeasurandPowerActive, int64(sample.PowerW), "W")
	add(MeasurandCurrentImport, int64(sample.CurrentMilliA), "mA")
	add(MeasurandVoltage, int64(sample.VoltageMilliV), "mV")
	add(MeasurandFrequency, int64(sample.FrequencyCentiHz), "cHz")
	return out, nil
}
