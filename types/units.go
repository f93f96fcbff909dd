package types

// Engineering-unit value types shared by the pilot and metering capabilities.
// Integer, fixed-scale fields avoid floating point on the hot tick path —
// the same convention the battery/charger value types used it for.

// PilotState is one of the IEC 61851-1 control-pilot states.
type PilotState uint8

const (
	PilotStateA PilotState = iota // not connected
	PilotStateB                   // connected, not ready
	PilotStateC                   // ready, no ventilation required
	PilotStateD                   // ready, ventilation required
	PilotStateE                   // EV-side error, or an unresolvable CP reading
	PilotStateF                   // EVSE-side fault / unavailable
)

func (s PilotState) String() string {
	switch s {
	case PilotStateA:
		return "A"
	case PilotStateB:
		return "B"
	case PilotStateC:
		return "C"
	case PilotStateD:
		return "D"
	case PilotStateE:
		return "E"
	case PilotStateF:
		return "F"
	default:
		return "?"
	}
}

// MeterSample is a single poll of the metering capability, in the same
// mV/mA/cHz suffix convention as BatteryValue/ChargerValue.
type MeterSample struct {
	VoltageMilliV    int32  `json:"voltage_mV"`
	CurrentMilliA    int32  `json:"current_mA"`
	FrequencyCentiHz int32  `json:"frequency_cHz"`
	TempCentiC       int32  `json:"temp_cC"`
	PowerW           int32  `json:"power_W"`
	ReactivePowerVar int32  `json:"reactive_power_var"`
	EnergyWh         uint64 `json:"energy_Wh"`
	EnergyVarh       uint64 `json:"energy_varh"`
}

// EnergyTotals is the persisted KV pair for a single metering instance.
type EnergyTotals struct {
	WattHours       uint64 `json:"wh"`
	ReactiveVarHours uint64 `json:"varh"`
}
