package hlw8112

import (
	"errors"

	"tinygo.org/x/drivers"

	"github.com/pazzk-labs/evse-core/types"
)

var (
	ErrVoltageGainUnset = errors.New("hlw8112: VoltageGainMicroV must be set")
	ErrCurrentGainUnset = errors.New("hlw8112: CurrentGainMicroA must be set")
)

// Config is the driver's calibration/wiring configuration. Integer-only,
// same convention as drivers/ltc4015.Config.
type Config struct {
	Address          uint16
	VoltageGainMicroV uint32 // µV per RMSU LSB
	CurrentGainMicroA uint32 // µA per RMSIA LSB
}

// DefaultConfig returns an address-only default; gains must still be set
// from the board's resistor-divider/shunt calibration.
func DefaultConfig() Config { return Config{Address: AddressDefault} }

func (c Config) Validate() error {
	if c.Address == 0 {
		return errors.New("hlw8112: Address must be non-zero")
	}
	if c.VoltageGainMicroV == 0 {
		return ErrVoltageGainUnset
	}
	if c.CurrentGainMicroA == 0 {
		return ErrCurrentGainUnset
	}
	return nil
}

// Device represents an HLW8112 instance on an I²C bus.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	voltageGainMicroV uint32
	currentGainMicroA uint32

	// Fixed buffers to avoid per-call heap allocations on the sample path.
	w [1]byte
	r [2]byte
}

// New constructs a Device. Callers normally keep it behind the
// metering.Meter interface rather than holding *Device directly.
func New(i2c drivers.I2C, cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Device{
		i2c:               i2c,
		addr:              cfg.Address,
		voltageGainMicroV: cfg.VoltageGainMicroV,
		currentGainMicroA: cfg.CurrentGainMicroA,
	}, nil
}

// Sample implements metering.Meter.
func (d *Device) Sample() (types.MeterSample, error) {
	rmsU, err := d.readWord(regRMSU)
	if err != nil {
		return types.MeterSample{}, err
	}
	rmsI, err := d.readWord(regRMSIA)
	if err != nil {
		return types.MeterSample{}, err
	}
	pA, err := d.readS16(regPowerPA)
	if err != nil {
		return types.MeterSample{}, err
	}
	qA, err := d.readS16(regPowerQA)
	if err != nil {
		return types.MeterSample{}, err
	}
	freq, err := d.readWord(regFreq)
	if err != nil {
		return types.MeterSample{}, err
	}
	temp, err := d.readS16(regTemp)
	if err != nil {
		return types.MeterSample{}, err
	}

	voltageMilliV := int32((uint64(rmsU) * uint64(d.voltageGainMicroV)) / 1000)
	currentMilliA := int32((uint64(rmsI) * uint64(d.currentGainMicroA)) / 1000)

	return types.MeterSample{
		VoltageMilliV:    voltageMilliV,
		CurrentMilliA:    currentMilliA,
		FrequencyCentiHz: int32(freq) * cHzPerLSB,
		TempCentiC:       int32(temp),
		PowerW:           int32(pA),
		ReactivePowerVar: int32(qA),
	}, nil
}

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) readS16(reg byte) (int16, error) {
	u, err := d.readWord(reg)
	return int16(u), err
}
