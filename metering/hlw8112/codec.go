package hlw8112

// cHzPerLSB is the line-frequency register's LSB weight: 0.01 Hz/LSB,
// i.e. the raw register value already is centi-Hz.
const cHzPerLSB = 1

// energyLSBToWh converts a raw accumulator delta (device energy LSBs)
// into whole watt-hours given the device's configured energy constant
// (LSBs per Wh).
func energyLSBToWh(deltaLSB uint32, lsbPerWh uint32) uint64 {
	if lsbPerWh == 0 {
		return 0
	}
	return uint64(deltaLSB) / uint64(lsbPerWh)
}
