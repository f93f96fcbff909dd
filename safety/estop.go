package safety

// ButtonSource is the borrowed digital-input handle an emergency-stop
// button is wired to — same shape as the gpio_button adaptor's debounced
// edge source, collapsed here to a plain level read. No debounce is
// applied: the entry latches on the first pressed read.
type ButtonSource interface {
	Pressed() bool
}

// EmergencyStopEntry trips the instant its button reads pressed and
// latches StatusEmergencyStop until Reset is called — an e-stop is not
// something the tick loop should auto-clear just because the button
// bounced back up.
type EmergencyStopEntry struct {
	name   string
	src    ButtonSource
	latched bool
}

// NewEmergencyStopEntry builds an entry named name over src.
func NewEmergencyStopEntry(name string, src ButtonSource) *EmergencyStopEntry {
	return &EmergencyStopEntry{name: name, src: src}
}

func (e *EmergencyStopEntry) Name() string { return e.name }

func (e *EmergencyStopEntry) Check(nowMs int64) Status {
	if e.src.Pressed() {
		e.latched = true
	}
	if e.latched {
		return StatusEmergencyStop
	}
	return StatusOK
}

// Latched reports whether the entry is currently tripped.
func (e *EmergencyStopEntry) Latched() bool { return e.latched }

// Reset clears the latch. Typically gated behind an operator action,
// never called automatically from the tick loop.
func (e *EmergencyStopEntry) Reset() { e.latched = false }
