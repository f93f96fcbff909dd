package config

// Embedded default configuration, the same way the teacher's
// services/config kept board configs as raw JSON compiled into the
// binary rather than read from a filesystem that might not exist yet.
// Key: board variant. Val: raw JSON for that variant.

const defaultBoard = `{
  "connectors": [
    {"id": 1, "name": "connector-1", "max_current_a": 32}
  ],
  "safety": {
    "nominal_hz": 60.0,
    "tolerance_hz": 3.0
  },
  "heartbeat": {
    "interval_ms": 100
  }
}`

var embeddedConfigs = map[string][]byte{
	"default": []byte(defaultBoard),
}

// EmbeddedConfigLookup allows a host build to override how a board's
// default config is resolved (e.g. to read a file instead).
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}
