// Package config loads the connector and safety parameters the charger
// is built from. An embedded default per board variant is decoded with
// tinyjson and fanned out as retained bus messages per top-level key —
// the same shape the teacher's services/config used for its embedded
// device configs — while the typed Config value below is decoded with
// encoding/json for direct, strongly-typed consumption by main/cmd
// wiring code.
package config

import (
	"encoding/json"

	"github.com/andreyvit/tinyjson"

	"github.com/pazzk-labs/evse-core/bus"
	"github.com/pazzk-labs/evse-core/errcode"
)

const topicPrefix = "config"

// ConnectorConfig is one connector's static parameters.
type ConnectorConfig struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	MaxCurrentA uint16 `json:"max_current_a"`
}

// SafetyConfig is the frequency-supervision tolerance.
type SafetyConfig struct {
	NominalHz   float64 `json:"nominal_hz"`
	ToleranceHz float64 `json:"tolerance_hz"`
}

// HeartbeatConfig is the tick-loop driver's default period.
type HeartbeatConfig struct {
	IntervalMs int `json:"interval_ms"`
}

// Config is the fully-typed configuration a charger is built from.
type Config struct {
	Connectors []ConnectorConfig `json:"connectors"`
	Safety     SafetyConfig      `json:"safety"`
	Heartbeat  HeartbeatConfig   `json:"heartbeat"`
}

// Load decodes the embedded config for board and returns it typed.
func Load(board string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return Config{}, errcode.Wrap(errcode.NotFound, "config.Load", "no embedded config for board: "+board, nil)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.Invalid, "config.Load", "decode", err)
	}
	return cfg, nil
}

// PublishRetained fans the embedded config for board out as one
// retained bus message per top-level key, parsing with tinyjson the
// way the teacher's config service did, so late-starting subscribers
// (the CLI, a bridge) can pick up current values without re-reading
// the file.
func PublishRetained(conn *bus.Connection, board string) error {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return errcode.Wrap(errcode.NotFound, "config.PublishRetained", "no embedded config for board: "+board, nil)
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errcode.Wrap(errcode.Invalid, "config.PublishRetained", "embedded config is not a JSON object", nil)
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(topicPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}
