// Package persistence is the on-disk backing store for metering
// totals and the local authorization list (see persistence/authlist).
// There is no database or KV library in the retrieved pack suited to a
// single fixed-size record — see DESIGN.md — so this is a small,
// dependency-free file store using atomic rename-on-write, the same
// corruption-avoidance idiom the teacher's flash/NVS ports reach for on
// embedded targets.
package persistence

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pazzk-labs/evse-core/errcode"
	"github.com/pazzk-labs/evse-core/types"
)

// EnergyStore persists one metering.Instance's running totals as a
// single 16-byte KV record (wh uint64, varh uint64) at path.
type EnergyStore struct {
	path string
}

// NewEnergyStore returns a store backed by a file under dir named
// "<namespace>.energy.bin".
func NewEnergyStore(dir, namespace string) *EnergyStore {
	return &EnergyStore{path: filepath.Join(dir, namespace+".energy.bin")}
}

// Load reads the persisted totals, returning a zero value (not an
// error) if the file has never been written.
func (s *EnergyStore) Load() (types.EnergyTotals, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.EnergyTotals{}, nil
		}
		return types.EnergyTotals{}, errcode.Wrap(errcode.Io, "persistence.EnergyStore.Load", s.path, err)
	}
	if len(buf) < 16 {
		return types.EnergyTotals{}, errcode.Wrap(errcode.Invalid, "persistence.EnergyStore.Load", "short record", nil)
	}
	return types.EnergyTotals{
		WattHours:        binary.LittleEndian.Uint64(buf[0:8]),
		ReactiveVarHours: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// Save writes totals atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// leaves a torn record (idempotent to retry, P6).
func (s *EnergyStore) Save(totals types.EnergyTotals) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errcode.Wrap(errcode.Io, "persistence.EnergyStore.Save", "mkdir", err)
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], totals.WattHours)
	binary.LittleEndian.PutUint64(buf[8:16], totals.ReactiveVarHours)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf[:], 0o644); err != nil {
		return errcode.Wrap(errcode.Io, "persistence.EnergyStore.Save", "write temp", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errcode.Wrap(errcode.Io, "persistence.EnergyStore.Save", "rename", err)
	}
	return nil
}
