package persistence

import (
	"testing"

	"github.com/pazzk-labs/evse-core/types"
)

func TestEnergyStoreLoadMissingFileReturnsZero(t *testing.T) {
	s := NewEnergyStore(t.TempDir(), "connector-1")
	totals, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if totals != (types.EnergyTotals{}) {
		t.Fatalf("Load() of missing file = %+v, want zero value", totals)
	}
}

func TestEnergyStoreSaveThenLoadRoundTrips(t *testing.T) {
	s := NewEnergyStore(t.TempDir(), "connector-1")
	want := types.EnergyTotals{WattHours: 12345, ReactiveVarHours: 678}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestEnergyStoreSaveOverwrites(t *testing.T) {
	s := NewEnergyStore(t.TempDir(), "connector-1")
	s.Save(types.EnergyTotals{WattHours: 1})
	s.Save(types.EnergyTotals{WattHours: 2})
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.WattHours != 2 {
		t.Fatalf("WattHours = %d, want 2 (last write wins)", got.WattHours)
	}
}
