package authlist

import "testing"

func idOf(b byte) [idLen]byte {
	var id [idLen]byte
	id[0] = b
	return id
}

func TestLookupMissingID(t *testing.T) {
	l := New(t.TempDir(), "ns")
	if _, err := l.Lookup(idOf(0x01)); err == nil {
		t.Fatal("expected error looking up an id that was never appended")
	}
}

func TestAppendThenLookupReturnsLatest(t *testing.T) {
	l := New(t.TempDir(), "ns")
	id := idOf(0xAB)

	if err := l.Append(Record{ID: id, ExpiryUnix: 100, Status: StatusAccepted}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(Record{ID: id, ExpiryUnix: 200, Status: StatusExpired}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec, err := l.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Status != StatusExpired || rec.ExpiryUnix != 200 {
		t.Fatalf("Lookup() = %+v, want the most recently appended record", rec)
	}
}

func TestShardingSeparatesDifferentFirstBytes(t *testing.T) {
	l := New(t.TempDir(), "ns")
	idA := idOf(0x01)
	idB := idOf(0x02)

	l.Append(Record{ID: idA, Status: StatusAccepted})
	if _, err := l.Lookup(idB); err == nil {
		t.Fatal("expected idB to be absent from idA's shard")
	}
}

func TestCompactKeepsOnlyLatestPerID(t *testing.T) {
	l := New(t.TempDir(), "ns")
	id := idOf(0x11)

	l.Append(Record{ID: id, ExpiryUnix: 1, Status: StatusAccepted})
	l.Append(Record{ID: id, ExpiryUnix: 2, Status: StatusBlocked})
	l.Append(Record{ID: id, ExpiryUnix: 3, Status: StatusExpired})

	if err := l.Compact(id); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	records, err := l.readShard(id)
	if err != nil {
		t.Fatalf("readShard: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("shard has %d records after Compact, want 1", len(records))
	}
	if records[0].Status != StatusExpired {
		t.Fatalf("surviving record status = %v, want Expired (latest)", records[0].Status)
	}

	rec, err := l.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup after Compact: %v", err)
	}
	if rec.ExpiryUnix != 3 {
		t.Fatalf("Lookup after Compact = %+v, want ExpiryUnix=3", rec)
	}
}
