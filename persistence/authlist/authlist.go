// Package authlist is the local authorization list: an append-only log
// of fixed-width records, sharded two levels deep by the first two
// bytes of the presented id so no single file grows past what a
// constrained flash filesystem can rewrite cheaply. Updates are never
// applied in place — a new record with the same id supersedes the old
// one, and Compact reclaims space by keeping only the newest record per
// id, the tombstone+compaction idiom rather than zeroing bytes in place.
package authlist

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pazzk-labs/evse-core/errcode"
)

const (
	idLen     = 21
	recordLen = idLen + idLen + 8 + 1 + 3 // id | parent_id | expiry | status | pad
)

// Status is the authorization outcome recorded for an id.
type Status uint8

const (
	StatusAccepted Status = iota
	StatusBlocked
	StatusExpired
	StatusConcurrentTx
	StatusInvalid
)

// Record is one authorization-list entry.
type Record struct {
	ID         [idLen]byte
	ParentID   [idLen]byte
	ExpiryUnix int64
	Status     Status
}

func encode(r Record) [recordLen]byte {
	var buf [recordLen]byte
	copy(buf[0:idLen], r.ID[:])
	copy(buf[idLen:2*idLen], r.ParentID[:])
	binary.LittleEndian.PutUint64(buf[2*idLen:2*idLen+8], uint64(r.ExpiryUnix))
	buf[2*idLen+8] = byte(r.Status)
	return buf
}

func decode(buf []byte) Record {
	var r Record
	copy(r.ID[:], buf[0:idLen])
	copy(r.ParentID[:], buf[idLen:2*idLen])
	r.ExpiryUnix = int64(binary.LittleEndian.Uint64(buf[2*idLen : 2*idLen+8]))
	r.Status = Status(buf[2*idLen+8])
	return r
}

// List is the on-disk authorization log rooted at dir.
type List struct {
	dir       string
	namespace string
}

// New returns a List rooted at dir/localList/namespace.
func New(dir, namespace string) *List {
	return &List{dir: filepath.Join(dir, "localList"), namespace: namespace}
}

func (l *List) shardPath(id [idLen]byte) string {
	first := hex.EncodeToString(id[0:1])
	second := hex.EncodeToString(id[1:2])
	return filepath.Join(l.dir, l.namespace, first, second+".bin")
}

// Append adds rec to the end of its shard's log. A later Append with the
// same ID supersedes earlier ones for Lookup purposes.
func (l *List) Append(rec Record) error {
	path := l.shardPath(rec.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errcode.Wrap(errcode.Io, "authlist.Append", "mkdir", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errcode.Wrap(errcode.Io, "authlist.Append", "open", err)
	}
	defer f.Close()
	buf := encode(rec)
	if _, err := f.Write(buf[:]); err != nil {
		return errcode.Wrap(errcode.Io, "authlist.Append", "write", err)
	}
	return nil
}

// Lookup scans an id's shard back-to-front and returns the most recent
// record for that exact id.
func (l *List) Lookup(id [idLen]byte) (Record, error) {
	records, err := l.readShard(id)
	if err != nil {
		return Record{}, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ID == id {
			return records[i], nil
		}
	}
	return Record{}, errcode.Wrap(errcode.NotFound, "authlist.Lookup", "id not present", nil)
}

func (l *List) readShard(id [idLen]byte) ([]Record, error) {
	path := l.shardPath(id)
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errcode.Wrap(errcode.Io, "authlist.readShard", path, err)
	}
	n := len(buf) / recordLen
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, decode(buf[i*recordLen:(i+1)*recordLen]))
	}
	return out, nil
}

// Compact rewrites an id's shard keeping only the newest record per
// distinct id, preserving relative order among the survivors.
func (l *List) Compact(id [idLen]byte) error {
	records, err := l.readShard(id)
	if err != nil {
		return err
	}
	if records == nil {
		return nil
	}
	latest := make(map[[idLen]byte]int, len(records))
	for i, r := range records {
		latest[r.ID] = i
	}
	kept := make([]Record, 0, len(latest))
	for i, r := range records {
		if latest[r.ID] == i {
			kept = append(kept, r)
		}
	}

	path := l.shardPath(id)
	tmp := path + ".tmp"
	buf := make([]byte, 0, len(kept)*recordLen)
	for _, r := range kept {
		enc := encode(r)
		buf = append(buf, enc[:]...)
	}
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return errcode.Wrap(errcode.Io, "authlist.Compact", "write temp", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errcode.Wrap(errcode.Io, "authlist.Compact", "rename", err)
	}
	return nil
}
