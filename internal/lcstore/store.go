// Package lcstore implements the linear combiner's persistent index: a
// bbolt-backed key-value store with a "main" bucket (authoritative
// did->id assignment and the signed trust matrix) and an "update" bucket
// (pending deltas not yet propagated to the compute engine).
//
// This generalizes the teacher's BoltDB storage idiom (see the storage
// design carried over from the pack's BoltDB-backed state store) to the
// two-column-family layout this system's spec calls for: RocksDB column
// families become bbolt buckets.
package lcstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when a requested key does not exist.
	ErrNotFound = errors.New("lcstore: not found")
)

var (
	bucketMain   = []byte("main")
	bucketUpdate = []byte("update")
	// bucketDidIndex is a derived index (peer_id -> did) kept alongside
	// "main" so GetDidMapping can iterate in ascending peer-ID order
	// without a full bucket scan. It is not part of the spec's documented
	// wire layout; see DESIGN.md for why it's safe to add.
	bucketDidIndex = []byte("didindex")

	keyCheckpoint = []byte("checkpoint")
)

// Form distinguishes the positive and negative trust-matrix halves.
type Form byte

const (
	FormNegative Form = 0
	FormPositive Form = 1
)

// Store wraps a single bbolt database file holding both column families.
type Store struct {
	db *bbolt.DB
	mu sync.Mutex // serializes checkpoint bumps across concurrent SyncTransformer calls
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("lcstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMain, bucketUpdate, bucketDidIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		main := tx.Bucket(bucketMain)
		if main.Get(keyCheckpoint) == nil {
			return main.Put(keyCheckpoint, encodeU32(0))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lcstore: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// MatrixKey composes the 12-byte big-endian key for a trust-matrix entry.
func MatrixKey(form Form, truster, trustee uint32) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint32(key[0:4], uint32(form))
	binary.BigEndian.PutUint32(key[4:8], truster)
	binary.BigEndian.PutUint32(key[8:12], trustee)
	return key
}

func decodeMatrixKey(key []byte) (form Form, truster, trustee uint32, ok bool) {
	if len(key) != 12 {
		return 0, 0, 0, false
	}
	return Form(binary.BigEndian.Uint32(key[0:4])),
		binary.BigEndian.Uint32(key[4:8]),
		binary.BigEndian.Uint32(key[8:12]),
		true
}

// assignOrGet looks up didKey in the main bucket, assigning the next
// checkpoint ID and bumping the counter if it is unseen. Must run inside
// an existing write transaction.
func assignOrGet(tx *bbolt.Tx, didKey []byte) (uint32, error) {
	main := tx.Bucket(bucketMain)
	if existing := main.Get(didKey); existing != nil {
		return decodeU32(existing), nil
	}
	checkpoint := decodeU32(main.Get(keyCheckpoint))
	id := checkpoint
	if err := main.Put(didKey, encodeU32(id)); err != nil {
		return 0, err
	}
	if err := main.Put(keyCheckpoint, encodeU32(checkpoint+1)); err != nil {
		return 0, err
	}
	didIndex := tx.Bucket(bucketDidIndex)
	if err := didIndex.Put(encodeU32(id), didKey); err != nil {
		return 0, err
	}
	return id, nil
}

// AssignOrGetPeerID resolves didKey to its stable peer ID, assigning one
// from the checkpoint counter on first sight.
func (s *Store) AssignOrGetPeerID(didKey []byte) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id uint32
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		id, err = assignOrGet(tx, didKey)
		return err
	})
	return id, err
}

// Checkpoint returns the next-to-assign peer ID.
func (s *Store) Checkpoint() (uint32, error) {
	var cp uint32
	err := s.db.View(func(tx *bbolt.Tx) error {
		cp = decodeU32(tx.Bucket(bucketMain).Get(keyCheckpoint))
		return nil
	})
	return cp, err
}

// Term is one record from a SyncTransformer stream.
type Term struct {
	FromDIDKey []byte
	ToDIDKey   []byte
	Form       Form
	Weight     uint32
	Timestamp  uint64
}

// encodeUpdateValue packs weight and the write-time timestamp together.
// The spec's wire layout only documents the weight for the update family;
// GetHistoricData's LtHistoryObject needs a timestamp to merge by, so the
// write-time timestamp rides alongside it here.
func encodeUpdateValue(weight uint32, ts uint64) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], weight)
	binary.BigEndian.PutUint64(b[4:12], ts)
	return b
}

func decodeUpdateValue(b []byte) (weight uint32, ts uint64) {
	return binary.BigEndian.Uint32(b[0:4]), binary.BigEndian.Uint64(b[4:12])
}

// ApplyTerm assigns peer IDs to both ends (if unseen), accumulates the new
// weight (saturating) into both the main and update column families, and
// returns the truster/trustee IDs and the resulting weight.
func (s *Store) ApplyTerm(t Term) (truster, trustee, newWeight uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		truster, err = assignOrGet(tx, t.FromDIDKey)
		if err != nil {
			return err
		}
		trustee, err = assignOrGet(tx, t.ToDIDKey)
		if err != nil {
			return err
		}
		key := MatrixKey(t.Form, truster, trustee)
		main := tx.Bucket(bucketMain)
		old := uint32(0)
		if v := main.Get(key); v != nil {
			old = decodeU32(v)
		}
		newWeight = saturatingAdd(old, t.Weight)
		if err := main.Put(key, encodeU32(newWeight)); err != nil {
			return err
		}
		return tx.Bucket(bucketUpdate).Put(key, encodeUpdateValue(newWeight, t.Timestamp))
	})
	return truster, trustee, newWeight, err
}

func saturatingAdd(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

// DidMapping is one (peer_id, did) pair as returned by GetDidMapping.
type DidMapping struct {
	ID     uint32
	DIDKey []byte
}

// DidMappings returns up to size mappings with id >= start, in ascending
// id order. Callers page by re-invoking with start = last.ID + 1.
func (s *Store) DidMappings(start, size uint32) ([]DidMapping, error) {
	var out []DidMapping
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDidIndex).Cursor()
		for k, v := c.Seek(encodeU32(start)); k != nil && uint32(len(out)) < size; k, v = c.Next() {
			out = append(out, DidMapping{ID: decodeU32(k), DIDKey: append([]byte(nil), v...)})
		}
		return nil
	})
	return out, err
}

// HistoricEntry is one pending update-log row.
type HistoricEntry struct {
	Truster, Trustee uint32
	Value            uint32
	Timestamp        uint64
	key              []byte // retained for Ack
}

// HistoricData returns pending update-log entries for form with
// truster in [x0,x1) and trustee in [y0,y1). Entries remain in the
// update family until Ack is called with the returned slice — callers
// must only Ack after the entries have been durably handed off
// (e.g. a GetHistoricData stream completed successfully).
func (s *Store) HistoricData(form Form, x0, y0, x1, y1 uint32) ([]HistoricEntry, error) {
	var out []HistoricEntry
	prefix := encodeU32(uint32(form))
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketUpdate).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			f, x, y, ok := decodeMatrixKey(k)
			if !ok || f != form {
				continue
			}
			if x < x0 || x >= x1 || y < y0 || y >= y1 {
				continue
			}
			weight, ts := decodeUpdateValue(v)
			out = append(out, HistoricEntry{
				Truster: x, Trustee: y, Value: weight, Timestamp: ts,
				key: append([]byte(nil), k...),
			})
		}
		return nil
	})
	return out, err
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

// Ack deletes the given entries from the update family, acknowledging
// that they have been durably propagated to the caller.
func (s *Store) Ack(entries []HistoricEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUpdate)
		for _, e := range entries {
			if err := b.Delete(e.key); err != nil {
				return err
			}
		}
		return nil
	})
}
