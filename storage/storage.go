// Package storage contains all the artifacts the voting engine persists. It
// is a thin prefixed key-value layer: every artifact type owns a prefix and
// is stored cbor-encoded (deterministic core encoding). The following
// prefixes are used:
//   - 'm/' for group members
//   - 'p/' for proposals
//   - 't/' for proposal tallies
//   - 'n/' for spent nullifiers
//   - 'e/' for emitted event records (append-only, consumed by an indexer)
//   - 'x/' for metadata (counters, the instance scope)
//
// Mutations that must be atomic (casting a vote, creating a proposal) are
// composite operations committed in a single write transaction.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	memberPrefix    = []byte("m/")
	proposalPrefix  = []byte("p/")
	tallyPrefix     = []byte("t/")
	nullifierPrefix = []byte("n/")
	eventPrefix     = []byte("e/")
	metaPrefix      = []byte("x/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = fmt.Errorf("artifact not found")

// Storage is the persistence layer of the voting engine.
type Storage struct {
	db db.Database
	mu sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	_ = s.db.Close()
}

// getArtifact retrieves and decodes an artifact stored under prefix/key.
// It returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	reader := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := reader.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// hasArtifact reports whether an artifact exists under prefix/key.
func (s *Storage) hasArtifact(prefix, key []byte) (bool, error) {
	reader := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := reader.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// setArtifact encodes and stores an artifact inside the given transaction.
func setArtifact(wtx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wtx, prefix).Set(key, data)
}

// listArtifacts iterates all raw artifacts under prefix in key order.
// Iteration stops early when visit returns false.
func (s *Storage) listArtifacts(prefix []byte, visit func(key, value []byte) bool) error {
	reader := prefixeddb.NewPrefixedReader(s.db, prefix)
	return reader.Iterate(nil, visit)
}

// SetMeta stores a raw metadata value under the meta prefix.
func (s *Storage) SetMeta(key, value []byte) error {
	wtx := s.db.WriteTx()
	defer wtx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wtx, metaPrefix).Set(key, value); err != nil {
		return err
	}
	return wtx.Commit()
}

// Meta retrieves a raw metadata value. Returns ErrNotFound if unset.
func (s *Storage) Meta(key []byte) ([]byte, error) {
	data, err := prefixeddb.NewPrefixedReader(s.db, metaPrefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
