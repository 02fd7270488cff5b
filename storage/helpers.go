package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding. The deterministic core options guarantee that
// re-encoding an unchanged artifact yields identical bytes.
var artifactEncMode, _ = cbor.CoreDetEncOptions().EncMode()

func encodeArtifact(a any) ([]byte, error) {
	data, err := artifactEncMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// u64Key returns the canonical 8-byte big-endian key for a numeric id, so
// iteration order matches id order.
func u64Key(id uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], id)
	return key[:]
}

// nextCounter increments the named counter inside the transaction and
// returns its previous value. Counters start at zero.
func nextCounter(wtx db.WriteTx, name []byte) (uint64, error) {
	tx := prefixeddb.NewPrefixedWriteTx(wtx, metaPrefix)
	var current uint64
	data, err := tx.Get(name)
	switch {
	case err == nil:
		current = binary.BigEndian.Uint64(data)
	case errors.Is(err, db.ErrKeyNotFound):
		current = 0
	default:
		return 0, err
	}
	if err := tx.Set(name, u64Key(current+1)); err != nil {
		return 0, err
	}
	return current, nil
}
