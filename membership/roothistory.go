package membership

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/zkvote/zkvote/types"
	"github.com/zkvote/zkvote/util"
	"go.vocdoni.io/dvote/db"
)

// nextSlotKey stores the next write position of the ring buffer.
var nextSlotKey = []byte("next")

// RootHistory is a fixed-capacity ring buffer holding the most recent
// accumulator roots. Proofs are generated against a possibly stale root, so
// the ledger accepts any root still retained here. Once RootHistorySize
// newer roots have been published, a root silently ages out and proofs
// bound to it become unverifiable.
//
// The buffer is persisted slot by slot so a restarted instance keeps
// accepting proofs bound to pre-restart roots. Reads are safe to call
// concurrently with inserts on the owning accumulator.
type RootHistory struct {
	mu    sync.RWMutex
	roots [types.RootHistorySize]*big.Int
	next  int
}

// newRootHistory loads (or initializes) a root history from the database.
func newRootHistory(d db.Database) (*RootHistory, error) {
	h := &RootHistory{}
	for i := range h.roots {
		data, err := d.Get(slotKey(i))
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		h.roots[i] = new(big.Int).SetBytes(data)
	}
	if data, err := d.Get(nextSlotKey); err == nil {
		h.next = int(binary.BigEndian.Uint64(data))
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}
	return h, nil
}

// push stages root into the next slot of wtx (scoped to the history's key
// space), overwriting the oldest entry once the buffer is full, and
// advances the write index modulo the capacity. The caller commits the
// transaction; the in-memory ring advances immediately, staying consistent
// with the accumulator tree the root came from.
func (h *RootHistory) push(wtx db.WriteTx, root *big.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	slot := h.next
	if err := wtx.Set(slotKey(slot), util.BigToBytes32(root)); err != nil {
		return err
	}
	var nextData [8]byte
	binary.BigEndian.PutUint64(nextData[:], uint64((slot+1)%types.RootHistorySize))
	if err := wtx.Set(nextSlotKey, nextData[:]); err != nil {
		return err
	}
	h.roots[slot] = new(big.Int).Set(root)
	h.next = (slot + 1) % types.RootHistorySize
	return nil
}

// IsKnownRoot reports whether root is still retained in the buffer. A zero
// root is always unknown. The scan starts at the most recently written slot
// and walks backward, since recent proofs are the common case.
func (h *RootHistory) IsKnownRoot(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for step := 1; step <= types.RootHistorySize; step++ {
		slot := (h.next - step + types.RootHistorySize) % types.RootHistorySize
		if h.roots[slot] == nil {
			continue
		}
		if h.roots[slot].Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// At returns a copy of the root stored at the given slot, or nil if the
// index is out of range or the slot has never been written. A zero root is
// also reported as nil, since lookups of zero are always invalid.
func (h *RootHistory) At(index int) *big.Int {
	if index < 0 || index >= types.RootHistorySize {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	r := h.roots[index]
	if r == nil || r.Sign() == 0 {
		return nil
	}
	return new(big.Int).Set(r)
}

// LatestIndex returns the slot of the most recently pushed root, or -1 if
// nothing has been pushed yet.
func (h *RootHistory) LatestIndex() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	slot := (h.next - 1 + types.RootHistorySize) % types.RootHistorySize
	if h.roots[slot] == nil {
		return -1
	}
	return slot
}

func slotKey(i int) []byte {
	return []byte{byte(i)}
}
