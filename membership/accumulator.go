package membership

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/zkvote/zkvote/types"
	"github.com/zkvote/zkvote/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// ErrZeroCommitment is returned when trying to insert a zero commitment.
	ErrZeroCommitment = fmt.Errorf("commitment is zero")
	// ErrInvalidCommitment is returned when a commitment is not a canonical
	// field element.
	ErrInvalidCommitment = fmt.Errorf("commitment is not a field element")
	// ErrDuplicateCommitment is returned when the commitment is already a
	// leaf of the accumulator.
	ErrDuplicateCommitment = fmt.Errorf("commitment already registered")
	// ErrDepthExceeded is returned when an insert would grow the tree past
	// the maximum depth. The whole join fails.
	ErrDepthExceeded = fmt.Errorf("tree depth exceeded")
)

var (
	treePrefix    = []byte("t/")
	indexPrefix   = []byte("c/")
	historyPrefix = []byte("h/")
)

// leafKeyLen is the arbo key length for a tree of MaxTreeDepth levels.
const leafKeyLen = (types.MaxTreeDepth + 7) / 8

// Accumulator is an append-only incremental Merkle accumulator of member
// commitments. Leaves are keyed by insertion order; the poseidon hash keeps
// roots inside the bn254 scalar field so they can appear directly as proof
// public signals. Every successful insert publishes the new root into the
// attached RootHistory.
type Accumulator struct {
	mu      sync.Mutex
	db      db.Database
	tree    *arbo.Tree
	index   db.Database
	history *RootHistory
	size    uint64
}

// New creates or reopens an accumulator stored in the passed database.
func New(d db.Database) (*Accumulator, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(d, treePrefix),
		MaxLevels:    types.MaxTreeDepth,
		HashFunction: arbo.HashFunctionPoseidon,
	})
	if err != nil {
		return nil, err
	}
	nLeafs, err := tree.GetNLeafs()
	if err != nil {
		return nil, err
	}
	history, err := newRootHistory(prefixeddb.NewPrefixedDatabase(d, historyPrefix))
	if err != nil {
		return nil, err
	}
	return &Accumulator{
		db:      d,
		tree:    tree,
		index:   prefixeddb.NewPrefixedDatabase(d, indexPrefix),
		history: history,
		size:    uint64(nLeafs),
	}, nil
}

// Insert appends a member commitment and returns the new accumulator root.
// Duplicate and zero commitments are rejected, as is any insert that would
// grow the tree past MaxTreeDepth.
func (a *Accumulator) Insert(commitment *big.Int) (*big.Int, error) {
	wtx := a.db.WriteTx()
	defer wtx.Discard()
	newRoot, err := a.InsertTx(wtx, commitment)
	if err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return newRoot, nil
}

// InsertTx is Insert with the commitment index and root history writes
// staged into wtx, which must be scoped to the accumulator's key space and
// is committed by the caller. This lets the owner bundle the insert with
// its own bookkeeping in one transaction. Only the arbo leaf write commits
// on its own; the duplicate check reads the index, which commits last, so
// an aborted transaction leaves the commitment re-insertable.
func (a *Accumulator) InsertTx(wtx db.WriteTx, commitment *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if commitment == nil || commitment.Sign() == 0 {
		return nil, ErrZeroCommitment
	}
	if !util.InField(commitment) {
		return nil, ErrInvalidCommitment
	}
	if a.containsLocked(commitment) {
		return nil, ErrDuplicateCommitment
	}
	if treeDepth(a.size+1) > types.MaxTreeDepth {
		return nil, ErrDepthExceeded
	}

	leafKey := arbo.BigIntToBytes(leafKeyLen, new(big.Int).SetUint64(a.size))
	if err := a.tree.Add(leafKey, arbo.BigIntToBytes(32, commitment)); err != nil {
		return nil, fmt.Errorf("add leaf: %w", err)
	}

	var leafIndex [8]byte
	binary.BigEndian.PutUint64(leafIndex[:], a.size)
	indexTx := prefixeddb.NewPrefixedWriteTx(wtx, indexPrefix)
	if err := indexTx.Set(util.BigToBytes32(commitment), leafIndex[:]); err != nil {
		return nil, err
	}

	root, err := a.tree.Root()
	if err != nil {
		return nil, err
	}
	newRoot := arbo.BytesToBigInt(root)
	if err := a.history.push(prefixeddb.NewPrefixedWriteTx(wtx, historyPrefix), newRoot); err != nil {
		return nil, err
	}
	// size tracks the tree, which already holds the new leaf.
	a.size++
	return newRoot, nil
}

// Contains reports whether the commitment is a leaf of the accumulator.
func (a *Accumulator) Contains(commitment *big.Int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.containsLocked(commitment)
}

func (a *Accumulator) containsLocked(commitment *big.Int) bool {
	if commitment == nil || !util.InField(commitment) {
		return false
	}
	_, err := a.index.Get(util.BigToBytes32(commitment))
	return err == nil
}

// LeafIndex returns the insertion index of the commitment.
func (a *Accumulator) LeafIndex(commitment *big.Int) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, err := a.index.Get(util.BigToBytes32(commitment))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, ErrInvalidCommitment
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// Root returns the current accumulator root as a field element.
func (a *Accumulator) Root() (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	root, err := a.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Size returns the number of leaves.
func (a *Accumulator) Size() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// Depth returns the current effective depth of the accumulator.
func (a *Accumulator) Depth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return treeDepth(a.size)
}

// History returns the root history attached to this accumulator.
func (a *Accumulator) History() *RootHistory {
	return a.history
}

// treeDepth returns the depth of an incremental tree holding size leaves.
func treeDepth(size uint64) int {
	if size <= 1 {
		return 0
	}
	return bits.Len64(size - 1)
}
