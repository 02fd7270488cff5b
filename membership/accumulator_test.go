package membership

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

// newDatabase returns a new in-memory test database.
func newDatabase(t *testing.T) db.Database {
	return metadb.NewTest(t)
}

func TestAccumulatorInsert(t *testing.T) {
	t.Parallel()
	acc, err := New(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, acc.Size(), qt.Equals, uint64(0))

	root1, err := acc.Insert(big.NewInt(101))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, root1.Sign(), qt.Not(qt.Equals), 0)
	qt.Assert(t, acc.Size(), qt.Equals, uint64(1))
	qt.Assert(t, acc.Contains(big.NewInt(101)), qt.IsTrue)
	qt.Assert(t, acc.Contains(big.NewInt(102)), qt.IsFalse)

	root2, err := acc.Insert(big.NewInt(102))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, root2.Cmp(root1), qt.Not(qt.Equals), 0)

	index, err := acc.LeafIndex(big.NewInt(102))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, index, qt.Equals, uint64(1))
}

func TestAccumulatorRejectsZeroCommitment(t *testing.T) {
	t.Parallel()
	acc, err := New(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)

	_, err = acc.Insert(big.NewInt(0))
	qt.Assert(t, err, qt.ErrorIs, ErrZeroCommitment)
	_, err = acc.Insert(nil)
	qt.Assert(t, err, qt.ErrorIs, ErrZeroCommitment)
	qt.Assert(t, acc.Size(), qt.Equals, uint64(0))
}

func TestAccumulatorRejectsNonFieldCommitment(t *testing.T) {
	t.Parallel()
	acc, err := New(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 260)
	_, err = acc.Insert(tooLarge)
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidCommitment)
}

func TestAccumulatorDuplicateJoinIsIdempotentRejecting(t *testing.T) {
	t.Parallel()
	acc, err := New(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)

	root, err := acc.Insert(big.NewInt(77))
	qt.Assert(t, err, qt.IsNil)

	// The second insert of the same commitment always fails, and the
	// failed attempt leaves the root untouched.
	_, err = acc.Insert(big.NewInt(77))
	qt.Assert(t, err, qt.ErrorIs, ErrDuplicateCommitment)

	rootAfter, err := acc.Root()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, rootAfter.Cmp(root), qt.Equals, 0)
	qt.Assert(t, acc.Size(), qt.Equals, uint64(1))
}

func TestAccumulatorDepth(t *testing.T) {
	t.Parallel()
	acc, err := New(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, acc.Depth(), qt.Equals, 0)
	for i := int64(1); i <= 5; i++ {
		_, err := acc.Insert(big.NewInt(i))
		qt.Assert(t, err, qt.IsNil)
	}
	// 5 leaves fit in a depth-3 incremental tree.
	qt.Assert(t, acc.Depth(), qt.Equals, 3)
}

func TestAccumulatorInsertTxRollback(t *testing.T) {
	t.Parallel()
	database := newDatabase(t)
	acc, err := New(database)
	qt.Assert(t, err, qt.IsNil)

	wtx := database.WriteTx()
	_, err = acc.InsertTx(wtx, big.NewInt(9001))
	qt.Assert(t, err, qt.IsNil)
	wtx.Discard()

	// An aborted transaction publishes nothing and leaves the commitment
	// re-insertable.
	qt.Assert(t, acc.Contains(big.NewInt(9001)), qt.IsFalse)

	reopened, err := New(database)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopened.Contains(big.NewInt(9001)), qt.IsFalse)
	qt.Assert(t, reopened.History().LatestIndex(), qt.Equals, -1)

	root, err := reopened.Insert(big.NewInt(9001))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopened.Contains(big.NewInt(9001)), qt.IsTrue)
	qt.Assert(t, reopened.History().IsKnownRoot(root), qt.IsTrue)
}

func TestAccumulatorReopen(t *testing.T) {
	t.Parallel()
	database := newDatabase(t)
	acc, err := New(database)
	qt.Assert(t, err, qt.IsNil)

	root, err := acc.Insert(big.NewInt(42))
	qt.Assert(t, err, qt.IsNil)

	// Reopening on the same database restores size, root and history.
	reopened, err := New(database)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopened.Size(), qt.Equals, uint64(1))
	qt.Assert(t, reopened.Contains(big.NewInt(42)), qt.IsTrue)
	reopenedRoot, err := reopened.Root()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopenedRoot.Cmp(root), qt.Equals, 0)
	qt.Assert(t, reopened.History().IsKnownRoot(root), qt.IsTrue)
}
