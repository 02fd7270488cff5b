package ledger

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/zkvote/zkvote/membership"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testProposer = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testVoter2   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testVoter3   = common.HexToAddress("0x1000000000000000000000000000000000000003")
)

// mockVerifier accepts or rejects every proof and counts invocations, so
// tests can assert the verifier is never reached when an earlier admission
// step fails.
type mockVerifier struct {
	calls int
	fail  bool
}

func (m *mockVerifier) Verify(_ *types.GroupProof) error {
	m.calls++
	if m.fail {
		return ErrProofVerificationFailed
	}
	return nil
}

// testClock is a manually advanced clock.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Now()}
}

func (c *testClock) Now() time.Time          { return c.current }
func (c *testClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLedger(t *testing.T, verifier *mockVerifier, clock *testClock) *Ledger {
	return newTestLedgerDB(t, metadb.NewTest(t), verifier, clock)
}

func newTestLedgerDB(t *testing.T, database db.Database, verifier *mockVerifier, clock *testClock) *Ledger {
	l, err := New(Config{
		DB:                database,
		Verifier:          verifier,
		ChainID:           1337,
		DeploymentAddress: common.HexToAddress("0xabcdef0000000000000000000000000000000000"),
		Entropy:           []byte("deterministic test entropy"),
		Now:               clock.Now,
	})
	qt.Assert(t, err, qt.IsNil)
	return l
}

// testProof builds a structurally complete proof bound to the given root,
// scope and nullifier. The mock verifier does not look at the points.
func testProof(scope, root *big.Int, depth int, nullifier int64) *types.GroupProof {
	var points [types.GroupProofPoints]*types.BigInt
	for i := range points {
		points[i] = types.NewBigInt(big.NewInt(int64(i + 1)))
	}
	return &types.GroupProof{
		MerkleTreeDepth: depth,
		MerkleTreeRoot:  types.NewBigInt(root),
		Nullifier:       types.NewBigInt(big.NewInt(nullifier)),
		Message:         types.NewBigInt(big.NewInt(0)),
		Scope:           types.NewBigInt(scope),
		Points:          points,
	}
}

func TestJoin(t *testing.T) {
	c := qt.New(t)
	l := newTestLedger(t, &mockVerifier{}, newTestClock())

	root, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)
	c.Assert(root.Sign(), qt.Not(qt.Equals), 0)
	c.Assert(l.Members().Contains(big.NewInt(101)), qt.IsTrue)

	member, err := l.Member(testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(member.LeafIndex, qt.Equals, uint64(0))

	// The same address cannot bind a second commitment.
	_, err = l.Join(testProposer, big.NewInt(102))
	c.Assert(err, qt.ErrorIs, ErrMemberExists)

	// The same commitment cannot be registered by another address.
	_, err = l.Join(testVoter2, big.NewInt(101))
	c.Assert(err, qt.ErrorIs, membership.ErrDuplicateCommitment)
}

func TestCreateProposalValidation(t *testing.T) {
	c := qt.New(t)
	l := newTestLedger(t, &mockVerifier{}, newTestClock())

	options := []string{"yes", "no"}
	_, err := l.CreateProposal(testProposer, "title", "desc", options, time.Hour)
	c.Assert(err, qt.ErrorIs, ErrNotMember)

	_, err = l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)

	_, err = l.CreateProposal(testProposer, "", "desc", options, time.Hour)
	c.Assert(err, qt.ErrorIs, ErrEmptyTitle)
	_, err = l.CreateProposal(testProposer, "title", "", options, time.Hour)
	c.Assert(err, qt.ErrorIs, ErrEmptyDescription)
	_, err = l.CreateProposal(testProposer, "title", "desc", []string{"only"}, time.Hour)
	c.Assert(err, qt.ErrorIs, ErrInvalidOptionCount)
	_, err = l.CreateProposal(testProposer, "title", "desc", make([]string, 11), time.Hour)
	c.Assert(err, qt.ErrorIs, ErrInvalidOptionCount)
	_, err = l.CreateProposal(testProposer, "title", "desc", options, time.Minute)
	c.Assert(err, qt.ErrorIs, ErrDurationTooShort)
	_, err = l.CreateProposal(testProposer, "title", "desc", options, 366*24*time.Hour)
	c.Assert(err, qt.ErrorIs, ErrDurationTooLong)

	proposal, err := l.CreateProposal(testProposer, "title", "desc", options, time.Hour)
	c.Assert(err, qt.IsNil)
	c.Assert(proposal.ID, qt.Equals, uint64(0))
	c.Assert(proposal.EndTime.Sub(proposal.StartTime), qt.Equals, time.Hour)
}

// TestVoteScenario is the end-to-end walk: three joins producing roots
// R1..R3, a 2-option 1-hour proposal, a valid vote bound to R2 at history
// index 1, then an identical resubmission that must fail on the nullifier
// with the tally untouched.
func TestVoteScenario(t *testing.T) {
	c := qt.New(t)
	verifier := &mockVerifier{}
	l := newTestLedger(t, verifier, newTestClock())

	_, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)
	root2, err := l.Join(testVoter2, big.NewInt(102))
	c.Assert(err, qt.IsNil)
	_, err = l.Join(testVoter3, big.NewInt(103))
	c.Assert(err, qt.IsNil)

	proposal, err := l.CreateProposal(testProposer, "title", "desc", []string{"yes", "no"}, time.Hour)
	c.Assert(err, qt.IsNil)

	const nullifier = 555001
	req := &types.VoteRequest{
		ProposalID:  proposal.ID,
		OptionIndex: 0,
		Proof:       testProof(l.Scope(), root2, 2, nullifier),
		RootIndex:   1,
	}
	c.Assert(l.Vote(req), qt.IsNil)
	c.Assert(verifier.calls, qt.Equals, 1)

	tally, err := l.Tally(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, []uint64{1, 0})

	// The identical call must fail on the spent nullifier, even for a
	// different option, and the tally must be unaffected.
	c.Assert(l.Vote(req), qt.ErrorIs, ErrNullifierAlreadyUsed)
	req2 := &types.VoteRequest{
		ProposalID:  proposal.ID,
		OptionIndex: 1,
		Proof:       testProof(l.Scope(), root2, 2, nullifier),
		RootIndex:   1,
	}
	c.Assert(l.Vote(req2), qt.ErrorIs, ErrNullifierAlreadyUsed)

	tally, err = l.Tally(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, []uint64{1, 0})

	stored, err := l.Proposal(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.TotalVotes, qt.Equals, uint64(1))
}

func TestVoteWindowEnforcement(t *testing.T) {
	c := qt.New(t)
	verifier := &mockVerifier{}
	clock := newTestClock()
	l := newTestLedger(t, verifier, clock)

	root, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)
	proposal, err := l.CreateProposal(testProposer, "title", "desc", []string{"yes", "no"}, time.Hour)
	c.Assert(err, qt.IsNil)

	req := &types.VoteRequest{
		ProposalID: proposal.ID,
		Proof:      testProof(l.Scope(), root, 1, 1),
		RootIndex:  0,
	}

	// Before the window opens.
	clock.Advance(-time.Minute)
	c.Assert(l.Vote(req), qt.ErrorIs, ErrVotingNotStarted)

	// After the window closes.
	clock.Advance(2 * time.Hour)
	c.Assert(l.Vote(req), qt.ErrorIs, ErrVotingEnded)

	// The window checks run before any proof processing.
	c.Assert(verifier.calls, qt.Equals, 0)
	tally, err := l.Tally(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, []uint64{0, 0})
}

func TestVoteAdmissionChecks(t *testing.T) {
	c := qt.New(t)
	verifier := &mockVerifier{}
	l := newTestLedger(t, verifier, newTestClock())

	root, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)
	proposal, err := l.CreateProposal(testProposer, "title", "desc", []string{"yes", "no"}, time.Hour)
	c.Assert(err, qt.IsNil)

	vote := func(req *types.VoteRequest) error { return l.Vote(req) }

	// Unknown proposal.
	c.Assert(vote(&types.VoteRequest{ProposalID: 99, Proof: testProof(l.Scope(), root, 1, 1)}),
		qt.ErrorIs, ErrProposalNotFound)

	// Option index out of range.
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID, OptionIndex: 2,
		Proof: testProof(l.Scope(), root, 1, 1)}), qt.ErrorIs, ErrInvalidOptionIndex)
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID, OptionIndex: -1,
		Proof: testProof(l.Scope(), root, 1, 1)}), qt.ErrorIs, ErrInvalidOptionIndex)

	// Scope from another instance.
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(big.NewInt(424242), root, 1, 1)}), qt.ErrorIs, ErrScopeMismatch)

	// Root not at the claimed history index, and an unwritten slot.
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), big.NewInt(12345), 1, 1), RootIndex: 0}),
		qt.ErrorIs, ErrUnknownRoot)
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), root, 1, 1), RootIndex: 7}),
		qt.ErrorIs, ErrUnknownRoot)

	// Depth bounds are enforced before the verifier ever runs.
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), root, 0, 1)}), qt.ErrorIs, ErrInvalidTreeDepth)
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), root, 33, 1)}), qt.ErrorIs, ErrInvalidTreeDepth)
	c.Assert(verifier.calls, qt.Equals, 0)

	// A failing proof leaves the nullifier unspent.
	verifier.fail = true
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), root, 1, 1)}), qt.ErrorIs, ErrProofVerificationFailed)
	verifier.fail = false
	c.Assert(vote(&types.VoteRequest{ProposalID: proposal.ID,
		Proof: testProof(l.Scope(), root, 1, 1)}), qt.IsNil)
}

func TestExecute(t *testing.T) {
	c := qt.New(t)
	clock := newTestClock()
	l := newTestLedger(t, &mockVerifier{}, clock)

	_, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)
	proposal, err := l.CreateProposal(testProposer, "title", "desc", []string{"yes", "no"}, time.Hour)
	c.Assert(err, qt.IsNil)

	c.Assert(l.Execute(99), qt.ErrorIs, ErrProposalNotFound)
	c.Assert(l.Execute(proposal.ID), qt.ErrorIs, ErrVotingNotEnded)

	clock.Advance(time.Hour + time.Second)
	c.Assert(l.Execute(proposal.ID), qt.IsNil)
	c.Assert(l.Execute(proposal.ID), qt.ErrorIs, ErrAlreadyExecuted)
}

func TestActiveProposals(t *testing.T) {
	c := qt.New(t)
	clock := newTestClock()
	l := newTestLedger(t, &mockVerifier{}, clock)

	_, err := l.Join(testProposer, big.NewInt(101))
	c.Assert(err, qt.IsNil)

	first, err := l.CreateProposal(testProposer, "short", "desc", []string{"a", "b"}, time.Hour)
	c.Assert(err, qt.IsNil)
	second, err := l.CreateProposal(testProposer, "long", "desc", []string{"a", "b"}, 3*time.Hour)
	c.Assert(err, qt.IsNil)

	active, err := l.ActiveProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(active, qt.DeepEquals, []uint64{first.ID, second.ID})

	clock.Advance(2 * time.Hour)
	active, err = l.ActiveProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(active, qt.DeepEquals, []uint64{second.ID})
}

func TestScopeIsImmutableAcrossReopen(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	clock := newTestClock()

	first := newTestLedgerDB(t, database, &mockVerifier{}, clock)
	scope := first.Scope()
	c.Assert(scope.Sign(), qt.Not(qt.Equals), 0)

	// A reopened instance reloads the persisted scope verbatim, even with
	// different entropy on offer.
	second, err := New(Config{
		DB:                database,
		Verifier:          &mockVerifier{},
		ChainID:           1337,
		DeploymentAddress: common.HexToAddress("0xabcdef0000000000000000000000000000000000"),
		Entropy:           []byte("different entropy"),
		Now:               clock.Now,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(second.Scope().Cmp(scope), qt.Equals, 0)
}
