// Package ledger implements the anonymous voting state machine. A Ledger
// composes a membership accumulator, a proposal store and a proof verifier
// by explicit ownership; callers only ever see the narrow operation surface
// (join, create, vote, execute) and each operation runs to completion
// atomically with respect to all shared state.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkvote/zkvote/membership"
	"github.com/zkvote/zkvote/storage"
	"github.com/zkvote/zkvote/types"
	"github.com/zkvote/zkvote/util"
	"github.com/zkvote/zkvote/zkproof"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
	"go.vocdoni.io/dvote/log"
)

var (
	accumulatorPrefix = []byte("acc/")
	scopeMetaKey      = []byte("scope")
)

// Config collects the dependencies and identity of a Ledger instance.
type Config struct {
	DB       db.Database
	Verifier zkproof.Verifier
	// ChainID and DeploymentAddress identify this deployment; together
	// with fresh entropy they derive the per-instance scope.
	ChainID           uint64
	DeploymentAddress common.Address
	// Entropy seeds the scope derivation. Leave nil for random entropy;
	// it only takes effect the first time the instance is initialized.
	Entropy []byte
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Ledger is the voting state machine. The mutex allows a single in-flight
// call per instance: the external proof-verification step can never be
// exploited to re-enter and double-count.
type Ledger struct {
	mu       sync.Mutex
	db       db.Database
	store    *storage.Storage
	members  *membership.Accumulator
	verifier zkproof.Verifier
	scope    *big.Int
	now      func() time.Time
}

// New creates or reopens a voting ledger on the given database. The scope
// is derived on first initialization and reloaded verbatim afterwards.
func New(cfg Config) (*Ledger, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("missing database")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("missing proof verifier")
	}
	store := storage.New(cfg.DB)
	members, err := membership.New(prefixeddb.NewPrefixedDatabase(cfg.DB, accumulatorPrefix))
	if err != nil {
		return nil, fmt.Errorf("open membership accumulator: %w", err)
	}

	var scope *big.Int
	scopeData, err := store.Meta(scopeMetaKey)
	switch {
	case err == nil:
		scope = new(big.Int).SetBytes(scopeData)
	case errors.Is(err, storage.ErrNotFound):
		scope, err = deriveScope(cfg.ChainID, cfg.DeploymentAddress, cfg.Entropy)
		if err != nil {
			return nil, err
		}
		if err := store.SetMeta(scopeMetaKey, util.BigToBytes32(scope)); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		db:       cfg.DB,
		store:    store,
		members:  members,
		verifier: cfg.Verifier,
		scope:    scope,
		now:      now,
	}
	log.Infow("voting ledger ready",
		"members", members.Size(),
		"depth", members.Depth(),
		"scope", scope.String())
	return l, nil
}

// Close releases the underlying storage.
func (l *Ledger) Close() {
	l.store.Close()
}

// Scope returns a copy of the immutable per-instance scope.
func (l *Ledger) Scope() *big.Int {
	return new(big.Int).Set(l.scope)
}

// Members returns the membership accumulator for read access (root, size,
// depth, membership tests, root history).
func (l *Ledger) Members() *membership.Accumulator {
	return l.members
}

// Events exposes the emitted event records for an off-path indexer.
func (l *Ledger) Events(fromSeq uint64, limit int) ([]*storage.Event, error) {
	return l.store.Events(fromSeq, limit)
}

// Join registers a new member: the commitment is appended to the
// accumulator and the address is bound to it, exactly once. Returns the new
// accumulator root. The commitment index, root history slot and member
// record all land in one transaction, so a failed join leaves the
// commitment and the address free to retry.
func (l *Ledger) Join(address common.Address, commitment *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	joined, err := l.store.HasMember(address)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, ErrMemberExists
	}
	leafIndex := l.members.Size()

	wtx := l.db.WriteTx()
	defer wtx.Discard()
	newRoot, err := l.members.InsertTx(prefixeddb.NewPrefixedWriteTx(wtx, accumulatorPrefix), commitment)
	if err != nil {
		return nil, err
	}
	member := &types.Member{
		Address:    address,
		Commitment: util.BigToBytes32(commitment),
		LeafIndex:  leafIndex,
	}
	if err := l.store.AddMember(wtx, member, newRoot); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	log.Infow("member added",
		"address", address.Hex(),
		"leafIndex", leafIndex,
		"newRoot", newRoot.String())
	return newRoot, nil
}

// Member returns the stored member record for an address.
func (l *Ledger) Member(address common.Address) (*types.Member, error) {
	member, err := l.store.Member(address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotMember
	}
	return member, err
}

// CreateProposal opens a new proposal with a bounded voting window,
// restricted to existing members. The window starts immediately.
func (l *Ledger) CreateProposal(proposer common.Address, title, description string,
	options []string, duration time.Duration,
) (*types.Proposal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	isMember, err := l.store.HasMember(proposer)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if len(options) < types.MinProposalOptions || len(options) > types.MaxProposalOptions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOptionCount, len(options))
	}
	if duration < types.MinVotingDuration {
		return nil, ErrDurationTooShort
	}
	if duration > types.MaxVotingDuration {
		return nil, ErrDurationTooLong
	}

	now := l.now()
	proposal := &types.Proposal{
		Title:       title,
		Description: description,
		Options:     options,
		StartTime:   now,
		EndTime:     now.Add(duration),
		Proposer:    proposer,
	}
	if err := l.store.CreateProposal(proposal); err != nil {
		return nil, err
	}
	log.Infow("proposal created",
		"id", proposal.ID,
		"title", title,
		"options", len(options),
		"endTime", proposal.EndTime)
	return proposal, nil
}

// Proposal returns the proposal header with its option list.
func (l *Ledger) Proposal(id uint64) (*types.Proposal, error) {
	proposal, err := l.store.Proposal(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProposalNotFound
	}
	return proposal, err
}

// Proposals returns all proposals in id order.
func (l *Ledger) Proposals() ([]*types.Proposal, error) {
	return l.store.ListProposals()
}

// ActiveProposals returns the ids of proposals currently accepting votes.
// The list is computed lazily from the stored proposals, never indexed.
func (l *Ledger) ActiveProposals() ([]uint64, error) {
	proposals, err := l.store.ListProposals()
	if err != nil {
		return nil, err
	}
	now := l.now()
	var active []uint64
	for _, p := range proposals {
		if p.Active(now) {
			active = append(active, p.ID)
		}
	}
	return active, nil
}

// Tally returns the current per-option vote counts of a proposal.
func (l *Ledger) Tally(id uint64) ([]uint64, error) {
	tally, err := l.store.Tally(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProposalNotFound
	}
	return tally, err
}

// Execute marks a proposal as executed. Allowed exactly once, only after
// the voting window has fully closed.
func (l *Ledger) Execute(id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	proposal, err := l.store.Proposal(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrProposalNotFound
		}
		return err
	}
	if proposal.Executed {
		return ErrAlreadyExecuted
	}
	if !l.now().After(proposal.EndTime) {
		return ErrVotingNotEnded
	}
	if err := l.store.MarkExecuted(id); err != nil {
		return err
	}
	log.Infow("proposal executed", "id", id, "totalVotes", proposal.TotalVotes)
	return nil
}

// Vote runs the full admission sequence for a ballot and, if every
// precondition holds, commits its effects atomically. Each step is a hard
// precondition; the first failure aborts the call with no partial effects.
func (l *Ledger) Vote(req *types.VoteRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 1. The proposal exists and the voting window is open.
	proposal, err := l.store.Proposal(req.ProposalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrProposalNotFound
		}
		return err
	}
	now := l.now()
	if now.Before(proposal.StartTime) {
		return ErrVotingNotStarted
	}
	if now.After(proposal.EndTime) {
		return ErrVotingEnded
	}
	// 2. The chosen option exists.
	if req.OptionIndex < 0 || req.OptionIndex >= len(proposal.Options) {
		return fmt.Errorf("%w: %d", ErrInvalidOptionIndex, req.OptionIndex)
	}
	// 3-7. Proof admission.
	if err := l.checkVoteLocked(req.Proof, req.RootIndex); err != nil {
		return err
	}

	if err := l.store.ApplyVote(req.ProposalID, req.OptionIndex, req.Proof.Nullifier.MathBigInt()); err != nil {
		return err
	}
	log.Infow("vote cast",
		"proposalId", req.ProposalID,
		"optionIndex", req.OptionIndex,
		"nullifier", req.Proof.Nullifier.String())
	return nil
}

// CheckVote runs the proof admission checks (nullifier unused, scope match,
// root retained, depth bounds, proof verification) without mutating any
// state. The sponsorship validator mirrors the vote's validation through
// this entry point.
func (l *Ledger) CheckVote(proof *types.GroupProof, rootIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkVoteLocked(proof, rootIndex)
}

func (l *Ledger) checkVoteLocked(proof *types.GroupProof, rootIndex int) error {
	if err := proof.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	// 3. The nullifier has never been spent.
	used, err := l.store.HasNullifier(proof.Nullifier.MathBigInt())
	if err != nil {
		return err
	}
	if used {
		return ErrNullifierAlreadyUsed
	}
	// 4. The proof is bound to this instance.
	if proof.Scope.MathBigInt().Cmp(l.scope) != 0 {
		return ErrScopeMismatch
	}
	// 5. The declared root is still retained at the claimed history index.
	root := l.members.History().At(rootIndex)
	if root == nil || root.Cmp(proof.MerkleTreeRoot.MathBigInt()) != 0 {
		return ErrUnknownRoot
	}
	// 6. The declared depth is within bounds, before the verifier runs.
	if proof.MerkleTreeDepth < types.MinTreeDepth || proof.MerkleTreeDepth > types.MaxTreeDepth {
		return fmt.Errorf("%w: %d", ErrInvalidTreeDepth, proof.MerkleTreeDepth)
	}
	// 7. The proof verifies against its public signals.
	if err := l.verifier.Verify(proof); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	return nil
}
