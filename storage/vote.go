package storage

import (
	"fmt"
	"math/big"

	"github.com/zkvote/zkvote/util"
)

// HasNullifier reports whether the nullifier has already been spent.
func (s *Storage) HasNullifier(nullifier *big.Int) (bool, error) {
	return s.hasArtifact(nullifierPrefix, util.BigToBytes32(nullifier))
}

// ApplyVote commits the effects of an admitted vote in a single
// transaction: the nullifier is marked spent, the chosen option's tally and
// the proposal's total are incremented, and the vote-cast event is
// appended. No identity is recorded anywhere.
//
// The admission checks have already passed; this only guards against the
// impossible (missing tally, out-of-range option) to keep the store
// consistent under programming errors.
func (s *Storage) ApplyVote(proposalID uint64, optionIndex int, nullifier *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.Proposal(proposalID)
	if err != nil {
		return err
	}
	tally, err := s.Tally(proposalID)
	if err != nil {
		return err
	}
	if optionIndex < 0 || optionIndex >= len(tally) {
		return fmt.Errorf("option index %d out of range for proposal %d", optionIndex, proposalID)
	}
	tally[optionIndex]++
	proposal.TotalVotes++

	nullifierBytes := util.BigToBytes32(nullifier)
	wtx := s.db.WriteTx()
	defer wtx.Discard()
	if err := setArtifact(wtx, nullifierPrefix, nullifierBytes, true); err != nil {
		return err
	}
	if err := setArtifact(wtx, tallyPrefix, u64Key(proposalID), tally); err != nil {
		return err
	}
	if err := setArtifact(wtx, proposalPrefix, u64Key(proposalID), proposal); err != nil {
		return err
	}
	if err := pushEvent(wtx, EventVoteCast, &VoteCastEvent{
		ProposalID:  proposalID,
		OptionIndex: optionIndex,
		Nullifier:   nullifierBytes,
	}); err != nil {
		return err
	}
	return wtx.Commit()
}
