package storage

import (
	"fmt"

	"github.com/zkvote/zkvote/types"
)

var proposalIDCounter = []byte("proposalseq")

// CreateProposal assigns the next proposal id, persists the proposal with a
// zeroed tally and appends the proposal-created event, all in a single
// transaction. The assigned id is written back into the proposal.
func (s *Storage) CreateProposal(proposal *types.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wtx := s.db.WriteTx()
	defer wtx.Discard()

	id, err := nextCounter(wtx, proposalIDCounter)
	if err != nil {
		return err
	}
	proposal.ID = id
	if err := setArtifact(wtx, proposalPrefix, u64Key(id), proposal); err != nil {
		return err
	}
	if err := setArtifact(wtx, tallyPrefix, u64Key(id), make([]uint64, len(proposal.Options))); err != nil {
		return err
	}
	if err := pushEvent(wtx, EventProposalCreated, &ProposalCreatedEvent{
		ID:          id,
		Title:       proposal.Title,
		Description: proposal.Description,
		Options:     proposal.Options,
		StartTime:   proposal.StartTime,
		EndTime:     proposal.EndTime,
		Proposer:    proposal.Proposer,
	}); err != nil {
		return err
	}
	return wtx.Commit()
}

// Proposal retrieves a proposal by id. Returns ErrNotFound if it does not
// exist.
func (s *Storage) Proposal(id uint64) (*types.Proposal, error) {
	proposal := &types.Proposal{}
	if err := s.getArtifact(proposalPrefix, u64Key(id), proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// ListProposals returns all stored proposals in id order.
func (s *Storage) ListProposals() ([]*types.Proposal, error) {
	var proposals []*types.Proposal
	var decodeErr error
	err := s.listArtifacts(proposalPrefix, func(_, value []byte) bool {
		proposal := &types.Proposal{}
		if decodeErr = decodeArtifact(value, proposal); decodeErr != nil {
			return false
		}
		proposals = append(proposals, proposal)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return proposals, nil
}

// MarkExecuted flips the executed flag of a proposal and appends the
// proposal-executed event in a single transaction. The caller has already
// checked the execution preconditions.
func (s *Storage) MarkExecuted(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, err := s.Proposal(id)
	if err != nil {
		return err
	}
	if proposal.Executed {
		return fmt.Errorf("proposal %d already executed", id)
	}
	proposal.Executed = true

	wtx := s.db.WriteTx()
	defer wtx.Discard()
	if err := setArtifact(wtx, proposalPrefix, u64Key(id), proposal); err != nil {
		return err
	}
	if err := pushEvent(wtx, EventProposalExecuted, &ProposalExecutedEvent{ID: id}); err != nil {
		return err
	}
	return wtx.Commit()
}

// Tally returns the per-option vote counts for a proposal. The vector
// length equals the proposal's option count.
func (s *Storage) Tally(id uint64) ([]uint64, error) {
	var tally []uint64
	if err := s.getArtifact(tallyPrefix, u64Key(id), &tally); err != nil {
		return nil, err
	}
	return tally, nil
}
