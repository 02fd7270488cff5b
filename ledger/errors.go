package ledger

import "fmt"

// Every admission precondition failure surfaces as its own named error so
// callers can decide whether a retry makes sense (stale root: regenerate
// the proof; spent nullifier: do not retry).
var (
	// Membership / join errors.
	ErrMemberExists = fmt.Errorf("address already joined the group")

	// Proposal errors.
	ErrProposalNotFound   = fmt.Errorf("proposal not found")
	ErrNotMember          = fmt.Errorf("address is not a group member")
	ErrEmptyTitle         = fmt.Errorf("proposal title is empty")
	ErrEmptyDescription   = fmt.Errorf("proposal description is empty")
	ErrInvalidOptionCount = fmt.Errorf("invalid proposal option count")
	ErrDurationTooShort   = fmt.Errorf("voting duration too short")
	ErrDurationTooLong    = fmt.Errorf("voting duration too long")
	ErrVotingNotStarted   = fmt.Errorf("voting has not started")
	ErrVotingEnded        = fmt.Errorf("voting has ended")
	ErrVotingNotEnded     = fmt.Errorf("voting has not ended yet")
	ErrAlreadyExecuted    = fmt.Errorf("proposal already executed")

	// Vote admission errors.
	ErrInvalidOptionIndex      = fmt.Errorf("option index out of range")
	ErrNullifierAlreadyUsed    = fmt.Errorf("nullifier already used")
	ErrScopeMismatch           = fmt.Errorf("proof scope does not match this instance")
	ErrUnknownRoot             = fmt.Errorf("unknown or stale merkle root")
	ErrInvalidTreeDepth        = fmt.Errorf("merkle tree depth out of bounds")
	ErrProofVerificationFailed = fmt.Errorf("group membership proof verification failed")
)
