package types

import "time"

const (
	// RootHistorySize is the capacity of the accumulator root ring buffer.
	// Proofs bound to roots older than the last RootHistorySize joins are
	// permanently unverifiable.
	RootHistorySize = 64
	// MinTreeDepth is the minimum membership tree depth a proof may declare.
	MinTreeDepth = 1
	// MaxTreeDepth is the maximum membership tree depth a proof may declare,
	// and the maximum depth of the accumulator itself.
	MaxTreeDepth = 32
	// MinProposalOptions and MaxProposalOptions bound the option list length.
	MinProposalOptions = 2
	MaxProposalOptions = 10
)

const (
	// MinVotingDuration is the shortest allowed proposal voting window.
	MinVotingDuration = time.Hour
	// MaxVotingDuration is the longest allowed proposal voting window.
	MaxVotingDuration = 30 * 24 * time.Hour
)
