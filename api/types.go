package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/zkvote/zkvote/types"
)

// JoinRequest is the body of a group join: an account address and its
// secret-derived commitment.
type JoinRequest struct {
	Address    common.Address `json:"address"`
	Commitment *types.BigInt  `json:"commitment"`
}

// JoinResponse reports the accepted join.
type JoinResponse struct {
	LeafIndex uint64        `json:"leafIndex"`
	NewRoot   *types.BigInt `json:"newRoot"`
	Size      uint64        `json:"size"`
}

// MembersRootResponse is the current accumulator state.
type MembersRootResponse struct {
	Root            *types.BigInt `json:"root"`
	Size            uint64        `json:"size"`
	Depth           int           `json:"depth"`
	LatestRootIndex int           `json:"latestRootIndex"`
}

// MemberResponse is the result of a commitment membership test.
type MemberResponse struct {
	Member bool `json:"member"`
}

// NewProposalRequest is the body of a proposal creation.
type NewProposalRequest struct {
	Proposer    common.Address `json:"proposer"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Options     []string       `json:"options"`
	// DurationSeconds is the length of the voting window, starting now.
	DurationSeconds uint64 `json:"duration"`
}

// ProposalResponse is a proposal header with its current tally vector.
type ProposalResponse struct {
	*types.Proposal
	Tally  []uint64 `json:"tally"`
	Active bool     `json:"active"`
}

// ActiveProposalsResponse lists the ids of proposals accepting votes.
type ActiveProposalsResponse struct {
	ProposalIDs []uint64 `json:"proposalIds"`
}

// SetSponsorshipAccountRequest is the owner-restricted allow-list update.
type SetSponsorshipAccountRequest struct {
	Caller  common.Address `json:"caller"`
	Account common.Address `json:"account"`
}
