package types

import "fmt"

// GroupProofPoints is the number of curve point coordinates in a Groth16
// membership proof: A (2), B (4), C (2), in snarkjs ordering.
const GroupProofPoints = 8

// GroupProof is a zero-knowledge proof that the prover belongs to the group
// as of some historical accumulator root and has not voted before. The
// public signal tuple derived from it is
// [merkleTreeRoot, nullifier, hash(message), hash(scope)].
type GroupProof struct {
	MerkleTreeDepth int                       `json:"merkleTreeDepth"`
	MerkleTreeRoot  *BigInt                   `json:"merkleTreeRoot"`
	Nullifier       *BigInt                   `json:"nullifier"`
	Message         *BigInt                   `json:"message"`
	Scope           *BigInt                   `json:"scope"`
	Points          [GroupProofPoints]*BigInt `json:"points"`
}

// Valid reports whether all proof fields are populated. It says nothing
// about whether the proof verifies.
func (p *GroupProof) Valid() error {
	if p == nil {
		return fmt.Errorf("nil proof")
	}
	if p.MerkleTreeRoot == nil || p.Nullifier == nil || p.Message == nil || p.Scope == nil {
		return fmt.Errorf("missing public signals")
	}
	for i, pt := range p.Points {
		if pt == nil {
			return fmt.Errorf("missing proof point %d", i)
		}
	}
	return nil
}

// VoteRequest is the call surface of the voting ledger: which proposal and
// option the ballot is for, the membership proof, and the index in the root
// history the proof's root is expected at.
type VoteRequest struct {
	ProposalID  uint64      `json:"proposalId"`
	OptionIndex int         `json:"optionIndex"`
	Proof       *GroupProof `json:"proof"`
	RootIndex   int         `json:"rootIndex"`
}
