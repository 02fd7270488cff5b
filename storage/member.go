package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/db"
)

// AddMember stages a member record and the member-added event into the
// caller's transaction. The caller commits; the accumulator insert that
// produced newRoot shares the same transaction, so a join lands whole or
// not at all.
func (s *Storage) AddMember(wtx db.WriteTx, member *types.Member, newRoot *big.Int) error {
	if err := setArtifact(wtx, memberPrefix, member.Address.Bytes(), member); err != nil {
		return err
	}
	return pushEvent(wtx, EventMemberAdded, &MemberAddedEvent{
		LeafIndex:  member.LeafIndex,
		Commitment: member.Commitment,
		NewRoot:    newRoot.Bytes(),
	})
}

// Member retrieves the member record for an address. Returns ErrNotFound if
// the address never joined.
func (s *Storage) Member(address common.Address) (*types.Member, error) {
	member := &types.Member{}
	if err := s.getArtifact(memberPrefix, address.Bytes(), member); err != nil {
		return nil, err
	}
	return member, nil
}

// HasMember reports whether the address has joined the group.
func (s *Storage) HasMember(address common.Address) (bool, error) {
	return s.hasArtifact(memberPrefix, address.Bytes())
}
