package storage

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/db"
)

// Event types, matching the records an off-path indexer consumes.
const (
	EventMemberAdded      = "member-added"
	EventProposalCreated  = "proposal-created"
	EventVoteCast         = "vote-cast"
	EventProposalExecuted = "proposal-executed"
)

var eventSeqCounter = []byte("eventseq")

// Event is an append-only record of a state change. Data holds the
// cbor-encoded typed payload for Type.
type Event struct {
	Seq  uint64          `json:"seq"  cbor:"0,keyasint"`
	Type string          `json:"type" cbor:"1,keyasint"`
	Time time.Time       `json:"time" cbor:"2,keyasint"`
	Data cbor.RawMessage `json:"data" cbor:"3,keyasint"`
}

// MemberAddedEvent records a successful join. It carries the leaf index,
// the commitment and the accumulator root it produced.
type MemberAddedEvent struct {
	LeafIndex  uint64         `json:"leafIndex"  cbor:"0,keyasint"`
	Commitment types.HexBytes `json:"commitment" cbor:"1,keyasint"`
	NewRoot    types.HexBytes `json:"newRoot"    cbor:"2,keyasint"`
}

// ProposalCreatedEvent records a new proposal.
type ProposalCreatedEvent struct {
	ID          uint64         `json:"id"          cbor:"0,keyasint"`
	Title       string         `json:"title"       cbor:"1,keyasint"`
	Description string         `json:"description" cbor:"2,keyasint"`
	Options     []string       `json:"options"     cbor:"3,keyasint"`
	StartTime   time.Time      `json:"startTime"   cbor:"4,keyasint"`
	EndTime     time.Time      `json:"endTime"     cbor:"5,keyasint"`
	Proposer    common.Address `json:"proposer"    cbor:"6,keyasint"`
}

// VoteCastEvent records an accepted vote. It carries no identity beyond the
// spent nullifier.
type VoteCastEvent struct {
	ProposalID  uint64         `json:"proposalId"  cbor:"0,keyasint"`
	OptionIndex int            `json:"optionIndex" cbor:"1,keyasint"`
	Nullifier   types.HexBytes `json:"nullifier"   cbor:"2,keyasint"`
}

// ProposalExecutedEvent records a proposal execution.
type ProposalExecutedEvent struct {
	ID uint64 `json:"id" cbor:"0,keyasint"`
}

// pushEvent appends an event record inside the given transaction.
func pushEvent(wtx db.WriteTx, eventType string, payload any) error {
	data, err := encodeArtifact(payload)
	if err != nil {
		return err
	}
	seq, err := nextCounter(wtx, eventSeqCounter)
	if err != nil {
		return err
	}
	event := &Event{
		Seq:  seq,
		Type: eventType,
		Time: time.Now(),
		Data: data,
	}
	return setArtifact(wtx, eventPrefix, u64Key(seq), event)
}

// Events returns up to limit event records starting at the given sequence
// number, in sequence order. A limit of zero means no limit.
func (s *Storage) Events(fromSeq uint64, limit int) ([]*Event, error) {
	var events []*Event
	var decodeErr error
	err := s.listArtifacts(eventPrefix, func(_, value []byte) bool {
		event := &Event{}
		if decodeErr = decodeArtifact(value, event); decodeErr != nil {
			return false
		}
		if event.Seq < fromSeq {
			return true
		}
		events = append(events, event)
		return limit <= 0 || len(events) < limit
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return events, nil
}
