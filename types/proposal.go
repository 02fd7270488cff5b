package types

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a voting proposal with a fixed option list and a bounded
// voting window. Proposals are never deleted; Executed transitions
// false to true exactly once, after the window has closed.
type Proposal struct {
	ID          uint64         `json:"id"          cbor:"0,keyasint"`
	Title       string         `json:"title"       cbor:"1,keyasint"`
	Description string         `json:"description" cbor:"2,keyasint"`
	Options     []string       `json:"options"     cbor:"3,keyasint"`
	StartTime   time.Time      `json:"startTime"   cbor:"4,keyasint"`
	EndTime     time.Time      `json:"endTime"     cbor:"5,keyasint"`
	Proposer    common.Address `json:"proposer"    cbor:"6,keyasint"`
	Executed    bool           `json:"executed"    cbor:"7,keyasint"`
	TotalVotes  uint64         `json:"totalVotes"  cbor:"8,keyasint"`
}

func (p *Proposal) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// Active reports whether the proposal accepts votes at the given time.
func (p *Proposal) Active(now time.Time) bool {
	return !p.Executed && !now.Before(p.StartTime) && !now.After(p.EndTime)
}

// Member binds an account address to its group commitment. The commitment
// is set exactly once per address and is immutable thereafter. It is kept
// as big-endian bytes so the record encodes deterministically.
type Member struct {
	Address    common.Address `json:"address"    cbor:"0,keyasint"`
	Commitment HexBytes       `json:"commitment" cbor:"1,keyasint"`
	LeafIndex  uint64         `json:"leafIndex"  cbor:"2,keyasint"`
}
