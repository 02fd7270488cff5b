package api

import (
	"encoding/json"
	"net/http"

	"github.com/zkvote/zkvote/types"
)

// newVote casts an anonymous vote
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	req := &types.VoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.Proof == nil {
		ErrMalformedBody.With("missing membership proof").Write(w)
		return
	}
	if err := a.ledger.Vote(req); err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	httpWriteOK(w)
}
