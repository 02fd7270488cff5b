package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// newProposal creates a new voting proposal
// POST /proposals
func (a *API) newProposal(w http.ResponseWriter, r *http.Request) {
	req := &NewProposalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	proposal, err := a.ledger.CreateProposal(req.Proposer, req.Title, req.Description,
		req.Options, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &ProposalResponse{
		Proposal: proposal,
		Tally:    make([]uint64, len(proposal.Options)),
		Active:   true,
	})
}

// proposals lists all proposals
// GET /proposals
func (a *API) proposals(w http.ResponseWriter, _ *http.Request) {
	proposals, err := a.ledger.Proposals()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, proposals)
}

// activeProposals lists the ids of proposals currently accepting votes
// GET /proposals/active
func (a *API) activeProposals(w http.ResponseWriter, _ *http.Request) {
	ids, err := a.ledger.ActiveProposals()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ActiveProposalsResponse{ProposalIDs: ids})
}

// proposal returns a proposal header with its option list and tally
// GET /proposals/{proposalId}
func (a *API) proposal(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUint64(r, ProposalParam)
	if err != nil {
		ErrMalformedParam.Withf("could not parse proposal id: %v", err).Write(w)
		return
	}
	proposal, err := a.ledger.Proposal(id)
	if err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	tally, err := a.ledger.Tally(id)
	if err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &ProposalResponse{
		Proposal: proposal,
		Tally:    tally,
		Active:   proposal.Active(time.Now()),
	})
}

// executeProposal marks a proposal as executed once its window has closed
// POST /proposals/{proposalId}/execute
func (a *API) executeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUint64(r, ProposalParam)
	if err != nil {
		ErrMalformedParam.Withf("could not parse proposal id: %v", err).Write(w)
		return
	}
	if err := a.ledger.Execute(id); err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	httpWriteOK(w)
}
