package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zkvote/zkvote/sponsor"
)

// sponsorshipCheck runs the read-only fee-sponsorship pre-validation. A
// decline is a regular 200 decision, never an error: the voter can always
// self-pay instead.
// POST /sponsorship/check
func (a *API) sponsorshipCheck(w http.ResponseWriter, r *http.Request) {
	tx := &sponsor.Transaction{}
	if err := json.NewDecoder(r.Body).Decode(tx); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, a.sponsor.Validate(tx))
}

// setSponsorshipAccount replaces the allow-listed account, owner only
// POST /sponsorship/account
func (a *API) setSponsorshipAccount(w http.ResponseWriter, r *http.Request) {
	req := &SetSponsorshipAccountRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.sponsor.SetAllowedAccount(req.Caller, req.Account); err != nil {
		if errors.Is(err, sponsor.ErrNotOwner) {
			ErrUnauthorized.WithErr(err).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}
