//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zkvote/zkvote/ledger"
	"github.com/zkvote/zkvote/membership"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
var (
	ErrResourceNotFound = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody    = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedParam   = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}

	ErrZeroCommitment      = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: membership.ErrZeroCommitment}
	ErrInvalidCommitment   = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: membership.ErrInvalidCommitment}
	ErrDuplicateCommitment = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: membership.ErrDuplicateCommitment}
	ErrDepthExceeded       = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: membership.ErrDepthExceeded}
	ErrMemberExists        = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: ledger.ErrMemberExists}
	ErrNotMember           = Error{Code: 40015, HTTPstatus: http.StatusForbidden, Err: ledger.ErrNotMember}

	ErrProposalNotFound   = Error{Code: 40020, HTTPstatus: http.StatusNotFound, Err: ledger.ErrProposalNotFound}
	ErrInvalidOptionCount = Error{Code: 40021, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrInvalidOptionCount}
	ErrDurationTooShort   = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrDurationTooShort}
	ErrDurationTooLong    = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrDurationTooLong}
	ErrEmptyTitle         = Error{Code: 40024, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrEmptyTitle}
	ErrEmptyDescription   = Error{Code: 40025, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrEmptyDescription}
	ErrVotingNotStarted   = Error{Code: 40026, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrVotingNotStarted}
	ErrVotingEnded        = Error{Code: 40027, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrVotingEnded}
	ErrVotingNotEnded     = Error{Code: 40028, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrVotingNotEnded}
	ErrAlreadyExecuted    = Error{Code: 40029, HTTPstatus: http.StatusConflict, Err: ledger.ErrAlreadyExecuted}

	ErrInvalidOptionIndex      = Error{Code: 40030, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrInvalidOptionIndex}
	ErrNullifierAlreadyUsed    = Error{Code: 40031, HTTPstatus: http.StatusConflict, Err: ledger.ErrNullifierAlreadyUsed}
	ErrScopeMismatch           = Error{Code: 40032, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrScopeMismatch}
	ErrUnknownRoot             = Error{Code: 40033, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrUnknownRoot}
	ErrInvalidTreeDepth        = Error{Code: 40034, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrInvalidTreeDepth}
	ErrProofVerificationFailed = Error{Code: 40035, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrProofVerificationFailed}
	ErrUnauthorized            = Error{Code: 40036, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("caller is not authorized")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)

// fromLedgerError maps a core error to its API error, falling back to a
// generic internal error for anything unrecognized.
func fromLedgerError(err error) Error {
	for _, candidate := range []Error{
		ErrZeroCommitment, ErrInvalidCommitment, ErrDuplicateCommitment, ErrDepthExceeded,
		ErrMemberExists, ErrNotMember,
		ErrProposalNotFound, ErrInvalidOptionCount, ErrDurationTooShort, ErrDurationTooLong,
		ErrEmptyTitle, ErrEmptyDescription, ErrVotingNotStarted, ErrVotingEnded,
		ErrVotingNotEnded, ErrAlreadyExecuted,
		ErrInvalidOptionIndex, ErrNullifierAlreadyUsed, ErrScopeMismatch, ErrUnknownRoot,
		ErrInvalidTreeDepth, ErrProofVerificationFailed,
	} {
		if errors.Is(err, candidate.Err) {
			return candidate
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
