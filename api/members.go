package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zkvote/zkvote/types"
	"github.com/zkvote/zkvote/util"
)

// Event pagination bounds for the events endpoint.
const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// join registers a new group member
// POST /members
func (a *API) join(w http.ResponseWriter, r *http.Request) {
	req := &JoinRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.Commitment == nil {
		ErrMalformedBody.With("missing commitment").Write(w)
		return
	}
	newRoot, err := a.ledger.Join(req.Address, req.Commitment.MathBigInt())
	if err != nil {
		fromLedgerError(err).Write(w)
		return
	}
	member, err := a.ledger.Member(req.Address)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &JoinResponse{
		LeafIndex: member.LeafIndex,
		NewRoot:   types.NewBigInt(newRoot),
		Size:      a.ledger.Members().Size(),
	})
}

// membersRoot returns the current accumulator root, size and depth
// GET /members/root
func (a *API) membersRoot(w http.ResponseWriter, _ *http.Request) {
	members := a.ledger.Members()
	root, err := members.Root()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &MembersRootResponse{
		Root:            types.NewBigInt(root),
		Size:            members.Size(),
		Depth:           members.Depth(),
		LatestRootIndex: members.History().LatestIndex(),
	})
}

// member runs a membership test for a commitment, given either as a decimal
// number or 0x-prefixed hex
// GET /members/{commitment}
func (a *API) member(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, MemberParam)
	base := 10
	if len(param) > 2 && (param[:2] == "0x" || param[:2] == "0X") {
		base = 16
	}
	commitment, ok := new(big.Int).SetString(util.TrimHex(param), base)
	if !ok {
		ErrMalformedParam.With("commitment must be a decimal or 0x-hex field element").Write(w)
		return
	}
	httpWriteJSON(w, &MemberResponse{Member: a.ledger.Members().Contains(commitment)})
}

// events returns the emitted records from a sequence number onward
// GET /events?from=N&limit=M
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	var fromSeq uint64
	limit := defaultEventLimit
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, ok := new(big.Int).SetString(v, 10)
		if !ok || !parsed.IsUint64() {
			ErrMalformedParam.With("from must be a sequence number").Write(w)
			return
		}
		fromSeq = parsed.Uint64()
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			ErrMalformedParam.With("limit must be a positive number").Write(w)
			return
		}
		limit = min(parsed, maxEventLimit)
	}
	events, err := a.ledger.Events(fromSeq, limit)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, events)
}
