package api_test

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/zkvote/zkvote/api"
	"github.com/zkvote/zkvote/api/client"
	"github.com/zkvote/zkvote/ledger"
	"github.com/zkvote/zkvote/sponsor"
	"github.com/zkvote/zkvote/storage"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	ownerAddr   = common.HexToAddress("0x3000000000000000000000000000000000000001")
	voterAddr   = common.HexToAddress("0x3000000000000000000000000000000000000002")
	ledgerAddr  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	accountAddr = common.HexToAddress("0x3000000000000000000000000000000000000004")
)

// acceptAllVerifier stands in for the Groth16 verifier so the HTTP flow can
// be exercised without real proving keys.
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(_ *types.GroupProof) error { return nil }

func newTestClient(t *testing.T) (*client.HTTPclient, *ledger.Ledger) {
	l, err := ledger.New(ledger.Config{
		DB:                metadb.NewTest(t),
		Verifier:          acceptAllVerifier{},
		ChainID:           1337,
		DeploymentAddress: ledgerAddr,
		Entropy:           []byte("api test entropy"),
	})
	qt.Assert(t, err, qt.IsNil)

	sp := sponsor.New(ownerAddr, accountAddr, ledgerAddr, l)
	qt.Assert(t, sp.Deposit(big.NewInt(1000)), qt.IsNil)

	a, err := api.New(&api.APIConfig{
		Host:    "127.0.0.1",
		Port:    0,
		Ledger:  l,
		Sponsor: sp,
	})
	qt.Assert(t, err, qt.IsNil)

	server := httptest.NewServer(a.Router())
	t.Cleanup(server.Close)

	cli, err := client.New(server.URL)
	qt.Assert(t, err, qt.IsNil)
	return cli, l
}

func testProof(scope, root *big.Int, nullifier int64) *types.GroupProof {
	var points [types.GroupProofPoints]*types.BigInt
	for i := range points {
		points[i] = types.NewBigInt(big.NewInt(int64(i + 1)))
	}
	return &types.GroupProof{
		MerkleTreeDepth: 1,
		MerkleTreeRoot:  types.NewBigInt(root),
		Nullifier:       types.NewBigInt(big.NewInt(nullifier)),
		Message:         types.NewBigInt(big.NewInt(0)),
		Scope:           types.NewBigInt(scope),
		Points:          points,
	}
}

func TestVotingFlowOverHTTP(t *testing.T) {
	c := qt.New(t)
	cli, l := newTestClient(t)

	// Join and check membership.
	commitment := types.NewBigInt(big.NewInt(7777))
	join, err := cli.Join(voterAddr, commitment)
	c.Assert(err, qt.IsNil)
	c.Assert(join.LeafIndex, qt.Equals, uint64(0))
	c.Assert(join.Size, qt.Equals, uint64(1))

	member, err := cli.IsMember(commitment)
	c.Assert(err, qt.IsNil)
	c.Assert(member, qt.IsTrue)

	// The commitment param is also accepted as 0x-prefixed hex.
	data, status, err := cli.Request(http.MethodGet, nil, nil, api.MembersEndpoint, "0x1e61")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)
	hexMember := &api.MemberResponse{}
	c.Assert(json.Unmarshal(data, hexMember), qt.IsNil)
	c.Assert(hexMember.Member, qt.IsTrue)

	root, err := cli.MembersRoot()
	c.Assert(err, qt.IsNil)
	c.Assert(root.Size, qt.Equals, uint64(1))
	c.Assert(root.Root.String(), qt.Equals, join.NewRoot.String())
	c.Assert(root.LatestRootIndex, qt.Equals, 0)

	// A duplicate join is refused.
	_, err = cli.Join(voterAddr, commitment)
	c.Assert(err, qt.IsNotNil)

	// Create a proposal and find it active.
	proposal, err := cli.CreateProposal(&api.NewProposalRequest{
		Proposer:        voterAddr,
		Title:           "upgrade",
		Description:     "enable the v2 circuits",
		Options:         []string{"yes", "no"},
		DurationSeconds: 3600,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(proposal.Active, qt.IsTrue)

	active, err := cli.ActiveProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(active, qt.DeepEquals, []uint64{proposal.ID})

	// Vote, then check the tally through the proposal endpoint.
	req := &types.VoteRequest{
		ProposalID:  proposal.ID,
		OptionIndex: 0,
		Proof:       testProof(l.Scope(), join.NewRoot.MathBigInt(), 99),
		RootIndex:   root.LatestRootIndex,
	}
	c.Assert(cli.Vote(req), qt.IsNil)

	fetched, err := cli.Proposal(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(fetched.Tally, qt.DeepEquals, []uint64{1, 0})
	c.Assert(fetched.TotalVotes, qt.Equals, uint64(1))

	// A spent nullifier is refused and leaves the tally intact.
	c.Assert(cli.Vote(req), qt.IsNotNil)
	fetched, err = cli.Proposal(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(fetched.Tally, qt.DeepEquals, []uint64{1, 0})

	// The window is still open, so execution is refused.
	c.Assert(cli.ExecuteProposal(proposal.ID), qt.IsNotNil)
}

func TestEventsPaginationOverHTTP(t *testing.T) {
	c := qt.New(t)
	cli, _ := newTestClient(t)

	for i := int64(1); i <= 3; i++ {
		_, err := cli.Join(common.BigToAddress(big.NewInt(0x4000+i)), types.NewBigInt(big.NewInt(i)))
		c.Assert(err, qt.IsNil)
	}

	data, status, err := cli.Request(http.MethodGet, nil, []string{"from", "1", "limit", "1"}, api.EventsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)
	var events []*storage.Event
	c.Assert(json.Unmarshal(data, &events), qt.IsNil)
	c.Assert(events, qt.HasLen, 1)
	c.Assert(events[0].Seq, qt.Equals, uint64(1))

	// Non-numeric and non-positive limits are refused.
	_, status, err = cli.Request(http.MethodGet, nil, []string{"limit", "0"}, api.EventsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	_, status, err = cli.Request(http.MethodGet, nil, []string{"limit", "many"}, api.EventsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
}

func TestSponsorshipOverHTTP(t *testing.T) {
	c := qt.New(t)
	cli, l := newTestClient(t)

	commitment := types.NewBigInt(big.NewInt(8888))
	join, err := cli.Join(voterAddr, commitment)
	c.Assert(err, qt.IsNil)
	proposal, err := cli.CreateProposal(&api.NewProposalRequest{
		Proposer:        voterAddr,
		Title:           "treasury",
		Description:     "fund the audit",
		Options:         []string{"yes", "no"},
		DurationSeconds: 3600,
	})
	c.Assert(err, qt.IsNil)

	tx := &sponsor.Transaction{
		From:         accountAddr,
		FromDeployed: true,
		To:           ledgerAddr,
		Value:        types.NewBigInt(big.NewInt(0)),
		MaxFee:       types.NewBigInt(big.NewInt(100)),
		Method:       "vote",
		Vote: &types.VoteRequest{
			ProposalID: proposal.ID,
			Proof:      testProof(l.Scope(), join.NewRoot.MathBigInt(), 42),
		},
	}
	decision, err := cli.SponsorshipCheck(tx)
	c.Assert(err, qt.IsNil)
	c.Assert(decision.Sponsored, qt.IsTrue)

	// A decline is still a 200 decision, not an API error.
	tx.From = voterAddr
	decision, err = cli.SponsorshipCheck(tx)
	c.Assert(err, qt.IsNil)
	c.Assert(decision.Sponsored, qt.IsFalse)
	c.Assert(decision.Reason, qt.Not(qt.Equals), "")

	// The pre-check is read-only: the actual vote still goes through.
	voteReq := &types.VoteRequest{
		ProposalID: proposal.ID,
		Proof:      testProof(l.Scope(), join.NewRoot.MathBigInt(), 42),
	}
	c.Assert(cli.Vote(voteReq), qt.IsNil)
	fetched, err := cli.Proposal(proposal.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(fetched.Tally, qt.DeepEquals, []uint64{1, 0})
}
