package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MembersEndpoint is the endpoint for joining the group
	MembersEndpoint = "/members"
	// MembersRootEndpoint is the endpoint for the current accumulator root
	MembersRootEndpoint = "/members/root"
	// MemberEndpoint is the endpoint for a commitment membership test
	MemberParam    = "commitment"
	MemberEndpoint = "/members/{" + MemberParam + "}"
	// ProposalsEndpoint is the endpoint for creating and listing proposals
	ProposalsEndpoint = "/proposals"
	// ActiveProposalsEndpoint lists the proposals currently accepting votes
	ActiveProposalsEndpoint = "/proposals/active"
	// ProposalEndpoint is the endpoint to get a proposal with its tally
	ProposalParam    = "proposalId"
	ProposalEndpoint = "/proposals/{" + ProposalParam + "}"
	// ExecuteProposalEndpoint executes a proposal after its window closes
	ExecuteProposalEndpoint = "/proposals/{" + ProposalParam + "}/execute"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// SponsorshipCheckEndpoint is the read-only fee-sponsorship pre-check
	SponsorshipCheckEndpoint = "/sponsorship/check"
	// SponsorshipAccountEndpoint is the owner-restricted allow-list admin
	SponsorshipAccountEndpoint = "/sponsorship/account"
	// EventsEndpoint exposes the emitted records for an off-path indexer
	EventsEndpoint = "/events"
)
