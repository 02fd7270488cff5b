// Package client is the HTTP client for the voting ledger API, used by the
// end-to-end tests and by external tooling.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkvote/zkvote/api"
	"github.com/zkvote/zkvote/sponsor"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
)

// HTTPclient is the voting ledger API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host, checks it is alive and returns the handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if c.c.Transport != nil {
		if _, ok := c.c.Transport.(*http.Transport); ok {
			c.c.Transport.(*http.Transport).ResponseHeaderTimeout = d
		}
	}
}

// Join registers a commitment for the given address and returns the
// accepted leaf position and the new accumulator root.
func (c *HTTPclient) Join(address common.Address, commitment *types.BigInt) (*api.JoinResponse, error) {
	resp := &api.JoinResponse{}
	err := c.post(&api.JoinRequest{Address: address, Commitment: commitment}, resp, api.MembersEndpoint)
	return resp, err
}

// MembersRoot returns the current accumulator root, size and depth.
func (c *HTTPclient) MembersRoot() (*api.MembersRootResponse, error) {
	resp := &api.MembersRootResponse{}
	err := c.get(resp, api.MembersRootEndpoint)
	return resp, err
}

// IsMember checks whether the commitment is part of the group.
func (c *HTTPclient) IsMember(commitment *types.BigInt) (bool, error) {
	resp := &api.MemberResponse{}
	if err := c.get(resp, api.MembersEndpoint, commitment.String()); err != nil {
		return false, err
	}
	return resp.Member, nil
}

// CreateProposal submits a new proposal and returns it with its id set.
func (c *HTTPclient) CreateProposal(req *api.NewProposalRequest) (*api.ProposalResponse, error) {
	resp := &api.ProposalResponse{}
	err := c.post(req, resp, api.ProposalsEndpoint)
	return resp, err
}

// Proposal fetches a proposal header with its current tally.
func (c *HTTPclient) Proposal(id uint64) (*api.ProposalResponse, error) {
	resp := &api.ProposalResponse{}
	err := c.get(resp, api.ProposalsEndpoint, strconv.FormatUint(id, 10))
	return resp, err
}

// ActiveProposals lists the ids of the proposals currently accepting votes.
func (c *HTTPclient) ActiveProposals() ([]uint64, error) {
	resp := &api.ActiveProposalsResponse{}
	if err := c.get(resp, api.ActiveProposalsEndpoint); err != nil {
		return nil, err
	}
	return resp.ProposalIDs, nil
}

// Vote submits an anonymous vote.
func (c *HTTPclient) Vote(req *types.VoteRequest) error {
	return c.post(req, nil, api.VotesEndpoint)
}

// ExecuteProposal marks a proposal as executed once its window has closed.
func (c *HTTPclient) ExecuteProposal(id uint64) error {
	return c.post(struct{}{}, nil, api.ProposalsEndpoint, strconv.FormatUint(id, 10), "execute")
}

// SponsorshipCheck runs the fee-sponsorship pre-validation for a pending
// vote transaction. A declined decision is not an error.
func (c *HTTPclient) SponsorshipCheck(tx *sponsor.Transaction) (*sponsor.Decision, error) {
	resp := &sponsor.Decision{}
	err := c.post(tx, resp, api.SponsorshipCheckEndpoint)
	return resp, err
}

func (c *HTTPclient) get(response any, urlPath ...string) error {
	data, status, err := c.Request(HTTPGET, nil, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return json.Unmarshal(data, response)
}

func (c *HTTPclient) post(request, response any, urlPath ...string) error {
	data, status, err := c.Request(HTTPPOST, request, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	if response == nil {
		return nil
	}
	return json.Unmarshal(data, response)
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached.  Returns the response,
// the status code and an error.
//
// Supports query parameters via `params` slice. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var (
		body []byte
		err  error
	)

	// Marshal the JSON body if provided.
	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	// Parse the base host URL
	u, err := url.Parse(c.host.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse host URL: %w", err)
	}

	// Join path segments
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	// Process query parameters from the params slice.
	// Expecting even-length slice: [key1, val1, key2, val2, ...]
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	// Prepare headers
	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		// Create a fresh request each attempt
		var reqBody io.ReadCloser
		if body != nil {
			reqBody = io.NopCloser(bytes.NewReader(body))
		}
		req, err := http.NewRequest(method, u.String(), reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		break
	}

	if resp == nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after %d retries", c.retries)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}
