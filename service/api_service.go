// Package service wraps the long-running pieces of the voting engine with
// start/stop lifecycles.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/zkvote/zkvote/api"
	"github.com/zkvote/zkvote/ledger"
	"github.com/zkvote/zkvote/sponsor"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	ledger  *ledger.Ledger
	sponsor *sponsor.Validator
	api     *api.API
	mu      sync.Mutex
	cancel  context.CancelFunc
	host    string
	port    int
}

// NewAPI creates a new APIService instance.
func NewAPI(l *ledger.Ledger, s *sponsor.Validator, host string, port int) *APIService {
	return &APIService{
		ledger:  l,
		sponsor: s,
		host:    host,
		port:    port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:    as.host,
		Port:    as.port,
		Ledger:  as.ledger,
		Sponsor: as.sponsor,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server and releases the ledger storage.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
	as.ledger.Close()
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.host, as.port
}
