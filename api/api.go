package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/zkvote/zkvote/ledger"
	"github.com/zkvote/zkvote/sponsor"
	"go.vocdoni.io/dvote/log"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the core components to expose.
type APIConfig struct {
	Host    string
	Port    int
	Ledger  *ledger.Ledger
	Sponsor *sponsor.Validator // optional: sponsorship endpoints are hidden if nil
}

// API type represents the API HTTP server exposing the voting ledger.
type API struct {
	router  *chi.Mux
	ledger  *ledger.Ledger
	sponsor *sponsor.Validator
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ledger == nil {
		return nil, fmt.Errorf("missing ledger instance")
	}
	a := &API{
		ledger:  conf.Ledger,
		sponsor: conf.Sponsor,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MembersEndpoint, "method", "POST")
	a.router.Post(MembersEndpoint, a.join)
	log.Infow("register handler", "endpoint", MembersRootEndpoint, "method", "GET")
	a.router.Get(MembersRootEndpoint, a.membersRoot)
	log.Infow("register handler", "endpoint", MemberEndpoint, "method", "GET")
	a.router.Get(MemberEndpoint, a.member)
	log.Infow("register handler", "endpoint", ProposalsEndpoint, "method", "POST")
	a.router.Post(ProposalsEndpoint, a.newProposal)
	log.Infow("register handler", "endpoint", ProposalsEndpoint, "method", "GET")
	a.router.Get(ProposalsEndpoint, a.proposals)
	log.Infow("register handler", "endpoint", ActiveProposalsEndpoint, "method", "GET")
	a.router.Get(ActiveProposalsEndpoint, a.activeProposals)
	log.Infow("register handler", "endpoint", ProposalEndpoint, "method", "GET")
	a.router.Get(ProposalEndpoint, a.proposal)
	log.Infow("register handler", "endpoint", ExecuteProposalEndpoint, "method", "POST")
	a.router.Post(ExecuteProposalEndpoint, a.executeProposal)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	a.router.Get(EventsEndpoint, a.events)
	if a.sponsor != nil {
		log.Infow("register handler", "endpoint", SponsorshipCheckEndpoint, "method", "POST")
		a.router.Post(SponsorshipCheckEndpoint, a.sponsorshipCheck)
		log.Infow("register handler", "endpoint", SponsorshipAccountEndpoint, "method", "POST")
		a.router.Post(SponsorshipAccountEndpoint, a.setSponsorshipAccount)
	}
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
