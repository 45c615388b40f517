package router

import (
	"net/http"

	"github.com/harshaldxb/leadengine/internal/auth"
	"github.com/harshaldxb/leadengine/internal/handlers"
	"github.com/harshaldxb/leadengine/internal/middleware"
	"github.com/harshaldxb/leadengine/internal/registry"
)

// Deps carries everything the route table needs.
type Deps struct {
	Auth        *auth.Handler
	Registry    *registry.Handler
	Auctions    *handlers.AuctionHandler
	Commissions *handlers.CommissionHandler
	Agents      *handlers.AgentHandler
	Markets     *handlers.MarketHandler
	Tokens      middleware.TokenValidator
	Keys        middleware.APIKeyRepo
}

// New returns the HTTP API. Operators authenticate with a JWT from
// /v1/auth/login; field agents with an API key.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	operator := middleware.OperatorAuth(d.Tokens)
	agent := middleware.APIKeyAuth(d.Keys)
	either := middleware.OperatorOrAgentAuth(d.Tokens, d.Keys)

	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.HandleFunc("POST /v1/auth/login", d.Auth.Login)

	// Auctions
	mux.Handle("POST /v1/auctions", operator(http.HandlerFunc(d.Auctions.CreateAuction)))
	mux.Handle("GET /v1/auctions/{id}", either(http.HandlerFunc(d.Auctions.GetAuction)))
	mux.Handle("POST /v1/auctions/{id}/responses", agent(http.HandlerFunc(d.Auctions.SubmitResponse)))
	mux.Handle("POST /v1/auctions/{id}/resolve", operator(http.HandlerFunc(d.Auctions.ResolveDeal)))
	mux.Handle("POST /v1/deals/{id}/direct", operator(http.HandlerFunc(d.Auctions.ResolveDirectDeal)))

	mux.Handle("GET /v1/markets/{location}/report", either(http.HandlerFunc(d.Markets.Report)))

	// Commissions
	mux.Handle("POST /v1/commissions/calculate", operator(http.HandlerFunc(d.Commissions.Calculate)))
	mux.Handle("POST /v1/commissions/validate", operator(http.HandlerFunc(d.Commissions.Validate)))

	// Agents & inventory
	mux.Handle("POST /v1/agents", operator(http.HandlerFunc(d.Registry.RegisterAgent)))
	mux.Handle("GET /v1/agents/{id}", operator(http.HandlerFunc(d.Registry.GetAgent)))
	mux.Handle("POST /v1/agents/{id}/keys", operator(http.HandlerFunc(d.Registry.IssueKey)))
	mux.Handle("GET /v1/agents/{id}/keys", operator(http.HandlerFunc(d.Registry.ListKeys)))
	mux.Handle("DELETE /v1/agents/{id}/keys/{keyID}", operator(http.HandlerFunc(d.Registry.RevokeKey)))
	mux.Handle("POST /v1/agents/{id}/reliability", operator(http.HandlerFunc(d.Agents.AdjustReliability)))
	mux.Handle("GET /v1/agents/{id}/reliability", operator(http.HandlerFunc(d.Agents.ReliabilityHistory)))
	mux.Handle("POST /v1/properties", operator(http.HandlerFunc(d.Registry.CreateProperty)))

	// Inquiries
	mux.Handle("POST /v1/inquiries", agent(http.HandlerFunc(d.Agents.RecordInquiry)))
	mux.Handle("POST /v1/inquiries/resolve", operator(http.HandlerFunc(d.Agents.ResolveInquiry)))

	return mux
}
