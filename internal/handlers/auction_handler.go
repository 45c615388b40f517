package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/middleware"
	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/services"
)

// Auctions is the coordinator surface the handler drives.
type Auctions interface {
	CreateAuction(ctx context.Context, req models.Requirement) (*services.CreateResult, error)
	SubmitResponse(ctx context.Context, agentID string, auctionID uuid.UUID, propertyID string) (*services.SubmitResult, error)
	GetAuctionStatus(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)
	ResolveDeal(ctx context.Context, auctionID uuid.UUID, dealValue decimal.Decimal, dealType models.DealType) (*models.CommissionRecord, error)
	ResolveDirectDeal(ctx context.Context, dealID string, dealValue decimal.Decimal, dealType models.DealType) (*models.CommissionRecord, error)
}

// AuctionHandler serves /v1/auctions and /v1/deals endpoints.
type AuctionHandler struct {
	Auctions  Auctions
	Validator RequestValidator
	Logger    *slog.Logger
}

// --- POST /v1/auctions ---

// CreateAuction opens an auction, or reports a direct match on owned
// inventory. 201 for a new auction, 200 for a direct match.
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req models.Requirement
	if !decodeBody(w, r, h.Validator, services.RequestCreateAuction, &req) {
		return
	}
	res, err := h.Auctions.CreateAuction(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, "create auction", err)
		return
	}
	status := http.StatusCreated
	if res.Kind == services.CreateDirectMatch {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// --- GET /v1/auctions/{id} ---

// GetAuction returns the auction with expiry applied. Agents only see their
// own submissions.
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Auctions.GetAuctionStatus(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get auction", err)
		return
	}
	if ag := middleware.AgentFromCtx(r.Context()); ag != nil {
		own := []models.AuctionResponse{}
		for _, resp := range a.Responses {
			if resp.AgentID == ag.ID {
				own = append(own, resp)
			}
		}
		a.Responses = own
		a.EligibleAgents = nil
	}
	writeJSON(w, http.StatusOK, a)
}

// --- POST /v1/auctions/{id}/responses ---

type submitResponseRequest struct {
	PropertyID string `json:"property_id"`
}

var submitStatusCodes = map[services.SubmitStatus]int{
	services.SubmitLeadWon:          http.StatusOK,
	services.SubmitLeadLost:         http.StatusOK,
	services.SubmitAlreadyAssigned:  http.StatusConflict,
	services.SubmitAuctionExpired:   http.StatusGone,
	services.SubmitPropertyMismatch: http.StatusUnprocessableEntity,
	services.SubmitNotFound:         http.StatusNotFound,
}

// SubmitResponse records the calling agent's property for the auction.
func (h *AuctionHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	ag := middleware.AgentFromCtx(r.Context())
	if ag == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req submitResponseRequest
	if !decodeBody(w, r, h.Validator, services.RequestSubmitResponse, &req) {
		return
	}
	res, err := h.Auctions.SubmitResponse(r.Context(), ag.ID, id, req.PropertyID)
	if err != nil {
		writeError(w, h.Logger, "submit response", err)
		return
	}
	code, ok := submitStatusCodes[res.Status]
	if !ok {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

// --- POST /v1/auctions/{id}/resolve ---

type resolveDealRequest struct {
	DealValue decimal.Decimal `json:"deal_value"`
	DealType  models.DealType `json:"deal_type"`
}

// ResolveDeal records the commission for an assigned auction.
func (h *AuctionHandler) ResolveDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resolveDealRequest
	if !decodeBody(w, r, h.Validator, services.RequestResolveDeal, &req) {
		return
	}
	rec, err := h.Auctions.ResolveDeal(r.Context(), id, req.DealValue, req.DealType)
	if err != nil {
		writeError(w, h.Logger, "resolve deal", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// --- POST /v1/deals/{id}/direct ---

// ResolveDirectDeal records a platform-only commission for a deal on owned
// inventory.
func (h *AuctionHandler) ResolveDirectDeal(w http.ResponseWriter, r *http.Request) {
	dealID := r.PathValue("id")
	var req resolveDealRequest
	if !decodeBody(w, r, h.Validator, services.RequestResolveDeal, &req) {
		return
	}
	rec, err := h.Auctions.ResolveDirectDeal(r.Context(), dealID, req.DealValue, req.DealType)
	if err != nil {
		writeError(w, h.Logger, "resolve direct deal", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
