package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/harshaldxb/leadengine/internal/middleware"
	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/services"
)

// Reliability adjusts and reports agent trust scores.
type Reliability interface {
	Adjust(ctx context.Context, agentID string, delta float64, reason string) (float64, error)
	History(ctx context.Context, agentID string) ([]*models.ReliabilityEvent, error)
}

// Inquiries tracks which agent first engaged a client.
type Inquiries interface {
	Record(ctx context.Context, clientID, agentID string) (*models.InquiryAttribution, error)
	Resolve(ctx context.Context, clientID, winningAgentID string) (*string, error)
}

// AgentHandler serves reliability and inquiry endpoints.
type AgentHandler struct {
	Reliability Reliability
	Inquiries   Inquiries
	Validator   RequestValidator
	Logger      *slog.Logger
}

// --- POST /v1/agents/{id}/reliability ---

type adjustRequest struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}

type reliabilityResponse struct {
	AgentID          string  `json:"agent_id"`
	ReliabilityScore float64 `json:"reliability_score"`
}

func (h *AgentHandler) AdjustReliability(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	var req adjustRequest
	if !decodeBody(w, r, h.Validator, services.RequestAdjustReliability, &req) {
		return
	}
	score, err := h.Reliability.Adjust(r.Context(), agentID, req.Delta, req.Reason)
	if err != nil {
		writeError(w, h.Logger, "adjust reliability", err)
		return
	}
	writeJSON(w, http.StatusOK, reliabilityResponse{AgentID: agentID, ReliabilityScore: score})
}

// --- GET /v1/agents/{id}/reliability ---

func (h *AgentHandler) ReliabilityHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.Reliability.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "reliability history", err)
		return
	}
	if events == nil {
		events = []*models.ReliabilityEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- POST /v1/inquiries ---

type recordInquiryRequest struct {
	ClientID string `json:"client_id"`
}

// RecordInquiry attributes a client to the calling agent. 201 when the
// caller holds the attribution, 409 when another agent engaged first.
func (h *AgentHandler) RecordInquiry(w http.ResponseWriter, r *http.Request) {
	ag := middleware.AgentFromCtx(r.Context())
	if ag == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req recordInquiryRequest
	if !decodeBody(w, r, h.Validator, services.RequestRecordInquiry, &req) {
		return
	}
	att, err := h.Inquiries.Record(r.Context(), req.ClientID, ag.ID)
	if err != nil {
		writeError(w, h.Logger, "record inquiry", err)
		return
	}
	if att.AgentID != ag.ID {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "client already attributed"})
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// --- POST /v1/inquiries/resolve ---

type resolveInquiryRequest struct {
	ClientID       string `json:"client_id"`
	WinningAgentID string `json:"winning_agent_id"`
}

type resolveInquiryResponse struct {
	InquiryAgentID *string `json:"inquiry_agent_id"`
}

func (h *AgentHandler) ResolveInquiry(w http.ResponseWriter, r *http.Request) {
	var req resolveInquiryRequest
	if !decodeBody(w, r, h.Validator, services.RequestResolveInquiry, &req) {
		return
	}
	id, err := h.Inquiries.Resolve(r.Context(), req.ClientID, req.WinningAgentID)
	if err != nil {
		writeError(w, h.Logger, "resolve inquiry", err)
		return
	}
	writeJSON(w, http.StatusOK, resolveInquiryResponse{InquiryAgentID: id})
}
