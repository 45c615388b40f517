package registry

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// RequestValidator checks a raw body against the named JSON schema.
type RequestValidator interface {
	ValidateRequest(kind string, body []byte) error
}

// Request/response structs use snake_case JSON.

type RegisterAgentRequest struct {
	Name            string   `json:"name"`
	ServedLocations []string `json:"served_locations"`
	EndpointURL     string   `json:"endpoint_url"`
}

type CreatePropertyRequest struct {
	ID              string          `json:"id"`
	Location        string          `json:"location"`
	Bedrooms        int             `json:"bedrooms"`
	Price           decimal.Decimal `json:"price"`
	DealKind        models.DealType `json:"deal_kind"`
	OwnedByPlatform bool            `json:"owned_by_platform"`
	MarketPriced    bool            `json:"market_priced"`
	AgentID         *string         `json:"agent_id"`
}

// IssuedKeyResponse carries the raw key; it is shown exactly once.
type IssuedKeyResponse struct {
	ID        string `json:"id"`
	AgentID   string `json:"agent_id"`
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
}

type Handler struct {
	svc       Service
	validator RequestValidator
	log       *slog.Logger
}

func NewHandler(svc Service, validator RequestValidator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

// RegisterAgent handles POST /v1/agents.
func (h *Handler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req RegisterAgentRequest
	if !h.decode(w, r, "register_agent", &req) {
		return
	}
	ag, err := h.svc.RegisterAgent(r.Context(), req.Name, req.ServedLocations, req.EndpointURL)
	if err != nil {
		h.fail(w, "register agent", err)
		return
	}
	writeJSON(w, http.StatusCreated, ag)
}

// GetAgent handles GET /v1/agents/{id}.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.svc.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get agent", err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// IssueKey handles POST /v1/agents/{id}/keys.
func (h *Handler) IssueKey(w http.ResponseWriter, r *http.Request) {
	raw, k, err := h.svc.IssueKey(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "issue api key", err)
		return
	}
	writeJSON(w, http.StatusCreated, IssuedKeyResponse{ID: k.ID.String(), AgentID: k.AgentID, Key: raw, KeyPrefix: k.KeyPrefix})
}

// ListKeys handles GET /v1/agents/{id}/keys.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListKeys(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "list api keys", err)
		return
	}
	if keys == nil {
		keys = []*models.AgentAPIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// RevokeKey handles DELETE /v1/agents/{id}/keys/{keyID}.
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := uuid.Parse(r.PathValue("keyID"))
	if err != nil {
		http.Error(w, `{"error":"invalid key id"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.RevokeKey(r.Context(), r.PathValue("id"), keyID); err != nil {
		h.fail(w, "revoke api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateProperty handles POST /v1/properties.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if !h.decode(w, r, "create_property", &req) {
		return
	}
	p, err := h.svc.AddProperty(r.Context(), &models.Property{
		ID:              req.ID,
		Location:        req.Location,
		Bedrooms:        req.Bedrooms,
		Price:           req.Price,
		DealKind:        req.DealKind,
		OwnedByPlatform: req.OwnedByPlatform,
		MarketPriced:    req.MarketPriced,
		AgentID:         req.AgentID,
	})
	if err != nil {
		h.fail(w, "create property", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, kind string, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error":"unreadable body"}`, http.StatusBadRequest)
		return false
	}
	if h.validator != nil {
		if err := h.validator.ValidateRequest(kind, body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return false
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case apperr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case apperr.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"`+op+` failed"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
