package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/services"
)

// Calculator computes and checks commission splits.
type Calculator interface {
	Calculate(dealValue decimal.Decimal, dealType models.DealType, scenario models.Scenario, participants map[models.Role]string) (*models.CommissionRecord, error)
	Validate(rec *models.CommissionRecord) error
}

// CommissionHandler serves /v1/commissions endpoints. Nothing here is
// persisted; recorded commissions come from deal resolution.
type CommissionHandler struct {
	Calculator Calculator
	Validator  RequestValidator
	Logger     *slog.Logger
}

type calculateRequest struct {
	DealValue    decimal.Decimal        `json:"deal_value"`
	DealType     models.DealType        `json:"deal_type"`
	Scenario     models.Scenario        `json:"scenario"`
	Participants map[models.Role]string `json:"participants"`
}

// Calculate handles POST /v1/commissions/calculate.
func (h *CommissionHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !decodeBody(w, r, h.Validator, services.RequestCalculateCommission, &req) {
		return
	}
	rec, err := h.Calculator.Calculate(req.DealValue, req.DealType, req.Scenario, req.Participants)
	if err != nil {
		writeError(w, h.Logger, "calculate commission", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Check  string `json:"check,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Validate handles POST /v1/commissions/validate. A failed check is the
// answer, not a server fault, so it is reported with 200.
func (h *CommissionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var rec models.CommissionRecord
	if !decodeBody(w, r, nil, "", &rec) {
		return
	}
	err := h.Calculator.Validate(&rec)
	if err == nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: true})
		return
	}
	var iv *apperr.InvariantViolation
	if apperr.As(err, &iv) {
		writeJSON(w, http.StatusOK, validateResponse{Check: iv.Check, Detail: iv.Detail})
		return
	}
	writeError(w, h.Logger, "validate commission", err)
}
