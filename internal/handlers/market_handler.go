package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/harshaldxb/leadengine/internal/models"
)

// Markets builds location reports.
type Markets interface {
	Report(ctx context.Context, location string) (*models.MarketReport, error)
}

type MarketHandler struct {
	Markets Markets
	Logger  *slog.Logger
}

// Report handles GET /v1/markets/{location}/report.
func (h *MarketHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.Markets.Report(r.Context(), r.PathValue("location"))
	if err != nil {
		writeError(w, h.Logger, "market report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
