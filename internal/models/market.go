package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketReport summarizes verified supply and recent auction outcomes for
// one location.
type MarketReport struct {
	Location              string          `json:"location"`
	VerifiedProperties    int             `json:"verified_properties"`
	AveragePrice          decimal.Decimal `json:"average_price"`
	RecentDeals           int             `json:"recent_deals"`
	AvgResponseSeconds    float64         `json:"avg_agent_response_time_seconds"`
	GeneratedAt           time.Time       `json:"generated_at"`
}
