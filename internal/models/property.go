package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property is a listing, either owned by the platform or supplied by an agent.
type Property struct {
	ID              string          `json:"id"`
	Location        string          `json:"location"`
	Bedrooms        int             `json:"bedrooms"`
	Price           decimal.Decimal `json:"price"`
	DealKind        DealType        `json:"deal_kind"`
	OwnedByPlatform bool            `json:"owned_by_platform"`
	MarketPriced    bool            `json:"market_priced"`
	AgentID         *string         `json:"agent_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
