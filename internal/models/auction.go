package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota + 1
	AuctionAssigned
	AuctionExpired
)

// Auction timing and capacity constants.
const (
	DefaultAuctionWindow = 30 * time.Minute
	MaxEligibleAgents    = 10
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "ACTIVE"
	case AuctionAssigned:
		return "ASSIGNED"
	case AuctionExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ParseAuctionStatus maps a stored status string back to its enum value.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch s {
	case "ACTIVE":
		return AuctionActive, nil
	case "ASSIGNED":
		return AuctionAssigned, nil
	case "EXPIRED":
		return AuctionExpired, nil
	}
	return 0, fmt.Errorf("unknown auction status %q", s)
}

// Terminal reports whether no further transitions are allowed.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionAssigned || s == AuctionExpired
}

// CanTransitionTo allows only ACTIVE -> ASSIGNED and ACTIVE -> EXPIRED.
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	return s == AuctionActive && (next == AuctionAssigned || next == AuctionExpired)
}

func (s AuctionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AuctionStatus) UnmarshalText(b []byte) error {
	v, err := ParseAuctionStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AuctionResponse is one valid submission, in arrival order.
type AuctionResponse struct {
	AgentID      string        `json:"agent_id"`
	PropertyID   string        `json:"property_id"`
	Rank         int           `json:"rank"`
	ResponseTime time.Duration `json:"response_time_ns"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	IsWinner     bool          `json:"is_winner"`
}

// Auction is a time-boxed competition for one client requirement (a lead).
type Auction struct {
	ID                 uuid.UUID         `json:"id"`
	ClientID           string            `json:"-"`
	Location           string            `json:"location"`
	Bedrooms           int               `json:"bedrooms"`
	BudgetMin          decimal.Decimal   `json:"budget_min"`
	BudgetMax          decimal.Decimal   `json:"budget_max"`
	DealKind           DealType          `json:"deal_kind"`
	Status             AuctionStatus     `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	Deadline           time.Time         `json:"deadline"`
	EligibleAgents     []string          `json:"eligible_agents"`
	Responses          []AuctionResponse `json:"responses"`
	WinnerAgentID      *string           `json:"winner_agent_id,omitempty"`
	WinnerPropertyID   *string           `json:"winner_property_id,omitempty"`
	WinnerResponseTime *time.Duration    `json:"winner_response_time_ns,omitempty"`
	DealClosedAt       *time.Time        `json:"deal_closed_at,omitempty"`
	Version            int64             `json:"version"`
}

// Expired reports whether now is past the deadline.
func (a *Auction) Expired(now time.Time) bool {
	return now.After(a.Deadline)
}

// EffectiveStatus is the status with deadline expiry applied lazily.
func (a *Auction) EffectiveStatus(now time.Time) AuctionStatus {
	if a.Status == AuctionActive && a.Expired(now) {
		return AuctionExpired
	}
	return a.Status
}

// Requirement returns the requirement snapshot held by the auction.
func (a *Auction) Requirement() Requirement {
	return Requirement{
		ClientID:  a.ClientID,
		Location:  a.Location,
		Bedrooms:  a.Bedrooms,
		BudgetMin: a.BudgetMin,
		BudgetMax: a.BudgetMax,
		DealKind:  a.DealKind,
	}
}
