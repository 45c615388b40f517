package models

import (
	"time"
)

// Agent status enums.
const (
	AgentStatusActive    = "ACTIVE"
	AgentStatusSuspended = "SUSPENDED"
)

// Reliability score bounds.
const (
	MinReliability     = 0.0
	MaxReliability     = 100.0
	DefaultReliability = 100.0
)

// AgentProfile is a field agent on the supply side. Tier is derived per
// location and never stored.
type AgentProfile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ReliabilityScore float64   `json:"reliability_score"`
	DealsClosed      int       `json:"deals_closed"`
	ServedLocations  []string  `json:"served_locations"`
	Status           string    `json:"status"`
	EndpointURL      string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Serves reports whether the agent lists location among its served areas.
func (a *AgentProfile) Serves(location string) bool {
	loc := NormalizeLocation(location)
	for _, l := range a.ServedLocations {
		if NormalizeLocation(l) == loc {
			return true
		}
	}
	return false
}

// Tier is an agent's derived rank within a location.
type Tier string

const (
	Tier1    Tier = "TIER_1"
	Tier2    Tier = "TIER_2"
	Tier3    Tier = "TIER_3"
	NewAgent Tier = "NEW_AGENT"
)

// Rank orders tiers for sorting; higher is notified first.
func (t Tier) Rank() int {
	switch t {
	case Tier1:
		return 4
	case Tier2:
		return 3
	case Tier3:
		return 2
	case NewAgent:
		return 1
	}
	return 0
}

// Reliability adjustment reasons.
const (
	ReasonLeadWon              = "LEAD_WON"
	ReasonWrongProperty        = "WRONG_PROPERTY_SUBMITTED"
	ReasonBypassAttempt        = "BYPASS_ATTEMPT"
	ReasonMarketClaimViolation = "MARKET_CLAIM_VIOLATION"
	ReasonMarketClaimVerified  = "MARKET_CLAIM_VERIFIED"
)

// ReliabilityEvent is the audit entry written for every score adjustment.
type ReliabilityEvent struct {
	AgentID     string    `json:"agent_id"`
	Delta       float64   `json:"delta"`
	Reason      string    `json:"reason"`
	ScoreBefore float64   `json:"score_before"`
	ScoreAfter  float64   `json:"score_after"`
	CreatedAt   time.Time `json:"created_at"`
}
