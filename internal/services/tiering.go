package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harshaldxb/leadengine/internal/models"
)

// Tier thresholds on trailing closed deals in a location.
const (
	tier1MinDeals = 10
	tier2MinDeals = 5
	tier3MinDeals = 1

	tierLookbackMonths = 3
)

// PartnerStore is the minimal agent interface required for tiering.
type PartnerStore interface {
	// ListByLocation returns ACTIVE agents serving the normalized location.
	ListByLocation(ctx context.Context, location string) ([]*models.AgentProfile, error)
	// ClosedDealCounts returns closed-deal counts per agent in location since the cutoff.
	ClosedDealCounts(ctx context.Context, location string, since time.Time) (map[string]int, error)
}

// RankedAgent is an agent with its tier for the location it was selected for.
type RankedAgent struct {
	Agent       *models.AgentProfile `json:"agent"`
	Tier        models.Tier          `json:"tier"`
	RecentDeals int                  `json:"recent_deals"`
}

// TieringEngine ranks agents serving a location.
type TieringEngine struct {
	Partners PartnerStore
	Now      func() time.Time
}

// NewTieringEngine returns a TieringEngine using the wall clock.
func NewTieringEngine(partners PartnerStore) *TieringEngine {
	return &TieringEngine{Partners: partners, Now: time.Now}
}

// TierForDeals maps a trailing closed-deal count to a tier.
func TierForDeals(n int) models.Tier {
	switch {
	case n >= tier1MinDeals:
		return models.Tier1
	case n >= tier2MinDeals:
		return models.Tier2
	case n >= tier3MinDeals:
		return models.Tier3
	}
	return models.NewAgent
}

func (e *TieringEngine) since() time.Time {
	return e.Now().UTC().AddDate(0, -tierLookbackMonths, 0)
}

// ComputeTier derives agentID's tier in location from deals closed there in
// the trailing three months.
func (e *TieringEngine) ComputeTier(ctx context.Context, agentID, location string) (models.Tier, error) {
	counts, err := e.Partners.ClosedDealCounts(ctx, models.NormalizeLocation(location), e.since())
	if err != nil {
		return "", fmt.Errorf("count closed deals: %w", err)
	}
	return TierForDeals(counts[agentID]), nil
}

// SelectAgents returns up to limit ACTIVE agents serving location, best
// first. A non-positive limit uses MaxEligibleAgents.
func (e *TieringEngine) SelectAgents(ctx context.Context, location string, limit int) ([]RankedAgent, error) {
	if limit <= 0 || limit > models.MaxEligibleAgents {
		limit = models.MaxEligibleAgents
	}
	loc := models.NormalizeLocation(location)
	agents, err := e.Partners.ListByLocation(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	if len(agents) == 0 {
		return []RankedAgent{}, nil
	}
	counts, err := e.Partners.ClosedDealCounts(ctx, loc, e.since())
	if err != nil {
		return nil, fmt.Errorf("count closed deals: %w", err)
	}

	ranked := make([]RankedAgent, 0, len(agents))
	for _, ag := range agents {
		if ag.Status != models.AgentStatusActive || !ag.Serves(loc) {
			continue
		}
		n := counts[ag.ID]
		ranked = append(ranked, RankedAgent{Agent: ag, Tier: TierForDeals(n), RecentDeals: n})
	}
	sortRanked(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// sortRanked orders by tier, reliability and lifetime deals (all descending),
// then agent id ascending so the order is total.
func sortRanked(r []RankedAgent) {
	sort.Slice(r, func(i, j int) bool {
		a, b := r[i], r[j]
		if ra, rb := a.Tier.Rank(), b.Tier.Rank(); ra != rb {
			return ra > rb
		}
		if a.Agent.ReliabilityScore != b.Agent.ReliabilityScore {
			return a.Agent.ReliabilityScore > b.Agent.ReliabilityScore
		}
		if a.Agent.DealsClosed != b.Agent.DealsClosed {
			return a.Agent.DealsClosed > b.Agent.DealsClosed
		}
		return a.Agent.ID < b.Agent.ID
	})
}

// AgentIDs returns the ids of r in order.
func AgentIDs(r []RankedAgent) []string {
	ids := make([]string, len(r))
	for i := range r {
		ids[i] = r[i].Agent.ID
	}
	return ids
}
