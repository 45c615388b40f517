package services

import (
	"context"
	"testing"
	"time"

	"github.com/harshaldxb/leadengine/internal/models"
)

func newTestTiering(p *mockPartners, clock *fakeClock) *TieringEngine {
	e := NewTieringEngine(p)
	e.Now = clock.Now
	return e
}

func addDeals(p *mockPartners, agentID, location string, n int, at time.Time) {
	for i := 0; i < n; i++ {
		p.deals = append(p.deals, closedDeal{agentID: agentID, location: location, at: at})
	}
}

func TestTierForDeals(t *testing.T) {
	tests := []struct {
		deals int
		want  models.Tier
	}{
		{0, models.NewAgent},
		{1, models.Tier3},
		{4, models.Tier3},
		{5, models.Tier2},
		{9, models.Tier2},
		{10, models.Tier1},
		{42, models.Tier1},
	}
	for _, tt := range tests {
		if got := TierForDeals(tt.deals); got != tt.want {
			t.Errorf("TierForDeals(%d) = %s, want %s", tt.deals, got, tt.want)
		}
	}
}

func TestComputeTier_OnlyCountsTrailingThreeMonthsInLocation(t *testing.T) {
	clock := newFakeClock()
	p := &mockPartners{agents: []*models.AgentProfile{makeProfile("a1", 90, 0, "MARINA")}}
	now := clock.Now()
	addDeals(p, "a1", "MARINA", 4, now.AddDate(0, -1, 0))
	addDeals(p, "a1", "MARINA", 6, now.AddDate(0, -4, 0))
	addDeals(p, "a1", "JVC", 7, now.AddDate(0, 0, -2))

	tier, err := newTestTiering(p, clock).ComputeTier(context.Background(), "a1", "marina")
	if err != nil {
		t.Fatalf("ComputeTier: %v", err)
	}
	if tier != models.Tier3 {
		t.Fatalf("expected TIER_3 from 4 recent Marina deals, got %s", tier)
	}
}

func TestSelectAgents_OrderAndCap(t *testing.T) {
	clock := newFakeClock()
	now := clock.Now()
	p := &mockPartners{}
	// 12 agents so the cap applies.
	for _, id := range []string{"a01", "a02", "a03", "a04", "a05", "a06", "a07", "a08", "a09", "a10", "a11", "a12"} {
		p.agents = append(p.agents, makeProfile(id, 50, 0, "MARINA"))
	}
	p.agents[11].ReliabilityScore = 80 // a12: new agent, high reliability
	addDeals(p, "a05", "MARINA", 10, now.AddDate(0, 0, -5))
	addDeals(p, "a03", "MARINA", 5, now.AddDate(0, 0, -5))
	addDeals(p, "a07", "MARINA", 5, now.AddDate(0, 0, -5))
	p.agents[6].ReliabilityScore = 70 // a07 beats a03 on reliability
	p.agents[1].DealsClosed = 30      // a02 beats other new agents on lifetime deals

	got, err := newTestTiering(p, clock).SelectAgents(context.Background(), "Marina", 0)
	if err != nil {
		t.Fatalf("SelectAgents: %v", err)
	}
	if len(got) != models.MaxEligibleAgents {
		t.Fatalf("expected %d agents, got %d", models.MaxEligibleAgents, len(got))
	}
	want := []string{"a05", "a07", "a03", "a12", "a02", "a01", "a04", "a06", "a08", "a09"}
	ids := AgentIDs(got)
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s (order %v)", i, want[i], ids[i], ids)
		}
	}
	if got[0].Tier != models.Tier1 || got[1].Tier != models.Tier2 || got[3].Tier != models.NewAgent {
		t.Errorf("unexpected tiers: %s %s %s", got[0].Tier, got[1].Tier, got[3].Tier)
	}
}

func TestSelectAgents_SkipsSuspendedAndOtherLocations(t *testing.T) {
	clock := newFakeClock()
	suspended := makeProfile("a2", 100, 0, "MARINA")
	suspended.Status = models.AgentStatusSuspended
	p := &mockPartners{agents: []*models.AgentProfile{
		makeProfile("a1", 50, 0, "MARINA", "JVC"),
		suspended,
		makeProfile("a3", 100, 0, "DOWNTOWN"),
	}}

	got, err := newTestTiering(p, clock).SelectAgents(context.Background(), "marina ", 10)
	if err != nil {
		t.Fatalf("SelectAgents: %v", err)
	}
	if len(got) != 1 || got[0].Agent.ID != "a1" {
		t.Fatalf("expected only a1, got %v", AgentIDs(got))
	}
}

func TestSelectAgents_EmptyLocationIsNotAnError(t *testing.T) {
	p := &mockPartners{agents: []*models.AgentProfile{makeProfile("a1", 50, 0, "JVC")}}
	got, err := newTestTiering(p, newFakeClock()).SelectAgents(context.Background(), "PALM JUMEIRAH", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}
}
