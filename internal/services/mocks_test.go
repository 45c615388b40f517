package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// ---------------------------------------------------------------------------
// Fake clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Mock AuctionStore: a mutex is the linearization point, like the row lock
// in the Postgres store.
// ---------------------------------------------------------------------------

type mockAuctionStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*models.Auction
}

func newMockAuctionStore() *mockAuctionStore {
	return &mockAuctionStore{auctions: make(map[uuid.UUID]*models.Auction)}
}

func cloneAuction(a *models.Auction) *models.Auction {
	cp := *a
	cp.EligibleAgents = append([]string(nil), a.EligibleAgents...)
	cp.Responses = append([]models.AuctionResponse(nil), a.Responses...)
	return &cp
}

func (m *mockAuctionStore) CreateAuction(_ context.Context, a *models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (m *mockAuctionStore) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneAuction(a), nil
}

func (m *mockAuctionStore) RecordSubmission(_ context.Context, id uuid.UUID, resp models.AuctionResponse) (models.AuctionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return resp, apperr.ErrNotFound
	}
	if a.Status == models.AuctionExpired {
		return resp, &apperr.ExpiredError{AuctionID: id.String(), Deadline: a.Deadline}
	}
	resp.Rank = len(a.Responses) + 1
	if a.Status.CanTransitionTo(models.AuctionAssigned) {
		resp.IsWinner = true
		agent, prop, rt := resp.AgentID, resp.PropertyID, resp.ResponseTime
		a.Status = models.AuctionAssigned
		a.WinnerAgentID = &agent
		a.WinnerPropertyID = &prop
		a.WinnerResponseTime = &rt
	}
	a.Responses = append(a.Responses, resp)
	a.Version++
	return resp, nil
}

func (m *mockAuctionStore) MarkExpired(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.auctions[id]; ok && a.Status.CanTransitionTo(models.AuctionExpired) {
		a.Status = models.AuctionExpired
		a.Version++
	}
	return nil
}

func (m *mockAuctionStore) ClaimDeal(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if a.Status != models.AuctionAssigned || a.DealClosedAt != nil {
		return apperr.NewConflict("auction", id.String(), "deal already being resolved")
	}
	a.DealClosedAt = &at
	return nil
}

func (m *mockAuctionStore) ReleaseDeal(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.auctions[id]; ok {
		a.DealClosedAt = nil
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock property catalog / inventory
// ---------------------------------------------------------------------------

type mockProperties struct {
	props   map[string]*models.Property
	owned   []models.Property
	findErr error
}

func (m *mockProperties) GetByID(_ context.Context, id string) (*models.Property, error) {
	p, ok := m.props[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (m *mockProperties) Find(_ context.Context, _ models.Requirement) ([]models.Property, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.owned, nil
}

// ---------------------------------------------------------------------------
// Mock PartnerStore
// ---------------------------------------------------------------------------

type closedDeal struct {
	agentID, location, dealID string
	at                        time.Time
}

type mockPartners struct {
	mu     sync.Mutex
	agents []*models.AgentProfile
	deals  []closedDeal
	events []*models.ReliabilityEvent
}

func (m *mockPartners) ListByLocation(_ context.Context, location string) ([]*models.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AgentProfile
	for _, ag := range m.agents {
		if ag.Status == models.AgentStatusActive && ag.Serves(location) {
			out = append(out, ag)
		}
	}
	return out, nil
}

func (m *mockPartners) ClosedDealCounts(_ context.Context, location string, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, d := range m.deals {
		if d.location == location && !d.at.Before(since) {
			counts[d.agentID]++
		}
	}
	return counts, nil
}

func (m *mockPartners) RecordClosedDeal(_ context.Context, agentID, location, dealID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals = append(m.deals, closedDeal{agentID: agentID, location: location, dealID: dealID, at: at})
	return nil
}

func (m *mockPartners) AdjustReliability(_ context.Context, agentID string, delta float64, reason string, at time.Time) (*models.ReliabilityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ag := range m.agents {
		if ag.ID != agentID {
			continue
		}
		ev := &models.ReliabilityEvent{
			AgentID:     agentID,
			Delta:       delta,
			Reason:      reason,
			ScoreBefore: ag.ReliabilityScore,
			ScoreAfter:  ClampScore(ag.ReliabilityScore + delta),
			CreatedAt:   at,
		}
		ag.ReliabilityScore = ev.ScoreAfter
		m.events = append(m.events, ev)
		return ev, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockPartners) ListReliabilityEvents(_ context.Context, agentID string) ([]*models.ReliabilityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ReliabilityEvent
	for _, ev := range m.events {
		if ev.AgentID == agentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockPartners) score(agentID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ag := range m.agents {
		if ag.ID == agentID {
			return ag.ReliabilityScore
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Mock InquiryStore
// ---------------------------------------------------------------------------

type mockInquiries struct {
	mu    sync.Mutex
	items map[string]*models.InquiryAttribution
	takes int
}

func newMockInquiries() *mockInquiries {
	return &mockInquiries{items: make(map[string]*models.InquiryAttribution)}
}

func (m *mockInquiries) CreateIfAbsent(_ context.Context, a *models.InquiryAttribution) (*models.InquiryAttribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.items[a.ClientID]; ok && cur.ActiveAt(a.CreatedAt) {
		cp := *cur
		return &cp, nil
	}
	cp := *a
	m.items[a.ClientID] = &cp
	return a, nil
}

func (m *mockInquiries) Take(_ context.Context, clientID string) (*models.InquiryAttribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takes++
	a, ok := m.items[clientID]
	if !ok {
		return nil, nil
	}
	delete(m.items, clientID)
	return a, nil
}

// ---------------------------------------------------------------------------
// Mock CommissionStore
// ---------------------------------------------------------------------------

type mockCommissions struct {
	mu        sync.Mutex
	records   map[string]*models.CommissionRecord
	createErr error
}

func newMockCommissions() *mockCommissions {
	return &mockCommissions{records: make(map[string]*models.CommissionRecord)}
}

func (m *mockCommissions) CreateCommission(_ context.Context, rec *models.CommissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.records[rec.DealID]; ok {
		return apperr.NewConflict("commission", rec.DealID, "already recorded")
	}
	m.records[rec.DealID] = rec
	return nil
}

func (m *mockCommissions) GetCommission(_ context.Context, dealID string) (*models.CommissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[dealID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return rec, nil
}

// ---------------------------------------------------------------------------
// Mock notifier / gateway
// ---------------------------------------------------------------------------

type dispatchCall struct {
	auctionID uuid.UUID
	agentIDs  []string
	payload   LeadNotification
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (m *mockNotifier) Dispatch(auctionID uuid.UUID, agentIDs []string, n LeadNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatchCall{auctionID: auctionID, agentIDs: agentIDs, payload: n})
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func makeProfile(id string, score float64, deals int, locations ...string) *models.AgentProfile {
	return &models.AgentProfile{
		ID:               id,
		Name:             "Agent " + id,
		ReliabilityScore: score,
		DealsClosed:      deals,
		ServedLocations:  locations,
		Status:           models.AgentStatusActive,
	}
}

func strPtr(s string) *string { return &s }
