package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// CreateKind tells a caller whether a requirement went to auction.
type CreateKind string

const (
	CreateDirectMatch    CreateKind = "DIRECT_MATCH"
	CreateAuctionCreated CreateKind = "AUCTION_CREATED"
)

// SubmitStatus is the outcome of an agent's submission.
type SubmitStatus string

const (
	SubmitLeadWon          SubmitStatus = "LEAD_WON"
	SubmitLeadLost         SubmitStatus = "LEAD_LOST"
	SubmitAuctionExpired   SubmitStatus = "AUCTION_EXPIRED"
	SubmitAlreadyAssigned  SubmitStatus = "ALREADY_ASSIGNED"
	SubmitPropertyMismatch SubmitStatus = "PROPERTY_MISMATCH"
	SubmitNotFound         SubmitStatus = "NOT_FOUND"
)

// CreateResult is returned by CreateAuction.
type CreateResult struct {
	Kind       CreateKind        `json:"kind"`
	Scenario   models.Scenario   `json:"scenario,omitempty"`
	Properties []models.Property `json:"properties,omitempty"`
	AuctionID  uuid.UUID         `json:"auction_id,omitempty"`
	Deadline   time.Time         `json:"deadline,omitempty"`
	Agents     []RankedAgent     `json:"agents,omitempty"`
}

// SubmitResult is returned by SubmitResponse.
type SubmitResult struct {
	Status       SubmitStatus  `json:"status"`
	ResponseTime time.Duration `json:"response_time_ns,omitempty"`
	Rank         int           `json:"rank,omitempty"`
}

// InventoryMatcher finds platform-owned listings that satisfy a requirement.
type InventoryMatcher interface {
	Find(ctx context.Context, req models.Requirement) ([]models.Property, error)
}

// PropertyCatalog looks up any listing by id. Returns apperr.ErrNotFound
// for unknown ids.
type PropertyCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Property, error)
}

// AuctionStore persists auctions. RecordSubmission is the only writer of the
// winner and must be linearizable per auction.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a *models.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// RecordSubmission appends resp and, if the auction is still ACTIVE,
	// assigns it to resp's agent in the same step. The stored response is
	// returned with its rank and winner flag set. An EXPIRED auction is
	// left untouched and yields *apperr.ExpiredError.
	RecordSubmission(ctx context.Context, id uuid.UUID, resp models.AuctionResponse) (models.AuctionResponse, error)
	// MarkExpired moves an ACTIVE auction to EXPIRED. It is a no-op otherwise.
	MarkExpired(ctx context.Context, id uuid.UUID) error
	// ClaimDeal stamps deal_closed_at on an ASSIGNED auction that has not
	// been claimed yet. A second claim yields *apperr.ConflictError, so at
	// most one resolution proceeds per auction.
	ClaimDeal(ctx context.Context, id uuid.UUID, at time.Time) error
	// ReleaseDeal clears a claim whose resolution failed.
	ReleaseDeal(ctx context.Context, id uuid.UUID) error
}

// CommissionStore keeps commission records write-once per deal. A second
// create for the same deal returns *apperr.ConflictError.
type CommissionStore interface {
	CreateCommission(ctx context.Context, rec *models.CommissionRecord) error
	GetCommission(ctx context.Context, dealID string) (*models.CommissionRecord, error)
}

// ClosedDealRecorder feeds closed deals back into tiering.
type ClosedDealRecorder interface {
	RecordClosedDeal(ctx context.Context, agentID, location, dealID string, at time.Time) error
}

// AgentSelector ranks the agents to alert for a location.
type AgentSelector interface {
	SelectAgents(ctx context.Context, location string, limit int) ([]RankedAgent, error)
}

// LeadNotifier hands alerts off for out-of-band delivery.
type LeadNotifier interface {
	Dispatch(auctionID uuid.UUID, agentIDs []string, n LeadNotification) error
}

// ReliabilityAdjuster applies score deltas.
type ReliabilityAdjuster interface {
	Adjust(ctx context.Context, agentID string, delta float64, reason string) (float64, error)
}

// LoyaltyResolver consumes a client's inquiry attribution. Reinstate puts
// back an attribution that Resolve handed out for a deal that then failed.
type LoyaltyResolver interface {
	Resolve(ctx context.Context, clientID, winningAgentID string) (*string, error)
	Reinstate(ctx context.Context, clientID, agentID string) error
}

// AuctionDeps are the collaborators of an AuctionCoordinator.
type AuctionDeps struct {
	Auctions    AuctionStore
	Inventory   InventoryMatcher
	Properties  PropertyCatalog
	Selector    AgentSelector
	Notifier    LeadNotifier
	Reliability ReliabilityAdjuster
	Loyalty     LoyaltyResolver
	Calculator  *CommissionCalculator
	Commissions CommissionStore
	Deals       ClosedDealRecorder
}

// AuctionCoordinator runs the lead lifecycle: creation, fan-out, winner
// arbitration and deal resolution.
type AuctionCoordinator struct {
	AuctionDeps
	Window time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// NewAuctionCoordinator returns a coordinator with the 30 minute window.
func NewAuctionCoordinator(deps AuctionDeps, logger *slog.Logger) *AuctionCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Calculator == nil {
		deps.Calculator = NewCommissionCalculator(logger)
	}
	return &AuctionCoordinator{
		AuctionDeps: deps,
		Window:      models.DefaultAuctionWindow,
		Now:         time.Now,
		Logger:      logger,
	}
}

// CreateAuction short-circuits to owned inventory when it satisfies req;
// otherwise it opens an auction, selects agents and queues their alerts.
// It returns before any alert is delivered.
func (c *AuctionCoordinator) CreateAuction(ctx context.Context, req models.Requirement) (*CreateResult, error) {
	req, err := NormalizeRequirement(req)
	if err != nil {
		return nil, err
	}

	if c.Inventory != nil {
		owned, err := c.Inventory.Find(ctx, req)
		if err != nil {
			c.Logger.Warn("inventory lookup failed, opening auction", "location", req.Location, "error", err)
		} else if len(owned) > 0 {
			c.Logger.Info("requirement matched owned inventory", "location", req.Location, "matches", len(owned))
			return &CreateResult{Kind: CreateDirectMatch, Scenario: models.ScenarioHarshalOnly, Properties: owned}, nil
		}
	}

	ranked, err := c.Selector.SelectAgents(ctx, req.Location, models.MaxEligibleAgents)
	if err != nil {
		return nil, fmt.Errorf("select agents: %w", err)
	}

	now := c.Now().UTC()
	a := &models.Auction{
		ID:             uuid.New(),
		ClientID:       req.ClientID,
		Location:       req.Location,
		Bedrooms:       req.Bedrooms,
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		DealKind:       req.DealKind,
		Status:         models.AuctionActive,
		CreatedAt:      now,
		Deadline:       now.Add(c.Window),
		EligibleAgents: AgentIDs(ranked),
		Responses:      []models.AuctionResponse{},
	}
	if err := c.Auctions.CreateAuction(ctx, a); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	if len(a.EligibleAgents) == 0 {
		c.Logger.Warn("no agents serve location", "auction_id", a.ID, "location", a.Location)
	} else if err := c.Notifier.Dispatch(a.ID, a.EligibleAgents, NewLeadNotification(a)); err != nil {
		c.Logger.Error("queue lead alerts failed", "auction_id", a.ID, "error", err)
	}
	c.Logger.Info("auction created", "auction_id", a.ID, "location", a.Location, "agents", len(a.EligibleAgents), "deadline", a.Deadline)

	return &CreateResult{
		Kind:      CreateAuctionCreated,
		AuctionID: a.ID,
		Deadline:  a.Deadline,
		Agents:    ranked,
	}, nil
}

// PropertyMatches reports whether p satisfies the auction's requirement:
// same location, bedrooms within one, price within budget.
func PropertyMatches(p *models.Property, a *models.Auction) bool {
	if models.NormalizeLocation(p.Location) != models.NormalizeLocation(a.Location) {
		return false
	}
	diff := p.Bedrooms - a.Bedrooms
	if diff < -1 || diff > 1 {
		return false
	}
	return !p.Price.LessThan(a.BudgetMin) && !p.Price.GreaterThan(a.BudgetMax)
}

// SubmitResponse arbitrates an agent's property submission. The first
// matching submission to reach the store wins.
func (c *AuctionCoordinator) SubmitResponse(ctx context.Context, agentID string, auctionID uuid.UUID, propertyID string) (*SubmitResult, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperr.NewValidation("agent_id", "required")
	}
	if strings.TrimSpace(propertyID) == "" {
		return nil, apperr.NewValidation("property_id", "required")
	}

	a, err := c.Auctions.GetAuction(ctx, auctionID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &SubmitResult{Status: SubmitNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}

	now := c.Now().UTC()
	if a.Expired(now) {
		c.expire(ctx, a)
		return &SubmitResult{Status: SubmitAuctionExpired}, nil
	}
	switch a.Status {
	case models.AuctionAssigned:
		return &SubmitResult{Status: SubmitAlreadyAssigned}, nil
	case models.AuctionExpired:
		return &SubmitResult{Status: SubmitAuctionExpired}, nil
	}

	p, err := c.Properties.GetByID(ctx, propertyID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &SubmitResult{Status: SubmitNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if !PropertyMatches(p, a) {
		c.adjust(ctx, agentID, WrongPropertyPenalty, models.ReasonWrongProperty)
		c.Logger.Info("property mismatch", "auction_id", a.ID, "agent_id", agentID, "property_id", propertyID)
		return &SubmitResult{Status: SubmitPropertyMismatch}, nil
	}

	stored, err := c.Auctions.RecordSubmission(ctx, a.ID, models.AuctionResponse{
		AgentID:      agentID,
		PropertyID:   propertyID,
		ResponseTime: now.Sub(a.CreatedAt),
		SubmittedAt:  now,
	})
	if apperr.IsExpired(err) {
		return &SubmitResult{Status: SubmitAuctionExpired}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	if !stored.IsWinner {
		c.Logger.Info("lead lost", "auction_id", a.ID, "agent_id", agentID, "rank", stored.Rank)
		return &SubmitResult{Status: SubmitLeadLost, ResponseTime: stored.ResponseTime, Rank: stored.Rank}, nil
	}
	c.adjust(ctx, agentID, LeadWonReward, models.ReasonLeadWon)
	c.Logger.Info("lead won", "auction_id", a.ID, "agent_id", agentID, "response_time", stored.ResponseTime)
	return &SubmitResult{Status: SubmitLeadWon, ResponseTime: stored.ResponseTime, Rank: stored.Rank}, nil
}

// GetAuctionStatus returns the auction with expiry applied and persisted.
func (c *AuctionCoordinator) GetAuctionStatus(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	a, err := c.Auctions.GetAuction(ctx, auctionID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NewNotFound("auction", auctionID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	if a.EffectiveStatus(c.Now()) == models.AuctionExpired && a.Status == models.AuctionActive {
		c.expire(ctx, a)
		a.Status = models.AuctionExpired
	}
	return a, nil
}

// ResolveDeal records the commission for an assigned auction. The request
// is validated and the deal claimed before the client's inquiry attribution
// is consumed, so a rejected or concurrent resolve never spends it.
func (c *AuctionCoordinator) ResolveDeal(ctx context.Context, auctionID uuid.UUID, dealValue decimal.Decimal, dealType models.DealType) (*models.CommissionRecord, error) {
	a, err := c.GetAuctionStatus(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AuctionAssigned || a.WinnerAgentID == nil {
		return nil, apperr.NewConflict("auction", auctionID.String(), "not assigned")
	}
	if dealType == "" {
		dealType = a.DealKind
	}
	if !dealValue.IsPositive() {
		return nil, apperr.NewValidation("deal_value", "must be positive")
	}
	if _, err := CommissionPool(dealValue, dealType); err != nil {
		return nil, err
	}

	dealID := auctionID.String()
	if _, err := c.Commissions.GetCommission(ctx, dealID); err == nil {
		return nil, apperr.NewConflict("commission", dealID, "already recorded")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("get commission: %w", err)
	}

	now := c.Now().UTC()
	if err := c.Auctions.ClaimDeal(ctx, a.ID, now); err != nil {
		return nil, err
	}

	winner := *a.WinnerAgentID
	inquiryAgent, err := c.Loyalty.Resolve(ctx, a.ClientID, winner)
	if err != nil {
		c.release(ctx, a, nil)
		return nil, err
	}
	scenario := SelectScenario(false, inquiryAgent)
	participants := map[models.Role]string{models.RoleAgent: winner}
	if inquiryAgent != nil {
		participants = map[models.Role]string{
			models.RoleInquiryAgent:  *inquiryAgent,
			models.RolePropertyAgent: winner,
		}
	}

	rec, err := c.Calculator.Calculate(dealValue, dealType, scenario, participants)
	if err != nil {
		c.release(ctx, a, inquiryAgent)
		return nil, err
	}
	rec.DealID = dealID
	if err := c.Commissions.CreateCommission(ctx, rec); err != nil {
		c.release(ctx, a, inquiryAgent)
		return nil, err
	}

	if c.Deals != nil {
		if err := c.Deals.RecordClosedDeal(ctx, winner, a.Location, dealID, now); err != nil {
			c.Logger.Error("record closed deal failed", "auction_id", a.ID, "agent_id", winner, "error", err)
		}
	}
	c.Logger.Info("deal resolved", "auction_id", a.ID, "scenario", scenario, "pool", rec.Pool.String())
	return rec, nil
}

// release undoes a claimed resolution that failed before its commission
// was stored.
func (c *AuctionCoordinator) release(ctx context.Context, a *models.Auction, inquiryAgent *string) {
	if inquiryAgent != nil {
		if err := c.Loyalty.Reinstate(ctx, a.ClientID, *inquiryAgent); err != nil {
			c.Logger.Error("reinstate inquiry attribution failed", "auction_id", a.ID, "client_id", a.ClientID, "agent_id", *inquiryAgent, "error", err)
		}
	}
	if err := c.Auctions.ReleaseDeal(ctx, a.ID); err != nil {
		c.Logger.Error("release deal claim failed", "auction_id", a.ID, "error", err)
	}
}

// ResolveDirectDeal records a HARSHAL_ONLY commission for a deal closed on
// owned inventory without an auction.
func (c *AuctionCoordinator) ResolveDirectDeal(ctx context.Context, dealID string, dealValue decimal.Decimal, dealType models.DealType) (*models.CommissionRecord, error) {
	if strings.TrimSpace(dealID) == "" {
		return nil, apperr.NewValidation("deal_id", "required")
	}
	rec, err := c.Calculator.Calculate(dealValue, dealType, models.ScenarioHarshalOnly, nil)
	if err != nil {
		return nil, err
	}
	rec.DealID = dealID
	if err := c.Commissions.CreateCommission(ctx, rec); err != nil {
		return nil, err
	}
	c.Logger.Info("direct deal resolved", "deal_id", dealID, "pool", rec.Pool.String())
	return rec, nil
}

func (c *AuctionCoordinator) expire(ctx context.Context, a *models.Auction) {
	if a.Status != models.AuctionActive {
		return
	}
	if err := c.Auctions.MarkExpired(ctx, a.ID); err != nil {
		c.Logger.Warn("mark auction expired failed", "auction_id", a.ID, "error", err)
	}
}

func (c *AuctionCoordinator) adjust(ctx context.Context, agentID string, delta float64, reason string) {
	if c.Reliability == nil {
		return
	}
	if _, err := c.Reliability.Adjust(ctx, agentID, delta, reason); err != nil {
		c.Logger.Warn("reliability adjust failed", "agent_id", agentID, "reason", reason, "error", err)
	}
}
