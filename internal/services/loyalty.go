package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// InquiryStore keeps at most one attribution per client.
type InquiryStore interface {
	// CreateIfAbsent stores a unless the client already has an attribution
	// that is still active at a.CreatedAt; it returns whichever is kept.
	CreateIfAbsent(ctx context.Context, a *models.InquiryAttribution) (*models.InquiryAttribution, error)
	// Take removes and returns the client's attribution, or nil if none.
	Take(ctx context.Context, clientID string) (*models.InquiryAttribution, error)
}

// InquiryLoyaltyTracker attributes a client to the agent who brought them.
type InquiryLoyaltyTracker struct {
	Store  InquiryStore
	Window time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// NewInquiryLoyaltyTracker returns a tracker with the 24 hour window.
func NewInquiryLoyaltyTracker(store InquiryStore, logger *slog.Logger) *InquiryLoyaltyTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &InquiryLoyaltyTracker{
		Store:  store,
		Window: models.DefaultInquiryWindow,
		Now:    time.Now,
		Logger: logger,
	}
}

// Record attributes clientID to agentID. An attribution that is still
// active is kept; the first engaging agent wins.
func (t *InquiryLoyaltyTracker) Record(ctx context.Context, clientID, agentID string) (*models.InquiryAttribution, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apperr.NewValidation("client_id", "required")
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, apperr.NewValidation("agent_id", "required")
	}
	now := t.Now().UTC()
	kept, err := t.Store.CreateIfAbsent(ctx, &models.InquiryAttribution{
		ClientID:  clientID,
		AgentID:   agentID,
		CreatedAt: now,
		ExpiresAt: now.Add(t.Window),
		Status:    models.InquiryActive,
	})
	if err != nil {
		return nil, fmt.Errorf("record inquiry: %w", err)
	}
	if kept.AgentID != agentID {
		t.Logger.Info("inquiry already attributed", "client_id", clientID, "agent_id", kept.AgentID, "ignored_agent_id", agentID)
	} else {
		t.Logger.Info("inquiry agent tracked", "client_id", clientID, "agent_id", agentID, "expires_at", kept.ExpiresAt)
	}
	return kept, nil
}

// Resolve consumes the client's attribution and returns the inquiry agent
// only if it was active, unexpired, and names someone other than the
// winning agent.
func (t *InquiryLoyaltyTracker) Resolve(ctx context.Context, clientID, winningAgentID string) (*string, error) {
	a, err := t.Store.Take(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve inquiry: %w", err)
	}
	if a == nil {
		return nil, nil
	}
	if !a.ActiveAt(t.Now()) {
		t.Logger.Info("inquiry attribution expired", "client_id", clientID, "agent_id", a.AgentID)
		return nil, nil
	}
	if a.AgentID == winningAgentID {
		return nil, nil
	}
	t.Logger.Info("inquiry agent qualifies for loyalty share", "client_id", clientID, "agent_id", a.AgentID, "winner_agent_id", winningAgentID)
	id := a.AgentID
	return &id, nil
}

// Reinstate restores an attribution consumed by Resolve for a deal that was
// not recorded. The restored attribution gets a fresh window; if another
// agent engaged the client in between, theirs is kept.
func (t *InquiryLoyaltyTracker) Reinstate(ctx context.Context, clientID, agentID string) error {
	kept, err := t.Record(ctx, clientID, agentID)
	if err != nil {
		return err
	}
	if kept.AgentID != agentID {
		t.Logger.Warn("inquiry attribution not reinstated", "client_id", clientID, "agent_id", agentID, "held_by", kept.AgentID)
	}
	return nil
}
