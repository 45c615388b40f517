package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// Reliability deltas applied by the auction flow.
const (
	LeadWonReward        = 5.0
	WrongPropertyPenalty = -3.0
	BypassAttemptPenalty = -3.0
)

// ReliabilityStore applies a clamped score change and its audit entry as one
// atomic write. Returns apperr.ErrNotFound for unknown agents.
type ReliabilityStore interface {
	AdjustReliability(ctx context.Context, agentID string, delta float64, reason string, at time.Time) (*models.ReliabilityEvent, error)
	ListReliabilityEvents(ctx context.Context, agentID string) ([]*models.ReliabilityEvent, error)
}

// ReliabilityLedger owns per-agent trust scores.
type ReliabilityLedger struct {
	Store  ReliabilityStore
	Now    func() time.Time
	Logger *slog.Logger
}

// NewReliabilityLedger returns a ledger using the wall clock.
func NewReliabilityLedger(store ReliabilityStore, logger *slog.Logger) *ReliabilityLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReliabilityLedger{Store: store, Now: time.Now, Logger: logger}
}

// ClampScore bounds a reliability score to [0,100].
func ClampScore(v float64) float64 {
	return math.Max(models.MinReliability, math.Min(models.MaxReliability, v))
}

// Adjust changes the agent's score by delta, clamped to [0,100], and returns
// the resulting score.
func (l *ReliabilityLedger) Adjust(ctx context.Context, agentID string, delta float64, reason string) (float64, error) {
	if strings.TrimSpace(agentID) == "" {
		return 0, apperr.NewValidation("agent_id", "required")
	}
	if strings.TrimSpace(reason) == "" {
		return 0, apperr.NewValidation("reason", "required")
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0, apperr.NewValidation("delta", "must be a finite number")
	}

	ev, err := l.Store.AdjustReliability(ctx, agentID, delta, reason, l.Now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, apperr.NewNotFound("agent", agentID)
		}
		return 0, fmt.Errorf("adjust reliability: %w", err)
	}
	l.Logger.Info("reliability adjusted",
		"agent_id", agentID, "delta", delta, "reason", reason,
		"score_before", ev.ScoreBefore, "score_after", ev.ScoreAfter)
	return ev.ScoreAfter, nil
}

// History returns the agent's adjustment audit trail, oldest first.
func (l *ReliabilityLedger) History(ctx context.Context, agentID string) ([]*models.ReliabilityEvent, error) {
	return l.Store.ListReliabilityEvents(ctx, agentID)
}
