package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/services"
)

type NotifyAgentArgs struct {
	AuctionID uuid.UUID                 `json:"auction_id"`
	AgentID   string                    `json:"agent_id"`
	Lead      services.LeadNotification `json:"lead"`
}

func (NotifyAgentArgs) Kind() string { return "notify_agent" }

// AgentLookup resolves the webhook for an agent.
type AgentLookup interface {
	GetByID(ctx context.Context, id string) (*models.AgentProfile, error)
}

// NotifyAgentWorker POSTs a lead alert to the agent's webhook. Webhook calls
// share one rate limiter across all workers.
type NotifyAgentWorker struct {
	river.WorkerDefaults[NotifyAgentArgs]
	agents     AgentLookup
	marker     services.NotifiedMarker
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotifyAgentWorker allows perSecond webhook calls per second. marker
// may be nil.
func NewNotifyAgentWorker(agents AgentLookup, marker services.NotifiedMarker, perSecond int, logger *slog.Logger) *NotifyAgentWorker {
	if perSecond <= 0 {
		perSecond = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyAgentWorker{
		agents:     agents,
		marker:     marker,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), perSecond),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

func (w *NotifyAgentWorker) Work(ctx context.Context, job *river.Job[NotifyAgentArgs]) error {
	args := job.Args

	agent, err := w.agents.GetByID(ctx, args.AgentID)
	if err != nil {
		return fmt.Errorf("lookup agent %s: %w", args.AgentID, err)
	}
	if agent.EndpointURL == "" {
		w.logger.Warn("agent has no webhook, dropping alert", "auction_id", args.AuctionID, "agent_id", args.AgentID)
		return river.JobCancel(fmt.Errorf("agent %s has no endpoint", args.AgentID))
	}
	if args.Lead.Deadline.Before(w.now()) {
		w.logger.Info("auction closed before alert was sent", "auction_id", args.AuctionID, "agent_id", args.AgentID)
		return nil
	}

	body, err := json.Marshal(args.Lead)
	if err != nil {
		return river.JobCancel(fmt.Errorf("marshal lead alert: %w", err))
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return river.JobCancel(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling agent webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("agent webhook returned status %d", resp.StatusCode)
	}

	if w.marker != nil {
		if err := w.marker.MarkNotified(ctx, args.AuctionID, args.AgentID, w.now().UTC()); err != nil {
			return fmt.Errorf("mark notified: %w", err)
		}
	}
	w.logger.Info("lead alert delivered", "auction_id", args.AuctionID, "agent_id", args.AgentID)
	return nil
}
