package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/harshaldxb/leadengine/internal/models"
)

const (
	DefaultNotifyWorkers = 50
	defaultSendTimeout   = 10 * time.Second
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// LeadNotification is the alert body sent to each selected agent. It carries
// the requirement only, never the client identity.
type LeadNotification struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	Location  string          `json:"location"`
	Bedrooms  int             `json:"bedrooms"`
	BudgetMin decimal.Decimal `json:"budget_min"`
	BudgetMax decimal.Decimal `json:"budget_max"`
	DealKind  models.DealType `json:"deal_kind"`
	Deadline  time.Time       `json:"deadline"`
}

// NewLeadNotification builds the alert for an auction.
func NewLeadNotification(a *models.Auction) LeadNotification {
	return LeadNotification{
		AuctionID: a.ID,
		Location:  a.Location,
		Bedrooms:  a.Bedrooms,
		BudgetMin: a.BudgetMin,
		BudgetMax: a.BudgetMax,
		DealKind:  a.DealKind,
		Deadline:  a.Deadline,
	}
}

// NotificationGateway delivers one alert to one agent.
type NotificationGateway interface {
	Send(ctx context.Context, agentID string, n LeadNotification) error
}

// NotifiedMarker records that an agent was alerted for an auction. Marking
// the same pair twice is a no-op.
type NotifiedMarker interface {
	MarkNotified(ctx context.Context, auctionID uuid.UUID, agentID string, at time.Time) error
}

// Dispatcher fans lead alerts out on a bounded pool. Deliveries run on the
// dispatcher's own context so a finished request does not cancel them.
type Dispatcher struct {
	Gateway     NotificationGateway
	Marker      NotifiedMarker
	SendTimeout time.Duration
	Now         func() time.Time
	Logger      *slog.Logger

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher returns a Dispatcher with workers concurrent deliveries.
// marker may be nil.
func NewDispatcher(gateway NotificationGateway, marker NotifiedMarker, workers int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultNotifyWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		Gateway:     gateway,
		Marker:      marker,
		SendTimeout: defaultSendTimeout,
		Now:         time.Now,
		Logger:      logger,
		sem:         semaphore.NewWeighted(int64(workers)),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Dispatch queues n for each agent in order and returns immediately.
func (d *Dispatcher) Dispatch(auctionID uuid.UUID, agentIDs []string, n LeadNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if len(agentIDs) == 0 {
		return nil
	}
	ids := append([]string(nil), agentIDs...)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, id := range ids {
			if err := d.sem.Acquire(d.ctx, 1); err != nil {
				d.Logger.Error("notify: pool unavailable", "auction_id", auctionID, "agent_id", id, "error", err)
				return
			}
			d.wg.Add(1)
			go d.deliver(auctionID, id, n)
		}
	}()
	return nil
}

func (d *Dispatcher) deliver(auctionID uuid.UUID, agentID string, n LeadNotification) {
	defer d.wg.Done()
	defer d.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("notify: delivery panicked", "auction_id", auctionID, "agent_id", agentID, "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(d.ctx, d.SendTimeout)
	defer cancel()

	if err := d.Gateway.Send(ctx, agentID, n); err != nil {
		d.Logger.Warn("notify: delivery failed", "auction_id", auctionID, "agent_id", agentID, "error", err)
		return
	}
	if d.Marker != nil {
		if err := d.Marker.MarkNotified(ctx, auctionID, agentID, d.Now().UTC()); err != nil {
			d.Logger.Warn("notify: mark notified failed", "auction_id", auctionID, "agent_id", agentID, "error", err)
			return
		}
	}
	d.Logger.Info("agent notified", "auction_id", auctionID, "agent_id", agentID)
}

// Close stops accepting work and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	d.cancel()
}
