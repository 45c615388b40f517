package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingGateway struct {
	mu       sync.Mutex
	sent     []string
	fail     map[string]error
	panicOn  string
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (g *recordingGateway) Send(ctx context.Context, agentID string, _ LeadNotification) error {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if agentID == g.panicOn {
		panic("gateway exploded")
	}
	if err := g.fail[agentID]; err != nil {
		return err
	}
	g.mu.Lock()
	g.sent = append(g.sent, agentID)
	g.mu.Unlock()
	return nil
}

type recordingMarker struct {
	mu     sync.Mutex
	marked map[string]int
}

func (m *recordingMarker) MarkNotified(_ context.Context, auctionID uuid.UUID, agentID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marked == nil {
		m.marked = make(map[string]int)
	}
	m.marked[auctionID.String()+"/"+agentID]++
	return nil
}

func TestDispatcher_IsolatesFailuresAndMarksDelivered(t *testing.T) {
	gw := &recordingGateway{
		fail:    map[string]error{"a2": errors.New("connection refused")},
		panicOn: "a3",
	}
	marker := &recordingMarker{}
	disp := NewDispatcher(gw, marker, 4, nil)

	auctionID := uuid.New()
	if err := disp.Dispatch(auctionID, []string{"a1", "a2", "a3", "a4"}, LeadNotification{AuctionID: auctionID}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	disp.Close()

	if len(gw.sent) != 2 {
		t.Fatalf("expected 2 successful deliveries, got %v", gw.sent)
	}
	for _, id := range []string{"a1", "a4"} {
		if marker.marked[auctionID.String()+"/"+id] != 1 {
			t.Errorf("expected %s marked once, got %d", id, marker.marked[auctionID.String()+"/"+id])
		}
	}
	for _, id := range []string{"a2", "a3"} {
		if marker.marked[auctionID.String()+"/"+id] != 0 {
			t.Errorf("expected %s not marked", id)
		}
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	gw := &recordingGateway{delay: 20 * time.Millisecond}
	disp := NewDispatcher(gw, nil, 3, nil)

	agents := make([]string, 12)
	for i := range agents {
		agents[i] = uuid.NewString()
	}
	if err := disp.Dispatch(uuid.New(), agents, LeadNotification{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	disp.Close()

	if len(gw.sent) != 12 {
		t.Fatalf("expected 12 deliveries, got %d", len(gw.sent))
	}
	if peak := gw.peak.Load(); peak > 3 {
		t.Fatalf("expected at most 3 concurrent sends, saw %d", peak)
	}
}

func TestDispatcher_ReturnsBeforeDelivery(t *testing.T) {
	gw := &recordingGateway{delay: 200 * time.Millisecond}
	disp := NewDispatcher(gw, nil, 2, nil)
	defer disp.Close()

	start := time.Now()
	if err := disp.Dispatch(uuid.New(), []string{"a1", "a2"}, LeadNotification{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Dispatch blocked for %v", elapsed)
	}
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	disp := NewDispatcher(&recordingGateway{}, nil, 1, nil)
	disp.Close()
	if err := disp.Dispatch(uuid.New(), []string{"a1"}, LeadNotification{}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}
