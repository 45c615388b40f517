package services

import (
	"context"
	"testing"
	"time"

	"github.com/harshaldxb/leadengine/internal/apperr"
)

func newTestTracker(store *mockInquiries, clock *fakeClock) *InquiryLoyaltyTracker {
	tr := NewInquiryLoyaltyTracker(store, nil)
	tr.Now = clock.Now
	return tr
}

func TestLoyalty_ResolveReturnsInquiryAgent(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(newMockInquiries(), clock)
	ctx := context.Background()

	if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	clock.Advance(2 * time.Hour)

	got, err := tr.Resolve(ctx, "client-1", "agent-B")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || *got != "agent-A" {
		t.Fatalf("expected agent-A, got %v", got)
	}
}

func TestLoyalty_FirstEngagementWins(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(newMockInquiries(), clock)
	ctx := context.Background()

	if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	kept, err := tr.Record(ctx, "client-1", "agent-C")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if kept.AgentID != "agent-A" {
		t.Fatalf("expected existing attribution to agent-A to be kept, got %s", kept.AgentID)
	}
}

func TestLoyalty_ExpiredAttributionCanBeReplaced(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(newMockInquiries(), clock)
	ctx := context.Background()

	if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	clock.Advance(25 * time.Hour)
	kept, err := tr.Record(ctx, "client-1", "agent-C")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if kept.AgentID != "agent-C" {
		t.Fatalf("expected new attribution to agent-C, got %s", kept.AgentID)
	}
}

func TestLoyalty_ResolveNilCases(t *testing.T) {
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		clock := newFakeClock()
		tr := newTestTracker(newMockInquiries(), clock)
		if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
			t.Fatalf("Record: %v", err)
		}
		clock.Advance(24*time.Hour + time.Second)
		got, err := tr.Resolve(ctx, "client-1", "agent-B")
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
	})

	t.Run("same agent as winner", func(t *testing.T) {
		tr := newTestTracker(newMockInquiries(), newFakeClock())
		if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
			t.Fatalf("Record: %v", err)
		}
		got, err := tr.Resolve(ctx, "client-1", "agent-A")
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
	})

	t.Run("no attribution", func(t *testing.T) {
		tr := newTestTracker(newMockInquiries(), newFakeClock())
		got, err := tr.Resolve(ctx, "client-9", "agent-A")
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
	})
}

func TestLoyalty_ResolveConsumesAttribution(t *testing.T) {
	tr := newTestTracker(newMockInquiries(), newFakeClock())
	ctx := context.Background()

	if _, err := tr.Record(ctx, "client-1", "agent-A"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Consumed even though the winner is the same agent.
	if _, err := tr.Resolve(ctx, "client-1", "agent-A"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err := tr.Resolve(ctx, "client-1", "agent-B")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Fatalf("expected attribution to be gone, got %s", *got)
	}
}

func TestLoyalty_RecordValidates(t *testing.T) {
	tr := newTestTracker(newMockInquiries(), newFakeClock())
	if _, err := tr.Record(context.Background(), " ", "agent-A"); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for blank client, got %v", err)
	}
	if _, err := tr.Record(context.Background(), "client-1", ""); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for blank agent, got %v", err)
	}
}
