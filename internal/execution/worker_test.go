package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/services"
)

type stubAgents map[string]*models.AgentProfile

func (s stubAgents) GetByID(_ context.Context, id string) (*models.AgentProfile, error) {
	ag, ok := s[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return ag, nil
}

type stubMarker struct {
	mu     sync.Mutex
	marked []string
}

func (m *stubMarker) MarkNotified(_ context.Context, _ uuid.UUID, agentID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, agentID)
	return nil
}

func newJob(agentID string, deadline time.Time) *river.Job[NotifyAgentArgs] {
	id := uuid.New()
	return &river.Job[NotifyAgentArgs]{Args: NotifyAgentArgs{
		AuctionID: id,
		AgentID:   agentID,
		Lead:      services.LeadNotification{AuctionID: id, Location: "JVC", Bedrooms: 1, DealKind: models.DealRental, Deadline: deadline},
	}}
}

func TestNotifyAgentWorker_DeliversAndMarks(t *testing.T) {
	var got services.LeadNotification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	marker := &stubMarker{}
	w := NewNotifyAgentWorker(stubAgents{"a1": {ID: "a1", EndpointURL: srv.URL}}, marker, 100, nil)

	job := newJob("a1", time.Now().Add(time.Hour))
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if got.AuctionID != job.Args.AuctionID || got.Location != "JVC" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if len(marker.marked) != 1 || marker.marked[0] != "a1" {
		t.Errorf("expected a1 marked, got %v", marker.marked)
	}
}

func TestNotifyAgentWorker_Non2xxIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	marker := &stubMarker{}
	w := NewNotifyAgentWorker(stubAgents{"a1": {ID: "a1", EndpointURL: srv.URL}}, marker, 100, nil)
	if err := w.Work(context.Background(), newJob("a1", time.Now().Add(time.Hour))); err == nil {
		t.Fatal("expected error so river retries")
	}
	if len(marker.marked) != 0 {
		t.Errorf("failed delivery must not be marked")
	}
}

func TestNotifyAgentWorker_SkipsClosedAuction(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	w := NewNotifyAgentWorker(stubAgents{"a1": {ID: "a1", EndpointURL: srv.URL}}, nil, 100, nil)
	if err := w.Work(context.Background(), newJob("a1", time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if called {
		t.Fatal("webhook must not be called after the deadline")
	}
}

func TestNotifyAgentWorker_MissingEndpointCancels(t *testing.T) {
	w := NewNotifyAgentWorker(stubAgents{"a1": {ID: "a1"}}, nil, 100, nil)
	err := w.Work(context.Background(), newJob("a1", time.Now().Add(time.Hour)))
	if err == nil {
		t.Fatal("expected cancel error")
	}
}

type recordingInsert struct {
	args []NotifyAgentArgs
	err  error
}

func (r *recordingInsert) insert(_ context.Context, args NotifyAgentArgs) error {
	r.args = append(r.args, args)
	return r.err
}

func TestRiverGateway_Send(t *testing.T) {
	rec := &recordingInsert{}
	g := NewRiverGateway(rec.insert)
	n := services.LeadNotification{AuctionID: uuid.New(), Location: "JVC"}

	if err := g.Send(context.Background(), "a7", n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(rec.args) != 1 || rec.args[0].AgentID != "a7" || rec.args[0].AuctionID != n.AuctionID {
		t.Fatalf("unexpected job args: %+v", rec.args)
	}

	rec.err = errors.New("db down")
	if err := g.Send(context.Background(), "a8", n); err == nil {
		t.Fatal("expected enqueue error")
	}
}
