package registry

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/middleware"
	"github.com/harshaldxb/leadengine/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type memAgents map[string]*models.AgentProfile

func (m memAgents) Create(_ context.Context, ag *models.AgentProfile) error {
	m[ag.ID] = ag
	return nil
}

func (m memAgents) GetByID(_ context.Context, id string) (*models.AgentProfile, error) {
	ag, ok := m[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return ag, nil
}

type memKeys struct {
	keys []*models.AgentAPIKey
}

func (m *memKeys) Create(_ context.Context, k *models.AgentAPIKey) error {
	m.keys = append(m.keys, k)
	return nil
}

func (m *memKeys) Deactivate(_ context.Context, id uuid.UUID) error {
	for _, k := range m.keys {
		if k.ID == id {
			k.IsActive = false
		}
	}
	return nil
}

func (m *memKeys) ListByAgentID(_ context.Context, agentID string) ([]*models.AgentAPIKey, error) {
	var out []*models.AgentAPIKey
	for _, k := range m.keys {
		if k.AgentID == agentID {
			out = append(out, k)
		}
	}
	return out, nil
}

type memProperties map[string]*models.Property

func (m memProperties) Create(_ context.Context, p *models.Property) error {
	m[p.ID] = p
	return nil
}

func newTestService() (*service, memAgents, *memKeys, memProperties) {
	agents, keys, props := memAgents{}, &memKeys{}, memProperties{}
	return NewService(agents, keys, props), agents, keys, props
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegisterAgent_NormalizesLocations(t *testing.T) {
	svc, agents, _, _ := newTestService()
	ag, err := svc.RegisterAgent(context.Background(), "Sara Khan", []string{" dubai marina", "DUBAI MARINA", "jvc"}, "https://hooks.example.com/sara")
	if err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if !strings.HasPrefix(ag.ID, "sara-khan-") {
		t.Errorf("expected slug id, got %q", ag.ID)
	}
	if len(ag.ServedLocations) != 2 || ag.ServedLocations[0] != "DUBAI MARINA" || ag.ServedLocations[1] != "JVC" {
		t.Errorf("unexpected locations %v", ag.ServedLocations)
	}
	if ag.ReliabilityScore != models.DefaultReliability || ag.Status != models.AgentStatusActive {
		t.Errorf("new agents start active at full reliability, got %+v", ag)
	}
	if _, ok := agents[ag.ID]; !ok {
		t.Error("agent not stored")
	}
}

func TestRegisterAgent_Rejects(t *testing.T) {
	svc, _, _, _ := newTestService()
	cases := []struct {
		name, agentName, endpoint string
		locations                 []string
	}{
		{"blank name", " ", "", []string{"JVC"}},
		{"no locations", "Sara", "", []string{" "}},
		{"relative endpoint", "Sara", "/hook", []string{"JVC"}},
		{"ftp endpoint", "Sara", "ftp://example.com/x", []string{"JVC"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RegisterAgent(context.Background(), tc.agentName, tc.locations, tc.endpoint); !apperr.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestIssueKey_StoresOnlyHash(t *testing.T) {
	svc, agents, keys, _ := newTestService()
	agents["a-1"] = &models.AgentProfile{ID: "a-1"}

	raw, k, err := svc.IssueKey(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("IssueKey: %v", err)
	}
	if !strings.HasPrefix(raw, keyPrefix) || !strings.HasPrefix(raw, k.KeyPrefix) {
		t.Errorf("key %q should start with prefix %q", raw, k.KeyPrefix)
	}
	if k.KeyHash != middleware.HashKey(raw) || strings.Contains(k.KeyHash, raw) {
		t.Error("stored hash must be the SHA-256 of the raw key")
	}
	if len(keys.keys) != 1 || !keys.keys[0].IsActive {
		t.Fatalf("expected one active key, got %+v", keys.keys)
	}

	if _, _, err := svc.IssueKey(context.Background(), "ghost"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown agent, got %v", err)
	}
}

func TestRevokeKey(t *testing.T) {
	svc, agents, keys, _ := newTestService()
	agents["a-1"] = &models.AgentProfile{ID: "a-1"}
	agents["a-2"] = &models.AgentProfile{ID: "a-2"}
	_, k1, _ := svc.IssueKey(context.Background(), "a-1")
	_, k2, _ := svc.IssueKey(context.Background(), "a-2")

	if err := svc.RevokeKey(context.Background(), "a-1", k2.ID); !apperr.IsNotFound(err) {
		t.Fatalf("revoking another agent's key must be NotFound, got %v", err)
	}
	if err := svc.RevokeKey(context.Background(), "a-1", k1.ID); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}
	if keys.keys[0].IsActive || !keys.keys[1].IsActive {
		t.Errorf("only a-1's key should be revoked: %+v %+v", keys.keys[0], keys.keys[1])
	}
}

func TestAddProperty(t *testing.T) {
	svc, agents, _, props := newTestService()
	agents["a-1"] = &models.AgentProfile{ID: "a-1"}
	agentID := "a-1"
	ghost := "ghost"

	owned, err := svc.AddProperty(context.Background(), &models.Property{
		Location: " jvc ", Bedrooms: 1, Price: decimal.NewFromInt(85000), DealKind: models.DealRental, OwnedByPlatform: true,
	})
	if err != nil {
		t.Fatalf("AddProperty: %v", err)
	}
	if owned.ID == "" || owned.Location != "JVC" || props[owned.ID] == nil {
		t.Errorf("unexpected stored property %+v", owned)
	}

	cases := []struct {
		name string
		p    models.Property
		ok   func(error) bool
	}{
		{"agent listing", models.Property{Location: "JVC", Bedrooms: 2, Price: decimal.NewFromInt(1), DealKind: models.DealSale, AgentID: &agentID}, func(err error) bool { return err == nil }},
		{"zero price", models.Property{Location: "JVC", Price: decimal.Zero, DealKind: models.DealSale, OwnedByPlatform: true}, apperr.IsValidation},
		{"bad deal kind", models.Property{Location: "JVC", Price: decimal.NewFromInt(1), DealKind: "LEASE", OwnedByPlatform: true}, apperr.IsValidation},
		{"owned with agent", models.Property{Location: "JVC", Price: decimal.NewFromInt(1), DealKind: models.DealSale, OwnedByPlatform: true, AgentID: &agentID}, apperr.IsValidation},
		{"agent listing without agent", models.Property{Location: "JVC", Price: decimal.NewFromInt(1), DealKind: models.DealSale}, apperr.IsValidation},
		{"unknown agent", models.Property{Location: "JVC", Price: decimal.NewFromInt(1), DealKind: models.DealSale, AgentID: &ghost}, apperr.IsNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.p
			if _, err := svc.AddProperty(context.Background(), &p); !tc.ok(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestHandler_RegisterAndIssueKey(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc, nil, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/agents", h.RegisterAgent)
	mux.HandleFunc("POST /v1/agents/{id}/keys", h.IssueKey)
	mux.HandleFunc("DELETE /v1/agents/{id}/keys/{keyID}", h.RevokeKey)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(`{"name":"Omar","served_locations":["JVC"]}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "endpoint_url") {
		t.Error("endpoint must not be echoed")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/agents/ghost/keys", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown agent, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/agents/ghost/keys/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad key id, got %d", rec.Code)
	}
}
