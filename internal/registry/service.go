package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/middleware"
	"github.com/harshaldxb/leadengine/internal/models"
)

const keyPrefix = "le_"

// AgentStore persists agent profiles.
type AgentStore interface {
	Create(ctx context.Context, ag *models.AgentProfile) error
	GetByID(ctx context.Context, id string) (*models.AgentProfile, error)
}

// KeyStore persists hashed agent API keys.
type KeyStore interface {
	Create(ctx context.Context, k *models.AgentAPIKey) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByAgentID(ctx context.Context, agentID string) ([]*models.AgentAPIKey, error)
}

// PropertyStore persists listings.
type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) error
}

// Service onboards the supply side: agents, their API keys, and listings.
type Service interface {
	RegisterAgent(ctx context.Context, name string, locations []string, endpointURL string) (*models.AgentProfile, error)
	GetAgent(ctx context.Context, id string) (*models.AgentProfile, error)
	IssueKey(ctx context.Context, agentID string) (string, *models.AgentAPIKey, error)
	ListKeys(ctx context.Context, agentID string) ([]*models.AgentAPIKey, error)
	RevokeKey(ctx context.Context, agentID string, keyID uuid.UUID) error
	AddProperty(ctx context.Context, p *models.Property) (*models.Property, error)
}

type service struct {
	agents     AgentStore
	keys       KeyStore
	properties PropertyStore
}

func NewService(agents AgentStore, keys KeyStore, properties PropertyStore) *service {
	return &service{agents: agents, keys: keys, properties: properties}
}

var _ Service = (*service)(nil)

var slugSanitize = regexp.MustCompile(`[^a-z0-9-]+`)

// normalizeLocations upper-cases, trims and de-duplicates served areas.
func normalizeLocations(locations []string) []string {
	seen := make(map[string]bool, len(locations))
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		n := models.NormalizeLocation(l)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func slugFromName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugSanitize.ReplaceAllString(s, "")
	if s == "" {
		s = "agent"
	}
	return s + "-" + uuid.New().String()[:8]
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *service) RegisterAgent(ctx context.Context, name string, locations []string, endpointURL string) (*models.AgentProfile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.NewValidation("name", "required")
	}
	locs := normalizeLocations(locations)
	if len(locs) == 0 {
		return nil, apperr.NewValidation("served_locations", "at least one location is required")
	}
	if endpointURL != "" {
		u, err := url.Parse(endpointURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, apperr.NewValidation("endpoint_url", "must be an absolute http(s) URL")
		}
	}
	ag := &models.AgentProfile{
		ID:               slugFromName(name),
		Name:             strings.TrimSpace(name),
		ReliabilityScore: models.DefaultReliability,
		ServedLocations:  locs,
		Status:           models.AgentStatusActive,
		EndpointURL:      endpointURL,
	}
	if err := s.agents.Create(ctx, ag); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.NewConflict("agent", ag.ID, "already exists")
		}
		return nil, err
	}
	return ag, nil
}

func (s *service) GetAgent(ctx context.Context, id string) (*models.AgentProfile, error) {
	ag, err := s.agents.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NewNotFound("agent", id)
	}
	return ag, err
}

// IssueKey mints a new API key for the agent. The raw key is returned once
// and only its hash is stored.
func (s *service) IssueKey(ctx context.Context, agentID string) (string, *models.AgentAPIKey, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return "", nil, err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, err
	}
	raw := keyPrefix + hex.EncodeToString(buf)
	k := &models.AgentAPIKey{
		ID:        uuid.New(),
		AgentID:   agentID,
		KeyHash:   middleware.HashKey(raw),
		KeyPrefix: raw[:len(keyPrefix)+6],
		IsActive:  true,
	}
	if err := s.keys.Create(ctx, k); err != nil {
		return "", nil, err
	}
	return raw, k, nil
}

func (s *service) ListKeys(ctx context.Context, agentID string) ([]*models.AgentAPIKey, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.keys.ListByAgentID(ctx, agentID)
}

// RevokeKey deactivates one of the agent's keys.
func (s *service) RevokeKey(ctx context.Context, agentID string, keyID uuid.UUID) error {
	keys, err := s.ListKeys(ctx, agentID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.ID == keyID {
			return s.keys.Deactivate(ctx, keyID)
		}
	}
	return apperr.NewNotFound("api key", keyID.String())
}

// AddProperty stores a listing. Agent-supplied listings must name an existing
// agent; platform-owned ones must not name any.
func (s *service) AddProperty(ctx context.Context, p *models.Property) (*models.Property, error) {
	if strings.TrimSpace(p.Location) == "" {
		return nil, apperr.NewValidation("location", "required")
	}
	if p.Bedrooms < 0 {
		return nil, apperr.NewValidation("bedrooms", "must be >= 0")
	}
	if !p.Price.GreaterThan(decimal.Zero) {
		return nil, apperr.NewValidation("price", "must be positive")
	}
	if !p.DealKind.Valid() {
		return nil, apperr.NewValidation("deal_kind", "must be RENTAL, SALE or DEVELOPER")
	}
	if p.OwnedByPlatform && p.AgentID != nil {
		return nil, apperr.NewValidation("agent_id", "platform-owned listings have no agent")
	}
	if !p.OwnedByPlatform {
		if p.AgentID == nil {
			return nil, apperr.NewValidation("agent_id", "required for agent listings")
		}
		if _, err := s.GetAgent(ctx, *p.AgentID); err != nil {
			return nil, err
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Location = models.NormalizeLocation(p.Location)
	if err := s.properties.Create(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.NewConflict("property", p.ID, "already exists")
		}
		return nil, err
	}
	return p, nil
}
