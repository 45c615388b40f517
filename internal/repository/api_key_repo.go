package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// APIKeyWithAgent is returned by FindByKeyHash (api key joined with its agent).
type APIKeyWithAgent struct {
	APIKey models.AgentAPIKey
	Agent  models.AgentProfile
}

func (r *APIKeyRepo) Create(ctx context.Context, k *models.AgentAPIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agent_api_keys (id, agent_id, key_hash, key_prefix, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, k.ID, k.AgentID, k.KeyHash, k.KeyPrefix, k.IsActive)
	return err
}

// Deactivate revokes a key. Revoking twice is a no-op.
func (r *APIKeyRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE agent_api_keys SET is_active = FALSE WHERE id = $1`, id)
	return err
}

// ListByAgentID returns all keys for the given agent.
func (r *APIKeyRepo) ListByAgentID(ctx context.Context, agentID string) ([]*models.AgentAPIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, key_hash, key_prefix, is_active
		FROM agent_api_keys WHERE agent_id = $1 ORDER BY key_prefix
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.AgentAPIKey{}
	for rows.Next() {
		var k models.AgentAPIKey
		if err := rows.Scan(&k.ID, &k.AgentID, &k.KeyHash, &k.KeyPrefix, &k.IsActive); err != nil {
			return nil, err
		}
		list = append(list, &k)
	}
	return list, rows.Err()
}

// FindByKeyHash returns the active key and its ACTIVE agent, or
// apperr.ErrNotFound.
func (r *APIKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*APIKeyWithAgent, error) {
	var out APIKeyWithAgent
	err := r.pool.QueryRow(ctx, `
		SELECT k.id, k.agent_id, k.key_hash, k.key_prefix, k.is_active,
		       a.id, a.name, a.reliability_score, a.deals_closed, a.served_locations, a.status, a.endpoint_url, a.created_at
		FROM agent_api_keys k
		INNER JOIN agents a ON a.id = k.agent_id
		WHERE k.key_hash = $1 AND k.is_active = TRUE AND a.status = 'ACTIVE'
	`, keyHash).Scan(
		&out.APIKey.ID, &out.APIKey.AgentID, &out.APIKey.KeyHash, &out.APIKey.KeyPrefix, &out.APIKey.IsActive,
		&out.Agent.ID, &out.Agent.Name, &out.Agent.ReliabilityScore, &out.Agent.DealsClosed, &out.Agent.ServedLocations, &out.Agent.Status, &out.Agent.EndpointURL, &out.Agent.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
