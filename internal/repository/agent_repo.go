package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

const agentColumns = `id, name, reliability_score, deals_closed, served_locations, status, endpoint_url, created_at`

func scanAgent(row pgx.Row) (*models.AgentProfile, error) {
	var ag models.AgentProfile
	if err := row.Scan(&ag.ID, &ag.Name, &ag.ReliabilityScore, &ag.DealsClosed, &ag.ServedLocations, &ag.Status, &ag.EndpointURL, &ag.CreatedAt); err != nil {
		return nil, err
	}
	return &ag, nil
}

// Create registers an agent. Served locations are stored normalized.
func (r *AgentRepo) Create(ctx context.Context, ag *models.AgentProfile) error {
	locs := make([]string, len(ag.ServedLocations))
	for i, l := range ag.ServedLocations {
		locs[i] = models.NormalizeLocation(l)
	}
	if ag.Status == "" {
		ag.Status = models.AgentStatusActive
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO agents (id, name, reliability_score, deals_closed, served_locations, status, endpoint_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, ag.ID, ag.Name, ag.ReliabilityScore, ag.DealsClosed, locs, ag.Status, ag.EndpointURL).Scan(&ag.CreatedAt)
}

func (r *AgentRepo) GetByID(ctx context.Context, id string) (*models.AgentProfile, error) {
	ag, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return ag, err
}

// ListByLocation returns ACTIVE agents whose served locations contain location.
func (r *AgentRepo) ListByLocation(ctx context.Context, location string) ([]*models.AgentProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE status = 'ACTIVE' AND served_locations @> ARRAY[$1::text]
		ORDER BY id
	`, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AgentProfile
	for rows.Next() {
		ag, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ag)
	}
	return list, rows.Err()
}

func (r *AgentRepo) ClosedDealCounts(ctx context.Context, location string, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, COUNT(*) FROM closed_deals
		WHERE location = $1 AND closed_at >= $2
		GROUP BY agent_id
	`, location, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// RecordClosedDeal stores the deal for tiering and bumps the lifetime count.
// Recording the same deal twice is a no-op.
func (r *AgentRepo) RecordClosedDeal(ctx context.Context, agentID, location, dealID string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	tag, err := tx.Exec(ctx, `
		INSERT INTO closed_deals (deal_id, agent_id, location, closed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (deal_id) DO NOTHING
	`, dealID, agentID, models.NormalizeLocation(location), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		if _, err := tx.Exec(ctx, `UPDATE agents SET deals_closed = deals_closed + 1 WHERE id = $1`, agentID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AdjustReliability clamps the score in a single UPDATE and writes the audit
// row in the same transaction.
func (r *AgentRepo) AdjustReliability(ctx context.Context, agentID string, delta float64, reason string, at time.Time) (*models.ReliabilityEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ev := &models.ReliabilityEvent{AgentID: agentID, Delta: delta, Reason: reason, CreatedAt: at}
	err = tx.QueryRow(ctx, `
		UPDATE agents a
		SET reliability_score = LEAST($3::float8, GREATEST($4::float8, a.reliability_score + $2))
		FROM (SELECT id, reliability_score FROM agents WHERE id = $1 FOR UPDATE) old
		WHERE a.id = old.id
		RETURNING old.reliability_score, a.reliability_score
	`, agentID, delta, models.MaxReliability, models.MinReliability).Scan(&ev.ScoreBefore, &ev.ScoreAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO reliability_events (agent_id, delta, reason, score_before, score_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, agentID, delta, reason, ev.ScoreBefore, ev.ScoreAfter, at); err != nil {
		return nil, err
	}
	return ev, tx.Commit(ctx)
}

func (r *AgentRepo) ListReliabilityEvents(ctx context.Context, agentID string) ([]*models.ReliabilityEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, delta, reason, score_before, score_after, created_at
		FROM reliability_events WHERE agent_id = $1 ORDER BY id
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ReliabilityEvent
	for rows.Next() {
		var ev models.ReliabilityEvent
		if err := rows.Scan(&ev.AgentID, &ev.Delta, &ev.Reason, &ev.ScoreBefore, &ev.ScoreAfter, &ev.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
