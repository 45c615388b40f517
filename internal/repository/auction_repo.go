package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

type AuctionRepo struct {
	pool *pgxpool.Pool
}

func NewAuctionRepo(pool *pgxpool.Pool) *AuctionRepo {
	return &AuctionRepo{pool: pool}
}

func (r *AuctionRepo) CreateAuction(ctx context.Context, a *models.Auction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auctions (id, client_id, location, bedrooms, budget_min, budget_max, deal_kind, status, created_at, deadline, eligible_agents, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.ClientID, a.Location, a.Bedrooms, a.BudgetMin, a.BudgetMax, string(a.DealKind), a.Status.String(), a.CreatedAt, a.Deadline, a.EligibleAgents, a.Version)
	return err
}

func (r *AuctionRepo) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var (
		a        models.Auction
		dealKind string
		status   string
		winnerNS *int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_id, location, bedrooms, budget_min, budget_max, deal_kind, status, created_at, deadline,
		       eligible_agents, winner_agent_id, winner_property_id, winner_response_time_ns, deal_closed_at, version
		FROM auctions WHERE id = $1
	`, id).Scan(&a.ID, &a.ClientID, &a.Location, &a.Bedrooms, &a.BudgetMin, &a.BudgetMax, &dealKind, &status, &a.CreatedAt, &a.Deadline,
		&a.EligibleAgents, &a.WinnerAgentID, &a.WinnerPropertyID, &winnerNS, &a.DealClosedAt, &a.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.DealKind = models.DealType(dealKind)
	if a.Status, err = models.ParseAuctionStatus(status); err != nil {
		return nil, err
	}
	if winnerNS != nil {
		d := time.Duration(*winnerNS)
		a.WinnerResponseTime = &d
	}

	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, property_id, rank, response_time_ns, submitted_at, is_winner
		FROM auction_responses WHERE auction_id = $1 ORDER BY rank
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	a.Responses = []models.AuctionResponse{}
	for rows.Next() {
		var (
			resp models.AuctionResponse
			ns   int64
		)
		if err := rows.Scan(&resp.AgentID, &resp.PropertyID, &resp.Rank, &ns, &resp.SubmittedAt, &resp.IsWinner); err != nil {
			return nil, err
		}
		resp.ResponseTime = time.Duration(ns)
		a.Responses = append(a.Responses, resp)
	}
	return &a, rows.Err()
}

// RecordSubmission locks the auction row, appends the response with the next
// rank and, when the auction is still ACTIVE, assigns it with a version
// compare-and-set in the same transaction.
func (r *AuctionRepo) RecordSubmission(ctx context.Context, id uuid.UUID, resp models.AuctionResponse) (models.AuctionResponse, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return resp, err
	}
	defer tx.Rollback(ctx)

	var (
		status   string
		version  int64
		deadline time.Time
	)
	err = tx.QueryRow(ctx, `SELECT status, version, deadline FROM auctions WHERE id = $1 FOR UPDATE`, id).
		Scan(&status, &version, &deadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return resp, apperr.ErrNotFound
	}
	if err != nil {
		return resp, err
	}

	if status == models.AuctionActive.String() && resp.SubmittedAt.After(deadline) {
		if _, err := tx.Exec(ctx, `UPDATE auctions SET status = 'EXPIRED', version = version + 1 WHERE id = $1 AND status = 'ACTIVE'`, id); err != nil {
			return resp, err
		}
		if err := tx.Commit(ctx); err != nil {
			return resp, err
		}
		status = models.AuctionExpired.String()
	}
	if status == models.AuctionExpired.String() {
		return resp, &apperr.ExpiredError{AuctionID: id.String(), Deadline: deadline}
	}

	if err := tx.QueryRow(ctx, `SELECT COUNT(*) + 1 FROM auction_responses WHERE auction_id = $1`, id).Scan(&resp.Rank); err != nil {
		return resp, err
	}

	resp.IsWinner = false
	if status == models.AuctionActive.String() {
		tag, err := tx.Exec(ctx, `
			UPDATE auctions
			SET status = 'ASSIGNED', winner_agent_id = $2, winner_property_id = $3, winner_response_time_ns = $4, version = version + 1
			WHERE id = $1 AND status = 'ACTIVE' AND version = $5
		`, id, resp.AgentID, resp.PropertyID, int64(resp.ResponseTime), version)
		if err != nil {
			return resp, err
		}
		resp.IsWinner = tag.RowsAffected() == 1
	}
	if !resp.IsWinner {
		if _, err := tx.Exec(ctx, `UPDATE auctions SET version = version + 1 WHERE id = $1`, id); err != nil {
			return resp, err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO auction_responses (auction_id, rank, agent_id, property_id, response_time_ns, submitted_at, is_winner)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, resp.Rank, resp.AgentID, resp.PropertyID, int64(resp.ResponseTime), resp.SubmittedAt, resp.IsWinner); err != nil {
		return resp, fmt.Errorf("insert response: %w", err)
	}
	return resp, tx.Commit(ctx)
}

func (r *AuctionRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE auctions SET status = 'EXPIRED', version = version + 1 WHERE id = $1 AND status = 'ACTIVE'`, id)
	return err
}

// ClaimDeal stamps deal_closed_at on an assigned auction. The NULL guard
// makes the update a compare-and-set: concurrent resolves race on it and
// only one sees a row affected.
func (r *AuctionRepo) ClaimDeal(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions SET deal_closed_at = $2
		WHERE id = $1 AND status = 'ASSIGNED' AND deal_closed_at IS NULL
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewConflict("auction", id.String(), "deal already being resolved")
	}
	return nil
}

func (r *AuctionRepo) ReleaseDeal(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE auctions SET deal_closed_at = NULL WHERE id = $1`, id)
	return err
}

// RecentWinnerResponseTimes returns the winning response times of the most
// recently created ASSIGNED auctions at location, newest first.
func (r *AuctionRepo) RecentWinnerResponseTimes(ctx context.Context, location string, limit int) ([]time.Duration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT winner_response_time_ns
		FROM auctions
		WHERE location = $1 AND status = 'ASSIGNED' AND winner_response_time_ns IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`, models.NormalizeLocation(location), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Duration
	for rows.Next() {
		var ns int64
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, time.Duration(ns))
	}
	return out, rows.Err()
}

// MarkNotified records a delivered alert. Repeats are ignored.
func (r *AuctionRepo) MarkNotified(ctx context.Context, auctionID uuid.UUID, agentID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auction_notifications (auction_id, agent_id, notified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (auction_id, agent_id) DO NOTHING
	`, auctionID, agentID, at)
	return err
}
