package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

const pgUniqueViolation = "23505"

type CommissionRepo struct {
	pool *pgxpool.Pool
}

func NewCommissionRepo(pool *pgxpool.Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

// CreateCommission inserts a record once per deal.
func (r *CommissionRepo) CreateCommission(ctx context.Context, rec *models.CommissionRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO commissions (id, deal_id, deal_value, pool, deal_type, scenario, splits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.DealID, rec.DealValue, rec.Pool, string(rec.DealType), string(rec.Scenario), rec.Splits, rec.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.NewConflict("commission", rec.DealID, "already recorded")
	}
	return err
}

func (r *CommissionRepo) GetCommission(ctx context.Context, dealID string) (*models.CommissionRecord, error) {
	var (
		rec      models.CommissionRecord
		dealType string
		scenario string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, deal_id, deal_value, pool, deal_type, scenario, splits, created_at
		FROM commissions WHERE deal_id = $1
	`, dealID).Scan(&rec.ID, &rec.DealID, &rec.DealValue, &rec.Pool, &dealType, &scenario, &rec.Splits, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.DealType = models.DealType(dealType)
	rec.Scenario = models.Scenario(scenario)
	return &rec, nil
}
