package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// ownedMatchLimit caps the listings returned for a direct match.
const ownedMatchLimit = 5

type PropertyRepo struct {
	pool *pgxpool.Pool
}

func NewPropertyRepo(pool *pgxpool.Pool) *PropertyRepo {
	return &PropertyRepo{pool: pool}
}

const propertyColumns = `id, location, bedrooms, price, deal_kind, owned_by_platform, market_priced, agent_id, created_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p        models.Property
		dealKind string
	)
	if err := row.Scan(&p.ID, &p.Location, &p.Bedrooms, &p.Price, &dealKind, &p.OwnedByPlatform, &p.MarketPriced, &p.AgentID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.DealKind = models.DealType(dealKind)
	return &p, nil
}

func (r *PropertyRepo) Create(ctx context.Context, p *models.Property) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO properties (id, location, bedrooms, price, deal_kind, owned_by_platform, market_priced, agent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, models.NormalizeLocation(p.Location), p.Bedrooms, p.Price, string(p.DealKind), p.OwnedByPlatform, p.MarketPriced, p.AgentID).Scan(&p.CreatedAt)
}

func (r *PropertyRepo) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p, err := scanProperty(r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return p, err
}

// Find returns platform-owned listings that satisfy req with the same
// location, bedroom and budget rules applied to agent submissions.
func (r *PropertyRepo) Find(ctx context.Context, req models.Requirement) ([]models.Property, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE owned_by_platform
		  AND location = $1
		  AND deal_kind = $2
		  AND bedrooms BETWEEN $3 - 1 AND $3 + 1
		  AND price BETWEEN $4 AND $5
		ORDER BY price, id
		LIMIT $6
	`, models.NormalizeLocation(req.Location), string(req.DealKind), req.Bedrooms, req.BudgetMin, req.BudgetMax, ownedMatchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// MarketStats counts market-priced listings at location and averages their
// price. The average is zero when there are none.
func (r *PropertyRepo) MarketStats(ctx context.Context, location string) (int, decimal.Decimal, error) {
	var (
		count int
		avg   decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(price), 0)
		FROM properties
		WHERE location = $1 AND market_priced
	`, models.NormalizeLocation(location)).Scan(&count, &avg)
	return count, avg, err
}
