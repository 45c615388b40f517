package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new operator.
func (r *Repository) Create(ctx context.Context, op *Operator, passwordHash string) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO operators (id, email, password_hash, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, op.ID, op.Email, passwordHash, op.Name).Scan(&op.CreatedAt)
}

// GetByEmail returns the operator and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Operator, string, error) {
	var (
		op           Operator
		passwordHash string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, created_at, password_hash
		FROM operators WHERE email = $1
	`, email).Scan(&op.ID, &op.Email, &op.Name, &op.CreatedAt, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &op, passwordHash, nil
}

// Exists reports whether any operator row is present.
func (r *Repository) Exists(ctx context.Context) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM operators)`).Scan(&ok)
	return ok, err
}

