package credential

import (
	"context"
	"errors"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
	slot string
}

// NewPostgres returns a Store backed by the credentials table.
func NewPostgres(pool *pgxpool.Pool, slot string) Store {
	return &postgresStore{pool: pool, slot: slot}
}

func (s *postgresStore) Load(ctx context.Context) (string, error) {
	const q = `
SELECT token
FROM credentials
WHERE slot = $1
LIMIT 1
`
	var token string
	if err := s.pool.QueryRow(ctx, q, s.slot).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if token == "" {
		return "", domain.ErrNotFound
	}
	return token, nil
}

func (s *postgresStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	const q = `
INSERT INTO credentials (slot, token, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (slot) DO UPDATE
SET token = EXCLUDED.token,
    updated_at = EXCLUDED.updated_at
`
	_, err := s.pool.Exec(ctx, q, s.slot, token)
	return err
}

func (s *postgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM credentials WHERE slot = $1`, s.slot)
	return err
}
