package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/authd/internal/models"
)

// RegistryRepo stores one row for every refresh token ever signed.
// Rows are never updated or deleted, the bigserial primary key guarantees
// token ids are unique for the lifetime of the database.
type RegistryRepo struct {
	DB DBTX
}

const createRegistration = `-- name: CreateRegistration
INSERT INTO refresh_registry (user_id, issued_at, expires_at)
VALUES ($1, $2, $3)
RETURNING token_id
`

func (r *RegistryRepo) CreateRegistration(ctx context.Context, reg models.RefreshRegistration) (int64, error) {
	rows, _ := r.DB.Query(ctx, createRegistration, reg.UserID, reg.IssuedAt, reg.Expiry)
	tokenID, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tokenID, nil
}
