package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (username, password_hash, is_admin, is_active)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, username, password_hash, token_version, is_active, is_admin
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, params.Username, params.PasswordHash, params.IsAdmin, params.IsActive)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, password_hash, token_version, is_active, is_admin
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, password_hash, token_version, is_active, is_admin
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const listActiveUsers = `-- name: ListActiveUsers
SELECT id, created_at, username, password_hash, token_version, is_active, is_admin
FROM users
WHERE is_active
ORDER BY id
`

func (r *UserRepo) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listActiveUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

const updateUserFlags = `-- name: UpdateUserFlags
UPDATE users
SET is_active = COALESCE($2, is_active),
    is_admin  = COALESCE($3, is_admin)
WHERE id = $1
RETURNING id, created_at, username, password_hash, token_version, is_active, is_admin
`

func (r *UserRepo) UpdateUserFlags(ctx context.Context, userID int64, params repository.UpdateUserFlagsParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUserFlags, userID, params.IsActive, params.IsAdmin)
	return collectUser(rows)
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2,
    token_version = token_version + CASE WHEN $3 THEN 1 ELSE 0 END
WHERE id = $1
RETURNING id, created_at, username, password_hash, token_version, is_active, is_admin
`

func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string, bumpVersion bool) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updatePassword, userID, passwordHash, bumpVersion)
	return collectUser(rows)
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, userID int64) error {
	tag, err := r.DB.Exec(ctx, deleteUser, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.PasswordHash, &u.TokenVersion, &u.IsActive, &u.IsAdmin)
	return u, err
}
