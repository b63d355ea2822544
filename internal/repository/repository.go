package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/authd/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// List users that are active
	ListActiveUsers(ctx context.Context) ([]models.User, error)

	// Update is_active or is_admin flags, nil field means "leave as is"
	UpdateUserFlags(ctx context.Context, userID int64, params UpdateUserFlagsParams) (models.User, error)

	// Replace password hash. With bumpVersion the user token_version counter
	// is advanced in the same statement, so every already issued token dies.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, bumpVersion bool) (models.User, error)

	// Delete user row. Prefer deactivating, deletion exists for admin tooling
	DeleteUser(ctx context.Context, userID int64) error
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
}

type UpdateUserFlagsParams struct {
	IsActive *bool
	IsAdmin  *bool
}

// Append-only registry of every refresh token ever issued.
// Its only job is to allocate unique token ids before signing.
type RefreshRegistryRepo interface {
	// Create registration row and return the store assigned token id.
	// Ids must never repeat for the lifetime of the backing store.
	CreateRegistration(ctx context.Context, reg models.RefreshRegistration) (tokenID int64, err error)
}

// Blacklist of consumed or revoked refresh token ids
type BlacklistRepo interface {
	// Insert entry. Inserting the same token id twice is a programmer error
	// or a lost rotation race: must fail with apperrors.ErrDuplicateRevocation,
	// first writer wins.
	Insert(ctx context.Context, entry models.BlacklistEntry) error

	// Lookup reports whether the token id is blacklisted
	Lookup(ctx context.Context, tokenID int64) (bool, error)

	// Prune deletes entries with expiry strictly before now and returns how
	// many rows went away. Idempotent, safe to run on a timer.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Storage aggregates repositories backed by the same store
type Storage interface {
	User() UserRepo
	Registry() RefreshRegistryRepo
	Blacklist() BlacklistRepo
}
