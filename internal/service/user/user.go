package user

import (
	"context"
	"fmt"

	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/service/auth"
)

// UserService manages user records. Password changes bump the user's token
// version by default, which logs the user out everywhere at once.
type UserService struct {
	hasher auth.PasswordHasher
	users  repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, users repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher: hasher,
		users:  users,
	}
}

type CreateParams struct {
	Username string
	Password string
	IsAdmin  bool
	Inactive bool
}

func (s *UserService) Create(ctx context.Context, params CreateParams) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.users.CreateUser(ctx, repository.CreateUserParams{
		Username:     params.Username,
		PasswordHash: hash,
		IsAdmin:      params.IsAdmin,
		IsActive:     !params.Inactive,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return s.users.GetUserByUsername(ctx, username)
}

func (s *UserService) ListActive(ctx context.Context) ([]models.User, error) {
	return s.users.ListActiveUsers(ctx)
}

func (s *UserService) SetFlags(ctx context.Context, userID int64, params repository.UpdateUserFlagsParams) (models.User, error) {
	return s.users.UpdateUserFlags(ctx, userID, params)
}

// ChangePassword replaces the password hash. Unless keepSessions is set the
// user's token version advances too, so every issued token dies immediately.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, newPassword string, keepSessions bool) (models.User, error) {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	return s.users.UpdatePassword(ctx, userID, hash, !keepSessions)
}

// Delete removes the user row for good. Deactivating is almost always the
// better call, deletion exists for admin tooling and tests.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	return s.users.DeleteUser(ctx, userID)
}
