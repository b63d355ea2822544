package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/token"
)

const (
	authHeaderName = "Authorization"
	authScheme     = "Bearer "

	// Anything shorter can't be a signed token, reject before parsing
	minTokenLength = 10
)

type Config struct {
	// Hasher to use during login, defaults to bcrypt
	Hasher PasswordHasher
}

// AuthService ties password login to the token lifecycle: it issues pairs on
// login, rotates refresh tokens and resolves users from bearer tokens.
type AuthService struct {
	hasher    PasswordHasher
	users     repository.UserRepo
	issuer    *token.Issuer
	validator *token.Validator
	rotator   *token.Rotator
}

func NewService(cfg Config, users repository.UserRepo, issuer *token.Issuer, validator *token.Validator, rotator *token.Rotator) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if users == nil {
		return nil, errors.New("user repo must not be nil")
	}
	if issuer == nil || validator == nil || rotator == nil {
		return nil, errors.New("issuer, validator and rotator must not be nil")
	}

	return &AuthService{
		hasher:    hasher,
		users:     users,
		issuer:    issuer,
		validator: validator,
		rotator:   rotator,
	}, nil
}

// Login checks the password and issues a fresh token pair. Unknown user and
// wrong password collapse to the same error on purpose.
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return models.TokenPair{}, apperrors.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.TokenPair{}, apperrors.ErrUserNotFound
	}

	pair, err := s.issuer.IssuePair(ctx, user, 0, 0)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while issuing login pair. Err: %w", err)
	}

	return pair, nil
}

// Refresh rotates a refresh token into a new pair, burning the old one
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	return s.rotator.Rotate(ctx, refresh)
}

// CheckToken is the authoritative validity check: no leeway, scope inferred
// from the token itself
func (s *AuthService) CheckToken(ctx context.Context, tokenString string) error {
	_, err := s.validator.Check(ctx, tokenString, token.WithLeeway(0))
	return err
}

// UserFromRequest resolves the user behind the request's bearer access token
func (s *AuthService) UserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get(authHeaderName)
	if !strings.HasPrefix(header, authScheme) {
		return models.User{}, fmt.Errorf("%w: no bearer token", apperrors.ErrTokenMalformed)
	}

	tokenString := strings.TrimPrefix(header, authScheme)
	if len(tokenString) < minTokenLength {
		return models.User{}, fmt.Errorf("%w: token too short", apperrors.ErrTokenMalformed)
	}

	claims, err := s.validator.Check(ctx, tokenString, token.WithScope(models.ScopeAccess))
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("error while resolving user. Err: %w", err)
	}

	return user, nil
}
