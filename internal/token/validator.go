package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
)

// UserDirectory resolves the owning user of a token
type UserDirectory interface {
	// Must return apperrors.ErrUserNotFound when no such user exists
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
}

// Blacklist answers "was this refresh token consumed or revoked"
type Blacklist interface {
	Lookup(ctx context.Context, tokenID int64) (bool, error)
}

// Validator decides whether a token string is currently acceptable. Check
// keeps the specific rejection reason for logging, Accept collapses it to a
// bare bool so nothing leaks to unauthenticated callers.
type Validator struct {
	codec     *Codec
	users     UserDirectory
	blacklist Blacklist
}

func NewValidator(codec *Codec, users UserDirectory, blacklist Blacklist) (*Validator, error) {
	if codec == nil {
		return nil, errors.New("codec must not be nil")
	}
	if users == nil || blacklist == nil {
		return nil, errors.New("user directory and blacklist must not be nil")
	}

	return &Validator{codec: codec, users: users, blacklist: blacklist}, nil
}

type checkOptions struct {
	scope         models.Scope // empty means "trust the token's own scope claim"
	requireActive bool
	requireAdmin  bool
	leeway        time.Duration
}

type CheckOption func(*checkOptions)

// WithScope pins the scope the caller expects instead of inferring it from
// the token itself
func WithScope(scope models.Scope) CheckOption {
	return func(o *checkOptions) { o.scope = scope }
}

// WithLeeway overrides the codec default grace window for this check.
// Authoritative call sites pass zero to disable the window.
func WithLeeway(leeway time.Duration) CheckOption {
	return func(o *checkOptions) { o.leeway = leeway }
}

// WithAdminRequired additionally rejects tokens of non-admin users
func WithAdminRequired() CheckOption {
	return func(o *checkOptions) { o.requireAdmin = true }
}

// WithoutActiveCheck skips the user activity check
func WithoutActiveCheck() CheckOption {
	return func(o *checkOptions) { o.requireActive = false }
}

// Check runs the validation cascade and short-circuits on first failure:
// decode, identity claims, user lookup, version, activity, admin, scope,
// expiry at the requested leeway, and for refresh tokens the blacklist.
func (v *Validator) Check(ctx context.Context, tokenString string, opts ...CheckOption) (Claims, error) {
	o := checkOptions{requireActive: true, leeway: v.codec.Leeway()}
	for _, opt := range opts {
		opt(&o)
	}

	claims, err := v.codec.DecodeWithLeeway(tokenString, o.leeway)
	if err != nil {
		return Claims{}, err
	}

	if !claims.HasIdentity() {
		return Claims{}, fmt.Errorf("%w: identity claims missing", apperrors.ErrTokenMalformed)
	}

	user, err := v.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return Claims{}, fmt.Errorf("error while resolving token user. Err: %w", err)
	}

	// The "log out everywhere" mechanism: a version bump on the user rejects
	// every token issued before it, expiry does not matter here
	if user.TokenVersion > claims.Version {
		return Claims{}, apperrors.ErrTokenStaleVersion
	}

	if o.requireActive && !user.IsActive {
		return Claims{}, apperrors.ErrUserInactive
	}
	if o.requireAdmin && !user.IsAdmin {
		return Claims{}, apperrors.ErrUserNotAdmin
	}

	// The scope claim sits inside the verified payload, inferring from it is
	// safe when the caller pinned nothing
	if !claims.Scope.Valid() {
		return Claims{}, fmt.Errorf("%w: unknown scope %q", apperrors.ErrTokenMalformed, claims.Scope)
	}
	scope := o.scope
	if scope == "" {
		scope = claims.Scope
	}
	if claims.Scope != scope {
		return Claims{}, apperrors.ErrTokenWrongScope
	}

	// Re-check expiry against this call's leeway: decode and check may run
	// with different grace windows at different call sites
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time.Add(o.leeway)) {
		return Claims{}, apperrors.ErrTokenExpired
	}

	// Access tokens stop here on purpose: no storage lookups on the fast path
	if scope == models.ScopeRefresh {
		if claims.TokenID == 0 {
			return Claims{}, fmt.Errorf("%w: refresh token without token id", apperrors.ErrTokenMalformed)
		}

		revoked, err := v.blacklist.Lookup(ctx, claims.TokenID)
		if err != nil {
			return Claims{}, fmt.Errorf("error while checking blacklist. Err: %w", err)
		}
		if revoked {
			return Claims{}, apperrors.ErrTokenRevoked
		}
	}

	return claims, nil
}

// Accept reports only pass or fail, every rejection reason collapses to false
func (v *Validator) Accept(ctx context.Context, tokenString string, opts ...CheckOption) bool {
	_, err := v.Check(ctx, tokenString, opts...)
	return err == nil
}
