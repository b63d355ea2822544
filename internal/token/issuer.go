package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/authd/internal/models"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

// RefreshRegistry allocates unique ids for refresh tokens before signing
type RefreshRegistry interface {
	CreateRegistration(ctx context.Context, reg models.RefreshRegistration) (tokenID int64, err error)
}

type IssuerConfig struct {
	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer builds and signs access and refresh claim sets for a user, always
// snapshotting the user's current token version
type Issuer struct {
	codec    *Codec
	registry RefreshRegistry

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(cfg IssuerConfig, codec *Codec, registry RefreshRegistry) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("codec must not be nil")
	}
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTTL)

	return &Issuer{
		codec:      codec,
		registry:   registry,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess signs an access token. Access tokens carry no token id: they
// are not individually revocable, only the version bump kills them early.
// Zero ttl means "use the configured default".
func (i *Issuer) IssueAccess(ctx context.Context, user models.User, ttl time.Duration) (models.IssuedToken, error) {
	if ttl == 0 {
		ttl = i.accessTTL
	}

	now := time.Now().Truncate(time.Second)
	claims := newClaims(user, models.ScopeAccess, now, now.Add(ttl))

	value, err := i.codec.Sign(claims)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IssueRefresh registers the token first and signs only after the registry
// handed out an id. If registration fails no token exists anywhere.
func (i *Issuer) IssueRefresh(ctx context.Context, user models.User, ttl time.Duration) (models.IssuedToken, error) {
	if ttl == 0 {
		ttl = i.refreshTTL
	}

	now := time.Now().Truncate(time.Second)
	claims := newClaims(user, models.ScopeRefresh, now, now.Add(ttl))

	tokenID, err := i.registry.CreateRegistration(ctx, models.RefreshRegistration{
		UserID:   user.ID,
		IssuedAt: claims.IssuedAt.Time,
		Expiry:   claims.ExpiresAt.Time,
	})
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while registering refresh token. Err: %w", err)
	}
	claims.TokenID = tokenID

	value, err := i.codec.Sign(claims)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IssuePair issues an access and a refresh token. The two stand alone, there
// is no shared atomicity between them.
func (i *Issuer) IssuePair(ctx context.Context, user models.User, accessTTL time.Duration, refreshTTL time.Duration) (models.TokenPair, error) {
	access, err := i.IssueAccess(ctx, user, accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := i.IssueRefresh(ctx, user, refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func newClaims(user models.User, scope models.Scope, iat time.Time, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:  user.ID,
		Version: user.TokenVersion,
		Scope:   scope,
	}
}
