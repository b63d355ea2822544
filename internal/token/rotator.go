package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
)

// BlacklistWriter durably records a refresh token as consumed
type BlacklistWriter interface {
	// Must return apperrors.ErrDuplicateRevocation when the token id is
	// blacklisted already, first writer wins
	Insert(ctx context.Context, entry models.BlacklistEntry) error
}

// Rotator runs the "exchange a refresh token for a new pair and burn the old
// one" protocol. Every failure surfaces as apperrors.ErrTokenInvalid so a
// caller can't distinguish expired from already-used.
type Rotator struct {
	codec     *Codec
	validator *Validator
	issuer    *Issuer
	users     UserDirectory
	blacklist BlacklistWriter
}

func NewRotator(codec *Codec, validator *Validator, issuer *Issuer, users UserDirectory, blacklist BlacklistWriter) (*Rotator, error) {
	if codec == nil || validator == nil || issuer == nil {
		return nil, errors.New("codec, validator and issuer must not be nil")
	}
	if users == nil || blacklist == nil {
		return nil, errors.New("user directory and blacklist must not be nil")
	}

	return &Rotator{
		codec:     codec,
		validator: validator,
		issuer:    issuer,
		users:     users,
		blacklist: blacklist,
	}, nil
}

// Rotate validates the refresh token, blacklists its id and only then issues
// a fresh pair for the same user. The blacklist insert is the commit point:
// losing the insert race fails the whole rotation even though validation
// passed a moment earlier.
func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	_, err := r.validator.Check(ctx, refreshToken, WithScope(models.ScopeRefresh))
	if err != nil {
		return models.TokenPair{}, rotationInvalid(err)
	}

	// Claims are trusted after the verified check above
	claims, err := r.codec.DecodeUnverified(refreshToken)
	if err != nil {
		return models.TokenPair{}, rotationInvalid(err)
	}

	// Confirm the user still exists at rotation time, it may have been
	// deleted between issuance and use
	user, err := r.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return models.TokenPair{}, rotationInvalid(err)
	}

	err = r.blacklist.Insert(ctx, models.BlacklistEntry{
		TokenID:      claims.TokenID,
		RegisteredAt: time.Now().Truncate(time.Second),
		Expiry:       claims.ExpiresAt.Time,
	})
	if err != nil {
		return models.TokenPair{}, rotationInvalid(err)
	}

	pair, err := r.issuer.IssuePair(ctx, user, 0, 0)
	if err != nil {
		// The old token is burnt already, failing closed is the safe side
		return models.TokenPair{}, fmt.Errorf("error while issuing rotated pair. Err: %w", err)
	}

	return pair, nil
}

// rotationInvalid folds the real cause into the generic rotation error,
// keeping it in the message for server side logs only
func rotationInvalid(cause error) error {
	return fmt.Errorf("%w: %s", apperrors.ErrTokenInvalid, cause)
}
