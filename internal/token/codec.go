package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/authd/internal/apperrors"
)

const defaultLeeway = 30 * time.Second

// Codec signs claim sets into compact HMAC-SHA-256 tokens and decodes them
// back. The leeway is the default grace window past nominal expiry, call
// sites doing authoritative checks override it with zero.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	leeway time.Duration
}

type CodecConfig struct {
	// Symmetric secret to sign tokens with
	// Required to be set
	SignKey string

	// Default grace window for expiry checks
	// Negative means "no leeway at all", zero picks the built-in default
	Leeway time.Duration
}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.SignKey == "" {
		return nil, errors.New("sign key must not be empty")
	}

	leeway := cfg.Leeway
	switch {
	case leeway == 0:
		leeway = defaultLeeway
	case leeway < 0:
		leeway = 0
	}

	return &Codec{
		key:    []byte(cfg.SignKey),
		method: jwt.SigningMethodHS256,
		leeway: leeway,
	}, nil
}

// Leeway returns the configured default grace window
func (c *Codec) Leeway() time.Duration {
	return c.leeway
}

func (c *Codec) Sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(c.method, &claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry with the codec default leeway
func (c *Codec) Decode(tokenString string) (Claims, error) {
	return c.DecodeWithLeeway(tokenString, c.leeway)
}

// DecodeWithLeeway verifies signature and expiry, accepting tokens up to
// leeway past their exp claim
func (c *Codec) DecodeWithLeeway(tokenString string, leeway time.Duration) (Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, decodeError(err)
	}

	return *claims, nil
}

// DecodeUnverified parses the payload without checking signature or expiry.
// Only for inspecting a token that already passed a verified check, never
// for trust decisions.
func (c *Codec) DecodeUnverified(tokenString string) (Claims, error) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %s", apperrors.ErrTokenMalformed, err)
	}

	return *claims, nil
}

// decodeError translates golang-jwt failures into the local taxonomy, keeping
// the original error wrapped for logging
func decodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %s", apperrors.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %s", apperrors.ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrTokenMalformed, err)
	}
}
