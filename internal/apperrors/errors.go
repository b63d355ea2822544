package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user is inactive")
	ErrUserNotAdmin      = errors.New("user is not admin")

	ErrTokenMalformed      = errors.New("token is malformed")
	ErrTokenSignature      = errors.New("token signature is invalid")
	ErrTokenExpired        = errors.New("token is expired")
	ErrTokenStaleVersion   = errors.New("token version is stale")
	ErrTokenWrongScope     = errors.New("token has wrong scope")
	ErrTokenRevoked        = errors.New("refresh token is revoked")
	ErrDuplicateRevocation = errors.New("refresh token is revoked already")

	// ErrTokenInvalid is the only rotation failure callers may see. Specific
	// causes stay server-side so an attacker can't tell "expired" from
	// "already used".
	ErrTokenInvalid = errors.New("bad refresh token")
)
