package models

import (
	"time"
)

// Scope tells whether a token is a short-lived stateless access token or a
// longer-lived, individually revocable refresh token.
type Scope string

const (
	ScopeAccess  Scope = "access"
	ScopeRefresh Scope = "refresh"
)

func (s Scope) Valid() bool {
	return s == ScopeAccess || s == ScopeRefresh
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued on login and on every refresh rotation
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// RefreshRegistration is written once per refresh token, strictly before the
// token is signed. Rows are append-only and never reused: the store-assigned
// TokenID is the handle the blacklist revokes by.
type RefreshRegistration struct {
	TokenID  int64
	UserID   int64
	IssuedAt time.Time
	Expiry   time.Time
}

// BlacklistEntry marks a refresh token as consumed or revoked. Presence here
// rejects the token forever; Expiry only tells the pruner when the row may go.
type BlacklistEntry struct {
	TokenID      int64
	RegisteredAt time.Time
	Expiry       time.Time
}
