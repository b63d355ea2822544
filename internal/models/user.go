package models

import (
	"time"
)

type User struct {
	ID           int64
	CreatedAt    time.Time
	Username     string
	PasswordHash string

	// Minimal claim version this user still accepts. Bumping it invalidates
	// every token issued before the bump regardless of expiry.
	TokenVersion int64

	IsActive bool
	IsAdmin  bool
}
