package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
)

const (
	seqKey          = "registry:seq"
	registryKeyFmt  = "registry:%d"
	blacklistKeyFmt = "blacklist:%d"

	// How long a blacklist row outlives its already expired token. Keeps the
	// row visible to operators for a while, the token itself is dead either way.
	expiredEntryTTL = time.Minute
)

// TokenStore keeps the refresh registry and the blacklist in Redis. Drop-in
// alternative to the postgres repos for deployments that don't want the
// blacklist lookup on the database hot path.
//
// Token ids come from an INCR sequence, so they are unique for the lifetime
// of the Redis instance. Blacklist entries are written with SETNX: the first
// writer wins and everyone else gets ErrDuplicateRevocation, same contract as
// the unique primary key in postgres.
type TokenStore struct {
	rdb    *redis.Client
	prefix string
}

func NewTokenStore(rdb *redis.Client, prefix string) *TokenStore {
	if prefix == "" {
		prefix = "authd:"
	}
	return &TokenStore{rdb: rdb, prefix: prefix}
}

func (s *TokenStore) CreateRegistration(ctx context.Context, reg models.RefreshRegistration) (int64, error) {
	tokenID, err := s.rdb.Incr(ctx, s.prefix+seqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	key := s.prefix + fmt.Sprintf(registryKeyFmt, tokenID)
	err = s.rdb.HSet(ctx, key,
		"user_id", reg.UserID,
		"issued_at", reg.IssuedAt.Unix(),
		"expires_at", reg.Expiry.Unix(),
	).Err()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	return tokenID, nil
}

func (s *TokenStore) Insert(ctx context.Context, entry models.BlacklistEntry) error {
	ttl := time.Until(entry.Expiry)
	if ttl <= 0 {
		ttl = expiredEntryTTL
	}

	key := s.prefix + fmt.Sprintf(blacklistKeyFmt, entry.TokenID)
	value := fmt.Sprintf("%d:%d", entry.RegisteredAt.Unix(), entry.Expiry.Unix())

	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return apperrors.ErrDuplicateRevocation
	}
	return nil
}

func (s *TokenStore) Lookup(ctx context.Context, tokenID int64) (bool, error) {
	key := s.prefix + fmt.Sprintf(blacklistKeyFmt, tokenID)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// Prune walks blacklist keys and deletes the ones past expiry. Entries mostly
// age out on their own through TTL, the sweep keeps the contract exact for
// entries written with the fallback TTL.
func (s *TokenStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	var pruned int64

	iter := s.rdb.Scan(ctx, 0, s.prefix+"blacklist:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		value, err := s.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return pruned, fmt.Errorf("redis error: %w", err)
		}

		exp, ok := parseEntryExpiry(value)
		if !ok || !exp.Before(now) {
			continue
		}

		deleted, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return pruned, fmt.Errorf("redis error: %w", err)
		}
		pruned += deleted
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("redis error: %w", err)
	}

	return pruned, nil
}

func parseEntryExpiry(value string) (time.Time, bool) {
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] != ':' {
			continue
		}
		unix, err := strconv.ParseInt(value[i+1:], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(unix, 0), true
	}
	return time.Time{}, false
}
