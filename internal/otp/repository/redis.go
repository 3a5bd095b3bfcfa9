package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"otp-session-auth/internal/otp/domain"
)

// DefaultRetention is how long a record survives in Redis after it was written.
// It is far longer than the validity window so expired codes are still seen
// (and reported as expired) rather than vanishing.
const DefaultRetention = 24 * time.Hour

const (
	fieldCode      = "code"
	fieldAttempts  = "attempts"
	fieldExpiresAt = "expires_at"
)

// incrementIfExists bumps the attempts field only when the hash exists, so a
// concurrent Delete cannot resurrect a half-empty record.
var incrementIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// RedisRepository stores each record as a hash under prefix:email.
type RedisRepository struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisRepository returns a Redis-backed OTP repository. Empty prefix
// defaults to "otp"; non-positive retention defaults to DefaultRetention.
func NewRedisRepository(client redis.UniversalClient, prefix string, retention time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = "otp"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisRepository{client: client, prefix: prefix, retention: retention}
}

func (s *RedisRepository) key(email string) string {
	return fmt.Sprintf("%s:%s", s.prefix, email)
}

// Put replaces the hash for email in one transaction.
func (s *RedisRepository) Put(ctx context.Context, email string, r *domain.Record) error {
	key := s.key(email)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldCode, r.Code,
			fieldAttempts, r.Attempts,
			fieldExpiresAt, r.ExpiresAt.UnixMilli(),
		)
		p.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("otp: redis put: %w", err)
	}
	return nil
}

// Get returns the record for email, or nil if the hash does not exist.
func (s *RedisRepository) Get(ctx context.Context, email string) (*domain.Record, error) {
	vals, err := s.client.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("otp: redis get: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	attempts, err := strconv.Atoi(vals[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("otp: redis get: attempts: %w", err)
	}
	expiresMs, err := strconv.ParseInt(vals[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp: redis get: expires_at: %w", err)
	}
	return &domain.Record{
		Code:      vals[fieldCode],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
	}, nil
}

// IncrementAttempts atomically adds one failed attempt.
func (s *RedisRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrementIfExists.Run(ctx, s.client, []string{s.key(email)}).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("otp: redis increment: %w", err)
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// Delete removes the hash for email.
func (s *RedisRepository) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("otp: redis delete: %w", err)
	}
	return nil
}
