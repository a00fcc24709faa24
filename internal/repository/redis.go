package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zerotrust/platform/internal/domain"
)

const (
	defaultRedisPrefix = "zt:"

	// otpGrace keeps an expired record around long enough for Verify to
	// report it as expired rather than missing.
	otpGrace = time.Minute
)

// RedisOTPRepository stores OTP records as JSON values with a TTL.
type RedisOTPRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisOTPRepository creates a Redis-backed OTP store. An empty prefix
// defaults to "zt:".
func NewRedisOTPRepository(client *redis.Client, prefix string) *RedisOTPRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisOTPRepository{client: client, prefix: prefix}
}

func (r *RedisOTPRepository) key(userID uuid.UUID, purpose domain.OTPPurpose) string {
	return r.prefix + "otp:" + userID.String() + ":" + string(purpose)
}

func (r *RedisOTPRepository) Get(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (*domain.OTPRecord, error) {
	raw, err := r.client.Get(ctx, r.key(userID, purpose)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	var rec domain.OTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &rec, nil
}

func (r *RedisOTPRepository) Put(ctx context.Context, rec *domain.OTPRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt) + otpGrace
	if ttl <= 0 {
		ttl = otpGrace
	}
	if err := r.client.Set(ctx, r.key(rec.UserID, rec.Purpose), data, ttl).Err(); err != nil {
		return fmt.Errorf("put otp: %w", err)
	}
	return nil
}

func (r *RedisOTPRepository) Delete(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) error {
	if err := r.client.Del(ctx, r.key(userID, purpose)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// RedisSessionRepository stores sessions as JSON values expiring with the session.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionRepository creates a Redis-backed session store.
func NewRedisSessionRepository(client *redis.Client, prefix string) *RedisSessionRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisSessionRepository{client: client, prefix: prefix}
}

func (r *RedisSessionRepository) key(id uuid.UUID) string {
	return r.prefix + "session:" + id.String()
}

func (r *RedisSessionRepository) Put(ctx context.Context, s *domain.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
