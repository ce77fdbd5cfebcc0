package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/logger"
)

func NewRedisClient(cfg config.Config, log logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("can not connect Redis: %w", err)
	}

	log.Info("Connect Redis successfully.")
	return rdb, nil
}

const (
	revokedTokenPrefix = "auth:revoked:jti:"
	revokedEpochPrefix = "auth:revoked:viewer:"
)

type redisRevocationStore struct {
	rdb redis.Cmdable
}

func NewRedisRevocationStore(rdb redis.Cmdable) service.RevocationStore {
	return &redisRevocationStore{rdb: rdb}
}

func (s *redisRevocationStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeAllBefore stores a per-viewer epoch in Unix milliseconds; tokens issued
// before it are rejected. The key lives as long as the longest token could.
func (s *redisRevocationStore) RevokeAllBefore(ctx context.Context, viewerID uuid.UUID, before time.Time, ttl time.Duration) error {
	key := revokedEpochPrefix + viewerID.String()
	if err := s.rdb.Set(ctx, key, before.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke viewer tokens: %w", err)
	}
	return nil
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string, viewerID uuid.UUID, issuedAt time.Time) (bool, error) {
	pipe := s.rdb.Pipeline()
	tokenCmd := pipe.Exists(ctx, revokedTokenPrefix+tokenID)
	epochCmd := pipe.Get(ctx, revokedEpochPrefix+viewerID.String())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	if tokenCmd.Val() > 0 {
		return true, nil
	}

	epochStr, err := epochCmd.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read revocation epoch: %w", err)
	}
	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation epoch: %w", err)
	}
	return issuedAt.UnixMilli() < epoch, nil
}
