package nonces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps nonces in redis, one key per nonce with the remaining
// lifetime as TTL.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	log       logrus.FieldLogger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		log:       logrus.WithField("component", "nonces").WithField("store", "redis"),
	}
}

// DialRedisStore connects to the configured redis and checks the connection.
func DialRedisStore(ctx context.Context, config *conf.RedisConfiguration) (*RedisStore, error) {
	opts, err := config.Options()
	if err != nil {
		return nil, fmt.Errorf("nonces: parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("nonces: connecting to redis: %w", err)
	}

	return NewRedisStore(client, config.KeyPrefix), nil
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) key(nonce string) string {
	return s.keyPrefix + nonce
}

// Issue uses SET NX so a live nonce is never overwritten.
func (s *RedisStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}

	value := clientIP(ctx)
	if value == "" {
		value = "issued"
	}

	ok, err := s.client.SetNX(ctx, s.key(nonce), value, ttl).Result()
	if err != nil {
		s.log.WithError(err).Error("failed to issue nonce")
		return fmt.Errorf("nonces: issuing nonce: %w", err)
	}
	if !ok {
		return ErrNonceAlreadyIssued
	}

	return nil
}

// Consume uses GETDEL so that of two concurrent redemptions only one sees
// the key.
func (s *RedisStore) Consume(ctx context.Context, nonce string) error {
	err := s.client.GetDel(ctx, s.key(nonce)).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNonceNotFound
	}
	if err != nil {
		s.log.WithError(err).Error("failed to consume nonce")
		return fmt.Errorf("nonces: consuming nonce: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
