package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/config"
)

// RedisStore persists snapshots as JSON values keyed by machine id.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "agentcore:sm:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL sets an expiry on saved snapshots. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a Redis-backed store. logger may be nil.
func NewRedisStore(client redis.UniversalClient, logger *zap.Logger, opts ...RedisOption) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RedisStore{
		client: client,
		prefix: "agentcore:sm:",
		logger: logger.With(zap.String("component", "redis_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromConfig creates a Redis-backed store with its own
// client, built from configuration.
func NewRedisStoreFromConfig(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	var opts []RedisOption
	if cfg.KeyPrefix != "" {
		opts = append(opts, WithKeyPrefix(cfg.KeyPrefix))
	}
	if cfg.TTL > 0 {
		opts = append(opts, WithTTL(cfg.TTL))
	}
	return NewRedisStore(client, logger, opts...)
}

func (s *RedisStore) key(machineID string) string {
	return s.prefix + machineID
}

// Save writes the snapshot as a JSON value.
func (s *RedisStore) Save(ctx context.Context, machineID, state string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	snap := Snapshot{
		MachineID: machineID,
		State:     state,
		Context:   raw,
		SavedAt:   time.Now(),
	}
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(machineID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", machineID, err)
	}
	s.logger.Debug("snapshot saved",
		zap.String("machine_id", machineID),
		zap.String("state", state),
	)
	return nil
}

// Load reads and decodes the snapshot, or returns ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, machineID string) (*Snapshot, error) {
	value, err := s.client.Get(ctx, s.key(machineID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", machineID, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", machineID, err)
	}
	return &snap, nil
}

// Delete removes the snapshot key.
func (s *RedisStore) Delete(ctx context.Context, machineID string) error {
	if err := s.client.Del(ctx, s.key(machineID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", machineID, err)
	}
	return nil
}
