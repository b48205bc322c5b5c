package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/adelhazem/social-gateway/internal/config"
	"github.com/adelhazem/social-gateway/pkg/logger"
)

// Redis key layout:
//
//	user:{id}:blocked          set of user ids blocked by {id}
//	user:{id}:ghost            "1" when hide-online is enabled
//	user:{id}:last_seen        RFC3339 timestamp
//	user:{id}:pending_senders  list of sender ids with undelivered messages
const (
	keyBlocked        = "user:%s:blocked"
	keyGhost          = "user:%s:ghost"
	keyLastSeen       = "user:%s:last_seen"
	keyPendingSenders = "user:%s:pending_senders"
)

// RedisUserStore implements UserStore against Redis. It is the swappable
// external key-value boundary for deployments that keep user projections
// in Redis instead of PostgreSQL.
type RedisUserStore struct {
	client *redis.Client
}

// NewRedisUserStore creates a new Redis-backed user store
func NewRedisUserStore(cfg config.RedisConfig) (*RedisUserStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return &RedisUserStore{client: rdb}, nil
}

// FindUserPrivacyFields fetches privacy fields for all given users using a
// single pipelined round-trip.
func (s *RedisUserStore) FindUserPrivacyFields(ctx context.Context, ids []string) ([]UserPrivacy, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("find_privacy_fields", start, err) }()

	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	blockedCmds := make([]*redis.StringSliceCmd, len(ids))
	ghostCmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		blockedCmds[i] = pipe.SMembers(ctx, fmt.Sprintf(keyBlocked, id))
		ghostCmds[i] = pipe.Get(ctx, fmt.Sprintf(keyGhost, id))
	}

	if _, err = pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch privacy fields: %w", err)
	}
	err = nil

	result := make([]UserPrivacy, 0, len(ids))
	for i, id := range ids {
		blocked, berr := blockedCmds[i].Result()
		if berr != nil && berr != redis.Nil {
			err = fmt.Errorf("failed to read blocked set for %s: %w", id, berr)
			return nil, err
		}
		ghost, gerr := ghostCmds[i].Result()
		if gerr != nil && gerr != redis.Nil {
			err = fmt.Errorf("failed to read ghost flag for %s: %w", id, gerr)
			return nil, err
		}
		result = append(result, UserPrivacy{
			UserID:           id,
			BlockedUserIDs:   blocked,
			HideOnlineStatus: ghost == "1",
		})
	}
	return result, nil
}

// GetGhostModePreference returns the persisted hide-online preference
func (s *RedisUserStore) GetGhostModePreference(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("get_ghost_mode", start, err) }()

	ghost, err := s.client.Get(ctx, fmt.Sprintf(keyGhost, id)).Result()
	if err == redis.Nil {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read ghost mode preference: %w", err)
	}
	return ghost == "1", nil
}

// UpdateLastSeen records the user's last-active timestamp
func (s *RedisUserStore) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	start := time.Now()
	var err error
	defer func() { observeQuery("update_last_seen", start, err) }()

	err = s.client.Set(ctx, fmt.Sprintf(keyLastSeen, id), t.Format(time.RFC3339), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// MarkMessagesDelivered drains the pending-senders list for the receiver.
// Read and delete run in one transaction so a concurrent reconnect cannot
// observe the same pending senders twice.
func (s *RedisUserStore) MarkMessagesDelivered(ctx context.Context, receiverID string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("mark_messages_delivered", start, err) }()

	key := fmt.Sprintf(keyPendingSenders, receiverID)

	pipe := s.client.TxPipeline()
	sendersCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)

	if _, err = pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to mark messages delivered: %w", err)
	}
	err = nil

	senders, lerr := sendersCmd.Result()
	if lerr != nil && lerr != redis.Nil {
		err = fmt.Errorf("failed to read pending senders: %w", lerr)
		return nil, err
	}
	return lo.Uniq(senders), nil
}

// Close closes the Redis connection
func (s *RedisUserStore) Close() error {
	return s.client.Close()
}
