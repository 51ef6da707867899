package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "storefront:"

// RedisStore keeps sessions in Redis hashes so several storefront replicas can share them
type RedisStore struct {
	client *redis.Client
	config Config
	logger *zap.Logger
}

// NewRedisStoreFromURL connects to redisURL and returns a store on it
func NewRedisStoreFromURL(redisURL string, config Config, logger *zap.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, config, logger), nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, config Config, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		config: config,
		logger: logger,
	}
}

// Create creates a new anonymous session
func (r *RedisStore) Create(ctx context.Context) (*Session, error) {
	s := newSession(uuid.New().String(), r.config.TTL)
	if err := r.write(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Get retrieves a session by id
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	result, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s := &Session{
		ID:            id,
		Authenticated: result["authenticated"] == "1",
		Token:         result["token"],
		Username:      result["username"],
		CreatedAt:     parseUnixTime(result["created_at"]),
		UpdatedAt:     parseUnixTime(result["updated_at"]),
		ExpiresAt:     parseUnixTime(result["expires_at"]),
	}
	if v := result["flashes"]; v != "" {
		if err := json.Unmarshal([]byte(v), &s.Flashes); err != nil {
			r.logger.Warn("dropping unreadable flashes", zap.String("session_id", id), zap.Error(err))
		}
	}

	if s.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	return s, nil
}

// Save writes s and refreshes its TTL
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	s.ExpiresAt = s.UpdatedAt.Add(r.config.TTL)
	if err := r.write(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) write(ctx context.Context, s *Session) error {
	flashes := ""
	if len(s.Flashes) > 0 {
		b, err := json.Marshal(s.Flashes)
		if err != nil {
			return fmt.Errorf("failed to encode flashes: %w", err)
		}
		flashes = string(b)
	}

	authenticated := "0"
	if s.Authenticated {
		authenticated = "1"
	}

	key := r.sessionKey(s.ID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":            s.ID,
		"authenticated": authenticated,
		"token":         s.Token,
		"username":      s.Username,
		"flashes":       flashes,
		"created_at":    s.CreatedAt.Unix(),
		"updated_at":    s.UpdatedAt.Unix(),
		"expires_at":    s.ExpiresAt.Unix(),
	})
	pipe.Expire(ctx, key, r.config.TTL)
	pipe.SAdd(ctx, r.activeSessionsKey(), s.ID)

	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	pipe.SRem(ctx, r.activeSessionsKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Count returns the size of the active-session set
func (r *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, r.activeSessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// Close closes the Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Prune removes ids whose session hash has expired from the active-session set.
// Redis expires the hashes themselves.
func (r *RedisStore) Prune(ctx context.Context) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.activeSessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	var removed int64
	for _, id := range ids {
		exists, err := r.client.Exists(ctx, r.sessionKey(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to check session %s: %w", id, err)
		}
		if exists == 0 {
			if err := r.client.SRem(ctx, r.activeSessionsKey(), id).Err(); err != nil {
				return removed, fmt.Errorf("failed to prune session %s: %w", id, err)
			}
			removed++
		}
	}
	return removed, nil
}

func (r *RedisStore) sessionKey(id string) string {
	return redisKeyPrefix + "session:" + id
}

func (r *RedisStore) activeSessionsKey() string {
	return redisKeyPrefix + "sessions:active"
}

func parseUnixTime(v string) time.Time {
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
