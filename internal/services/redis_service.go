package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"north-backend/internal/database"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when an OAuth state is unknown or already
// consumed.
var ErrStateNotFound = errors.New("oauth state not found")

const oauthStateTTL = 10 * time.Minute

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{client: client}
}

// =============================================================================
// OAuth State
// =============================================================================

// StoreOAuthState records a state nonce for a pending authorization.
func (r *RedisService) StoreOAuthState(ctx context.Context, state string) error {
	return r.client.GetClient().Set(ctx, oauthStateKey(state), "1", oauthStateTTL).Err()
}

// ConsumeOAuthState validates and deletes the state in one round trip so a
// state can be redeemed at most once.
func (r *RedisService) ConsumeOAuthState(ctx context.Context, state string) error {
	_, err := r.client.GetClient().GetDel(ctx, oauthStateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrStateNotFound
	}
	return err
}

func oauthStateKey(state string) string {
	return fmt.Sprintf("oauth_state:%s", state)
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, "online_users", userID)
	pipe.HSet(ctx, userStatusKey(userID), map[string]interface{}{
		"status":     "online",
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, userStatusKey(userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, "online_users", userID)
	pipe.HSet(ctx, userStatusKey(userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, "online_users", userID).Result()
}

func userStatusKey(userID uint) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit counts requests under key within a fixed window; the
// counter expires with the window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	client := r.client.GetClient()

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
