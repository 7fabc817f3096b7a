// Package redis serializes merges that touch the same records. Each id in
// the sorted {primary, duplicate} pair gets its own SetNX key, so any two
// merges sharing an id contend on at least one key.
package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getMergeLockTTL returns the lock TTL from the environment or the default.
// The TTL is a safety net against a crashed merge holding its locks forever;
// a healthy merge releases explicitly.
func (r *Redis) getMergeLockTTL() time.Duration {
	defaultTTL := 30 * time.Second

	ttlStr := os.Getenv("MERGE_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid MERGE_LOCK_TTL_SECONDS value '" + ttlStr + "', using default 30 seconds")
		return defaultTTL
	}

	return time.Duration(ttlSec) * time.Second
}

func lockKey(entityType, id string) string {
	return fmt.Sprintf("merge_lock:%s:%s", entityType, id)
}

// LockMerge locks every id in the pair. If any id is already held by
// another merge, previously acquired keys are released and the lock fails.
func (r *Redis) LockMerge(entityType string, ids []string, token string) (bool, error) {
	ttl := r.getMergeLockTTL()
	locked := []string{}
	for _, id := range ids {
		ok, err := r.Client.SetNX(context.Background(), lockKey(entityType, id), token, ttl).Result()
		if err != nil {
			for _, l := range locked {
				_ = r.unlockOne(entityType, l, token)
			}
			return false, err
		}
		if !ok {
			for _, l := range locked {
				_ = r.unlockOne(entityType, l, token)
			}
			return false, nil
		}
		locked = append(locked, id)
	}
	return true, nil
}

// UnlockMerge releases every id the given token still holds.
func (r *Redis) UnlockMerge(entityType string, ids []string, token string) error {
	var firstErr error
	for _, id := range ids {
		if err := r.unlockOne(entityType, id, token); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Redis) unlockOne(entityType, id, token string) error {
	ctx := context.Background()
	key := lockKey(entityType, id)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
