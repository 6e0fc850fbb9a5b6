package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisOpTimeout = 2 * time.Second

// Redis defines a public type used by farmsession APIs.
//
// Redis is a Store backed by a redis client, for deployments where several
// processes share one session (a dashboard's backend-for-frontend fleet). Keys
// are namespaced under a configurable prefix. The fault-tolerance contract is
// unchanged: a down or slow redis degrades to absence/false, never to an error.
type Redis struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedis describes the newredis operation and its observable behavior.
//
// NewRedis returns a redis-backed store. An empty prefix defaults to "fs".
func NewRedis(client *redis.Client, prefix string, logger zerolog.Logger) *Redis {
	if prefix == "" {
		prefix = "fs"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

// Get describes the get operation and its observable behavior.
//
// Get reports the stored value and whether it was present. Connection errors
// and missing keys are both reported as absence.
func (r *Redis) Get(key string) (string, bool) {
	if r == nil || r.client == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("key", key).Msg("farmsession: redis store read failed")
		}
		return "", false
	}
	return v, true
}

// Set describes the set operation and its observable behavior.
//
// Set stores the value under key without expiry and reports whether the write
// succeeded. Failures are logged and reported as false.
func (r *Redis) Set(key, value string) bool {
	if r == nil || r.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("farmsession: redis store write failed")
		return false
	}
	return true
}

// Remove describes the remove operation and its observable behavior.
//
// Remove deletes the value under key and reports whether the delete succeeded.
// Deleting an absent key reports true.
func (r *Redis) Remove(key string) bool {
	if r == nil || r.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("farmsession: redis store delete failed")
		return false
	}
	return true
}
