// Package cache keeps per-user unread notification counters in redis.
//
// The counter is a read-through cache: the database stays the source of truth,
// writers only invalidate, and a redis failure degrades to a cache miss.
// Every Invalidate bumps a per-user generation; a count read from the database
// is stored only while the generation it was read under is still current.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix = "communitylink:unread:"
	genPrefix = "communitylink:unread-gen:"
	genTTL    = 24 * time.Hour
)

// UnreadCounter caches the number of unread notifications per user
type UnreadCounter interface {
	// Get returns the cached count. On a miss ok is false and gen is the
	// generation to hand to Set once the count has been read elsewhere.
	Get(ctx context.Context, userID int64) (count int, gen int64, ok bool)
	// Set stores count unless the user was invalidated after the Get that returned gen
	Set(ctx context.Context, userID int64, gen int64, count int)
	Invalidate(ctx context.Context, userIDs ...int64)
}

// setIfCurrent writes KEYS[1] only while KEYS[2] still holds the generation ARGV[1]
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Options configures the redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCounter is an UnreadCounter stored in redis
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCounter connects to redis and checks the connection
func NewRedisCounter(ctx context.Context, opts Options, logger zerolog.Logger) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisCounterFromClient(client, opts.TTL, logger), nil
}

// NewRedisCounterFromClient wraps an existing client
func NewRedisCounterFromClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCounter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCounter{client: client, ttl: ttl, logger: logger}
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func genKey(userID int64) string {
	return genPrefix + strconv.FormatInt(userID, 10)
}

// Get reads the count and the generation in one round trip. A redis error is
// reported as a miss with gen -1, which no later Set can match.
func (c *RedisCounter) Get(ctx context.Context, userID int64) (int, int64, bool) {
	vals, err := c.client.MGet(ctx, key(userID), genKey(userID)).Result()
	if err != nil {
		c.logger.Warn().Err(err).Int64("userID", userID).Msg("Unread counter lookup failed")
		return 0, -1, false
	}
	gen, err := parseInt(vals[1])
	if err != nil {
		return 0, -1, false
	}
	if vals[0] == nil {
		return 0, gen, false
	}
	n, err := parseInt(vals[0])
	if err != nil {
		return 0, gen, false
	}
	return int(n), gen, true
}

// parseInt reads an MGET value; a missing key counts as zero
func parseInt(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Set stores the count with the configured TTL if gen is still current
func (c *RedisCounter) Set(ctx context.Context, userID int64, gen int64, count int) {
	if gen < 0 {
		return
	}
	keys := []string{key(userID), genKey(userID)}
	err := setIfCurrent.Run(ctx, c.client, keys, gen, count, c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Int64("userID", userID).Msg("Unread counter store failed")
	}
}

// Invalidate drops the cached counts of the given users and bumps their generation
func (c *RedisCounter) Invalidate(ctx context.Context, userIDs ...int64) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), genTTL)
			pipe.Del(ctx, key(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Int("users", len(userIDs)).Msg("Unread counter invalidation failed")
	}
}

// Close releases the redis connection
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// NoopCounter never caches; every Get is a miss
type NoopCounter struct{}

func (NoopCounter) Get(context.Context, int64) (int, int64, bool) { return 0, 0, false }
func (NoopCounter) Set(context.Context, int64, int64, int)        {}
func (NoopCounter) Invalidate(context.Context, ...int64)          {}
