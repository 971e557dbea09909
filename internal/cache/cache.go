// Package cache stores match results in Redis so repeated lookups of the same
// readings skip the repository.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"

	"github.com/blackmichael/postily/internal/domain"
)

const (
	keyPrefix  = "postily:matches:"
	DefaultTTL = 6 * time.Hour
)

var _ domain.MatchCache = (*Cache)(nil)

// Cache implements domain.MatchCache on Redis.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Cache, error) {
	if opts.Addr == "" {
		return nil, errors.New("missing redis address")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{rdb: rdb, ttl: opts.TTL, logger: logger}, nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Key derives the cache key for a set of references. Order and duplicates do
// not affect the key.
func Key(refs []string) string {
	set := append([]string(nil), refs...)
	sort.Strings(set)
	uniq := set[:0]
	for i, r := range set {
		if i == 0 || r != set[i-1] {
			uniq = append(uniq, r)
		}
	}
	sum := blake3.Sum256([]byte(strings.Join(uniq, "\n")))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// GetMatches returns cached matches. A missing key is a miss, not an error.
func (c *Cache) GetMatches(ctx context.Context, refs []string) ([]domain.MatchResult, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(refs)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var matches []domain.MatchResult
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, false, fmt.Errorf("decode cached matches: %w", err)
	}
	return matches, true, nil
}

// SetMatches stores matches under the key for refs with the configured TTL.
func (c *Cache) SetMatches(ctx context.Context, refs []string, matches []domain.MatchResult) error {
	raw, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(refs), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes every cached match set.
func (c *Cache) Invalidate(ctx context.Context) error {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("match cache invalidated", "deleted", deleted)
	}
	return nil
}
