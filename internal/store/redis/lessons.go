// Package redis caches per-volume lesson indexes so boundary validation does
// not refetch a volume's index page for every rollover check. The cache is
// strictly best-effort: every failure degrades to a miss and validation
// falls back to the live site.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dailymanna/manna/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefixLessons is the prefix for per-volume lesson index keys.
	KeyPrefixLessons = "manna:lessons:"

	// DefaultLessonTTL is how long a volume's lesson index stays cached.
	// Volume indexes only ever grow, so a day of staleness is harmless.
	DefaultLessonTTL = 24 * time.Hour

	opTimeout = 2 * time.Second
)

// LessonKey returns the Redis key for a volume's lesson index.
func LessonKey(volume int) string {
	return KeyPrefixLessons + strconv.Itoa(volume)
}

// LessonCache is a Redis-backed volume -> lesson index cache.
type LessonCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewLessonCache(client *redis.Client, ttl time.Duration, log logger.Logger) *LessonCache {
	if ttl <= 0 {
		ttl = DefaultLessonTTL
	}
	return &LessonCache{client: client, ttl: ttl, log: log}
}

// GetVolumeLessons returns the cached lesson numbers for a volume. The
// second result reports a hit; misses and Redis failures look the same to
// the caller.
func (c *LessonCache) GetVolumeLessons(volume int) ([]int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, LessonKey(volume)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("lesson cache read failed",
				logger.Int("volume", volume),
				logger.Error(err))
		}
		return nil, false
	}

	var lessons []int
	if err := json.Unmarshal(data, &lessons); err != nil {
		c.log.Warn("lesson cache entry malformed, ignoring",
			logger.Int("volume", volume),
			logger.Error(err))
		return nil, false
	}
	return lessons, true
}

// SetVolumeLessons caches a volume's lesson numbers. Write failures are
// logged and dropped.
func (c *LessonCache) SetVolumeLessons(volume int, lessons []int) {
	data, err := json.Marshal(lessons)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, LessonKey(volume), data, c.ttl).Err(); err != nil {
		c.log.Warn("lesson cache write failed",
			logger.Int("volume", volume),
			logger.Error(err))
	}
}
