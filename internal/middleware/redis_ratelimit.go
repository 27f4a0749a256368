package middleware

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLimiter shares fixed-window counters across instances through
// Redis. On Redis errors requests are let through.
type RedisLimiter struct {
	client  *redis.Client
	log     *logrus.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisLimiter connects to Redis and verifies the connection.
func NewRedisLimiter(addr, password string, db int, log *logrus.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisLimiter{
		client:  client,
		log:     log,
		prefix:  "txnservice:ratelimit:",
		timeout: 250 * time.Millisecond,
	}, nil
}

// Allow counts a request against the key's current window
func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	redisKey := l.prefix + key
	counter, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Warnf("Redis rate limiter incr failed: %v", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			l.log.Warnf("Redis rate limiter expire failed: %v", err)
		}
	}
	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return Decision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

// Close releases the Redis connection
func (l *RedisLimiter) Close() {
	_ = l.client.Close()
}
