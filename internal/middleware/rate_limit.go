package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter provides fixed-window rate limiting backed by Redis. When Redis
// is unavailable requests are allowed through and the error is attached to
// the gin context.
type RateLimiter struct {
	redis *redis.Client
}

// NewRateLimiter connects to redisURL and verifies the connection.
func NewRateLimiter(redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RateLimiter{redis: client}, nil
}

func NewRateLimiterWithClient(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client}
}

// Client exposes the underlying connection so other Redis-backed middleware
// can share it.
func (rl *RateLimiter) Client() *redis.Client {
	return rl.redis
}

// RateLimitByIP limits requests per client IP and route.
func (rl *RateLimiter) RateLimitByIP(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:ip:%s:%s", c.FullPath(), c.ClientIP())
		rl.limit(c, key, maxRequests, window, "Too many requests. Please try again later.")
	}
}

// RateLimitByUser limits requests per authenticated user and route. It must
// run after AuthRequired.
func (rl *RateLimiter) RateLimitByUser(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}
		key := fmt.Sprintf("rate_limit:user:%s:%s", c.FullPath(), userID)
		rl.limit(c, key, maxRequests, window, "Too many requests from this account. Please try again later.")
	}
}

func (rl *RateLimiter) limit(c *gin.Context, key string, maxRequests int, window time.Duration, message string) {
	ctx := c.Request.Context()

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		_ = c.Error(fmt.Errorf("rate limiter error: %w", err))
		c.Next()
		return
	}

	// Start the window on the first hit
	if count == 1 {
		rl.redis.Expire(ctx, key, window)
	}

	if count > int64(maxRequests) {
		ttl, _ := rl.redis.TTL(ctx, key).Result()
		if ttl < 0 {
			ttl = window
		}

		c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
		abortWithError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", message)
		return
	}

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

	c.Next()
}

func (rl *RateLimiter) Close() error {
	return rl.redis.Close()
}

// TokenRevoker stores ids of logged-out tokens until they would have expired.
type TokenRevoker struct {
	redis *redis.Client
}

func NewTokenRevoker(client *redis.Client) *TokenRevoker {
	return &TokenRevoker{redis: client}
}

func revokedKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

func (r *TokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.redis.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

func (r *TokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redis.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
