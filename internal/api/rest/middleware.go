package rest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

const userIDKey = "user_id"

// requireAuth resolves the bearer token to a user ID and stores it in the
// request locals.
func (s *Server) requireAuth(c fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing Authorization header"})
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "expected 'Bearer <token>'"})
	}

	userID, err := s.auth.Verify(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid or expired token"})
	}

	c.Locals(userIDKey, userID)
	c.Locals("token", token)
	return c.Next()
}

func currentUserID(c fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// RateLimiter is a Redis-backed fixed window limiter keyed by client IP.
type RateLimiter struct {
	rdb     *redis.Client
	maxReqs int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(rdb *redis.Client, maxReqs int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, maxReqs: maxReqs, window: window}
}

// Handler returns the fiber middleware. Redis failures fail open.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		key := "echofind:ratelimit:" + c.IP()
		ctx := context.Background()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			rl.rdb.Expire(ctx, key, rl.window)
		}

		ttl, _ := rl.rdb.TTL(ctx, key).Result()
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxReqs))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rl.maxReqs)-count), 10))

		if count > int64(rl.maxReqs) {
			c.Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: "rate limit exceeded"})
		}
		return c.Next()
	}
}
