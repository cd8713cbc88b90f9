package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyPrefix = "delivery:ratelimit:"
	rateLimitWindow    = time.Second
)

// RateLimit caps requests per second per client IP, counted in Redis so the
// limit holds across instances. When Redis is unreachable requests pass.
func RateLimit(rdb *redis.Client, limitPerSec int, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKeyPrefix + c.ClientIP()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warning("rate limiter unavailable", logger.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, rateLimitWindow)
		} else if ttl, _ := rdb.TTL(ctx, key).Result(); ttl < 0 {
			rdb.Expire(ctx, key, rateLimitWindow)
		}

		if count > int64(limitPerSec) {
			c.Header("Retry-After", "1")
			response.Abort(c, log, apperr.New(http.StatusTooManyRequests, apperr.CodeTooManyRequests, nil))
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limitPerSec))
		c.Next()
	}
}
