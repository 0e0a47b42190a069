package middlewares

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const reportLimitWindow = 24 * time.Hour

// ReportRateLimiter caps how many reports a user may file per day. It must
// run after AuthMiddleware. A nil client or non positive limit disables it.
func ReportRateLimiter(client *redis.Client, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if client == nil || limit <= 0 || user == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Create individual key for each user
		userKey := "report_limit:" + strconv.FormatInt(user.ID, 10)

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			slog.Warn("Report rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			if err := client.Expire(ctx, userKey, reportLimitWindow).Err(); err != nil {
				slog.Warn("Failed to set report limit TTL", "key", userKey, "error", err)
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			if retryAfter < 0 {
				retryAfter = reportLimitWindow
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail":      fmt.Sprintf("Daily report limit of %d reached. Please try again later.", limit),
				"retry_after": int(retryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}
