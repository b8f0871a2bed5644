package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/alextaweke/internet-cafe/internal/config"
)

// NewLoginLimiter rate limits /auth/login per client IP using a fixed
// window counter in redis (INCR + EXPIRE on the first hit of each window).
// When the counter exceeds the configured attempts, the request is rejected
// with 429 and a Retry-After header.  Redis errors fail open: a broken cache
// must never lock staff out of the till.
func NewLoginLimiter(cfg config.LoginLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().Unix() / int64(cfg.Window.Seconds())
			key := fmt.Sprintf("login:%s:%d", c.RealIP(), window)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				_ = rdb.Expire(ctx, key, cfg.Window).Err()
			}
			if n > int64(cfg.Attempts) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"success": false,
					"message": "too many login attempts, try again later",
					"data":    nil,
				})
			}
			return next(c)
		}
	}
}
