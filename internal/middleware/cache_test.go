package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextaweke/internet-cafe/internal/config"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisCacheServesSecondRequestFromCache(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}

	e := echo.New()
	calls := 0
	h := NewRedisCache(cfg, rdb)(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Success", "data": calls})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/week", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/reports/:period")
		c.SetParamNames("period")
		c.SetParamValues("week")
		require.NoError(t, h(c))
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls, "handler must not run on a cache hit")
}

func TestRedisCacheKeyIncludesQuery(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}

	e := echo.New()
	calls := 0
	h := NewRedisCache(cfg, rdb)(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"data": c.QueryParam("date")})
	})

	do := func(target string) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/reports/daily")
		require.NoError(t, h(c))
	}

	do("/api/reports/daily?date=2026-08-01")
	do("/api/reports/daily?date=2026-08-02")
	assert.Equal(t, 2, calls, "different query strings must not share a cache entry")
}

func TestRedisCacheSkipsNonGet(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}

	e := echo.New()
	calls := 0
	h := NewRedisCache(cfg, rdb)(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/computers", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/computers")
		require.NoError(t, h(c))
	}
	assert.Equal(t, 2, calls)
}

func TestRedisCacheDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	h := NewRedisCache(config.CacheConfig{Enabled: false}, nil)(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/computers", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
	}
	assert.Equal(t, 2, calls)
}

func TestLoginLimiterBlocksAfterLimit(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.LoginLimitConfig{Enabled: true, Attempts: 3, Window: time.Minute}

	e := echo.New()
	h := NewLoginLimiter(cfg, rdb)(func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid credentials"})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, h(c))
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, do().Code)
	}
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoginLimiterFailsOpenWithoutRedis(t *testing.T) {
	cfg := config.LoginLimitConfig{Enabled: true, Attempts: 1, Window: time.Minute}

	e := echo.New()
	calls := 0
	h := NewLoginLimiter(cfg, nil)(func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
	}
	assert.Equal(t, 5, calls)
}
