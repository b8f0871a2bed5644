package config

import "time"

// CacheConfig controls the redis response cache applied to the report and
// computer listing endpoints.  Only GET responses are cached; TTL keeps the
// dashboard fresh enough while absorbing its polling.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads cache settings from the environment with defaults.
func LoadCacheConfig() CacheConfig {
	ttl, err := time.ParseDuration(envStr("CACHE_TTL", "30s"))
	if err != nil {
		ttl = 30 * time.Second
	}
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     ttl,
		Prefix:  envStr("CACHE_PREFIX", "cache"),
	}
}

// LoginLimitConfig controls the fixed-window rate limit on /auth/login,
// which slows down credential stuffing.  Window counters live in redis.
type LoginLimitConfig struct {
	Enabled  bool
	Attempts int
	Window   time.Duration
}

// LoadLoginLimitConfig reads limiter settings from the environment.
func LoadLoginLimitConfig() LoginLimitConfig {
	window, err := time.ParseDuration(envStr("LOGIN_LIMIT_WINDOW", "1m"))
	if err != nil || window <= 0 {
		window = time.Minute
	}
	attempts := envInt("LOGIN_LIMIT_ATTEMPTS", 10)
	if attempts < 1 {
		attempts = 1
	}
	return LoginLimitConfig{
		Enabled:  envBool("LOGIN_LIMIT_ENABLED", true),
		Attempts: attempts,
		Window:   window,
	}
}
