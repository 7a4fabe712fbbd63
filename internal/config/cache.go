package config

import "time"

// CacheConfig controls the Redis response cache placed in front of the
// public verification reads.  Draw records are immutable, so draw lookups
// may be cached for longer than lottery listings; TTL applies to the latter
// and ImmutableTTL to draw and QR verification responses.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	ImmutableTTL time.Duration
	KeyStrategy  string // "route_query" or "full_url"
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables with defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		ImmutableTTL: envDur("CACHE_IMMUTABLE_TTL", 10*time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
