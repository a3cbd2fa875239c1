package config

import "time"

// CacheConfig controls the Redis response cache on GET /api/availability.
// Availability has to reflect holds taken seconds ago, so the cache ships
// disabled and, when turned on, keeps entries for a few seconds only.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // e.g. GET, HEAD
	TTL          time.Duration
	KeyStrategy  string // route | method_route | route_query | method_route_query
	Prefix       string
	MaxBodyBytes int // larger responses are served but not stored
}

func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		Methods:      map[string]bool{},
		TTL:          envDur("CACHE_TTL", 5*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "avail"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	for _, m := range envList("CACHE_METHODS", "GET") {
		c.Methods[m] = true
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Second
	}
	return c
}
