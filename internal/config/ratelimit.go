package config

import "time"

// RateLimitConfig configures the Redis token bucket placed in front of
// reservation creation.  Every accepted request opens a hold and a payment
// session, so the default is a small burst per client IP and route that
// refills one token every RefillEvery.
type RateLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	TTL         time.Duration // idle buckets are dropped after this
	KeyStrategy string
	Prefix      string
	Debug       bool // expose the bucket key in X-RateLimit-Key
}

func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Burst:       envInt("RATE_LIMIT_BURST", 10),
		RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", 6*time.Second),
		TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:       envBool("RATE_LIMIT_DEBUG", false),
	}
	if rl.Burst < 1 {
		rl.Burst = 1
	}
	if rl.RefillEvery <= 0 {
		rl.RefillEvery = time.Second
	}
	// a bucket must outlive a full refill or it would reset to Burst early
	if full := time.Duration(rl.Burst) * rl.RefillEvery; rl.TTL < full {
		rl.TTL = full
	}
	return rl
}
