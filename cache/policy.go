package cache

import "time"

// Standard TTL durations.
const (
	TTLOneMinute    = time.Minute
	TTLFiveMinutes  = 5 * time.Minute
	TTLFiftyMinutes = 50 * time.Minute
)

// Policy resolves the TTL used for a cache write or refresh.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the policy used for derived artifacts.
// DefaultTTL: 50 minutes, MaxTTL: none.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: TTLFiftyMinutes,
	}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
