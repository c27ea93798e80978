package resilience

import (
	"math/rand"
	"time"
)

// Backoff returns base doubled per extra attempt, spread by ±jitter (0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if jitter <= 0 {
		return d
	}
	spread := float64(d) * jitter
	return d + time.Duration(spread*(2*rand.Float64()-1))
}
