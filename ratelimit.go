package mqtt

import (
	"time"

	"github.com/bsm/ratelimit"
)

// RateLimiter bounds outbound packet write rate independently of
// transport backpressure, grounded on lybxkl-simq's use of
// github.com/bsm/ratelimit for exactly this purpose.
type RateLimiter struct {
	rl *ratelimit.RateLimiter
}

// NewRateLimiter allows up to rate writes per interval.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{rl: ratelimit.New(rate, interval)}
}

// Wait blocks, if necessary, until a write is permitted.
func (r *RateLimiter) Wait() {
	if r == nil || r.rl == nil {
		return
	}
	for r.rl.Limit() {
		time.Sleep(time.Millisecond)
	}
}
