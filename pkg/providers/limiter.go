package providers

import (
	"golang.org/x/time/rate"
)

// defaultMaxRPS applies when a config leaves MaxRPS unset. Observation
// traffic is bursty but light; four requests per second keeps a study
// batch moving without hammering an endpoint.
const defaultMaxRPS = 4.0

// limiterFor returns the token bucket for a provider name, creating it
// on first use. Buckets are keyed by name so repeated calls against the
// same provider share one budget.
func (c *Client) limiterFor(cfg Config) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lim, ok := c.limiters[cfg.Name]; ok {
		return lim
	}
	lim := newLimiter(cfg.MaxRPS)
	c.limiters[cfg.Name] = lim
	return lim
}

func newLimiter(maxRPS float64) *rate.Limiter {
	if maxRPS <= 0 {
		maxRPS = defaultMaxRPS
	}
	burst := int(maxRPS)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(maxRPS), burst)
}
