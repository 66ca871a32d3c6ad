package lfg

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CooldownError reports how long the caller has to wait before starting
// another call. It matches ErrCooldown.
type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: retry in %s", ErrCooldown, e.Wait.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

type cooldownKey struct {
	server string
	user   string
}

type cooldownEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown allows one call per period for each (server, user).
type Cooldown struct {
	mu      sync.Mutex
	period  time.Duration
	entries map[cooldownKey]*cooldownEntry
	now     func() time.Time
}

// NewCooldown returns nil for a non-positive period.
func NewCooldown(period time.Duration) *Cooldown {
	if period <= 0 {
		return nil
	}
	return &Cooldown{
		period:  period,
		entries: make(map[cooldownKey]*cooldownEntry),
		now:     time.Now,
	}
}

// Allow consumes the caller's token. When none is available it returns the
// time until the next one and false.
func (c *Cooldown) Allow(serverID, userID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey{server: serverID, user: userID}
	entry, ok := c.entries[key]
	if !ok {
		entry = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(c.period), 1)}
		c.entries[key] = entry
	}
	entry.lastSeen = now

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	c.prune(now)
	return 0, true
}

// prune drops entries whose bucket has refilled.
func (c *Cooldown) prune(now time.Time) {
	if len(c.entries) < 1024 {
		return
	}
	for key, entry := range c.entries {
		if now.Sub(entry.lastSeen) > c.period {
			delete(c.entries, key)
		}
	}
}
