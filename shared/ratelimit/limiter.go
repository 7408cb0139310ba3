// Package ratelimit is a fixed-window, in-memory limiter keyed by client IP.
// A key that exceeds its window is blocked for BlockDuration.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/metrics"
)

type entry struct {
	count      int
	resetAt    time.Time
	lastAccess time.Time
	blockUntil time.Time
}

// Config is one limit rule.
type Config struct {
	MaxRequests   int
	TimeWindow    time.Duration
	BlockDuration time.Duration
}

// FromConfig builds the general rule from the environment.
func FromConfig(cfg *config.Config) Config {
	return Config{
		MaxRequests:   cfg.RateLimitMaxRequests,
		TimeWindow:    cfg.RateLimitTimeWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}
}

type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	metrics *metrics.Metrics
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New starts a limiter that drops idle keys every cleanupEvery.
func New(cleanupEvery time.Duration, m *metrics.Metrics) *Limiter {
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		metrics: m,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup(cleanupEvery)
	return l
}

// WithClock overrides the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, e := range l.entries {
				if now.Sub(e.lastAccess) > 24*time.Hour {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow counts one request for key and reports whether it may proceed. The
// second value is how long a rejected caller should wait.
func (l *Limiter) Allow(key string, cfg Config) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(cfg.TimeWindow), lastAccess: now}
		return true, 0
	}
	e.lastAccess = now

	if now.Before(e.blockUntil) {
		return false, e.blockUntil.Sub(now)
	}
	if !now.Before(e.resetAt) {
		e.count = 1
		e.resetAt = now.Add(cfg.TimeWindow)
		return true, 0
	}
	if e.count >= cfg.MaxRequests {
		e.blockUntil = now.Add(cfg.BlockDuration)
		return false, cfg.BlockDuration
	}
	e.count++
	return true, 0
}

// Middleware rejects over-limit clients with 429. scope namespaces the keys
// so separate rules do not share counters.
func (l *Limiter) Middleware(scope string, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.Allow(scope+":"+c.ClientIP(), cfg)
		if !allowed {
			if l.metrics != nil {
				l.metrics.RecordRateLimitRejection(scope)
			}
			seconds := int(retryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": seconds,
			})
			return
		}
		c.Next()
	}
}
