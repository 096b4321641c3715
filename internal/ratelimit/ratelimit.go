// Package ratelimit implements the optional per-source-address connection
// rate limit from spec.md §6: N attempts per minute per address, excess
// closes with code 4004. Modeled as a plain token bucket guarded by a
// single mutex, in the same fine-grained-lock style as internal/registry
// rather than a background sweep goroutine — buckets are lazily refilled
// on Allow, so an idle limiter costs nothing.
package ratelimit

import (
	"sync"
	"time"
)

// Config tunes the bucket. Rate is attempts allowed per Window.
type Config struct {
	Rate   int
	Window time.Duration
}

func withDefaults(cfg Config) Config {
	if cfg.Rate <= 0 {
		cfg.Rate = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter tracks one bucket per source address.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     withDefaults(cfg),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a new connection attempt from addr is within the
// configured rate. Each call consumes one token if available.
func (l *Limiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[addr]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.Rate), lastRefill: now}
		l.buckets[addr] = b
	}

	elapsed := now.Sub(b.lastRefill)
	refillRate := float64(l.cfg.Rate) / l.cfg.Window.Seconds()
	b.tokens += elapsed.Seconds() * refillRate
	if b.tokens > float64(l.cfg.Rate) {
		b.tokens = float64(l.cfg.Rate)
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Forget drops the bucket for addr, bounding memory under address churn.
func (l *Limiter) Forget(addr string) {
	l.mu.Lock()
	delete(l.buckets, addr)
	l.mu.Unlock()
}
