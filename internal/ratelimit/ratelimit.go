// Package ratelimit provides a per-identity fixed-window request limiter.
//
// Fixed-window means the counter resets at bucket boundaries rather than
// sliding continuously, so bursts of up to twice the nominal rate can pass
// across a boundary. State is process-local and unreplicated; a horizontally
// scaled deployment multiplies the effective limits accordingly.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Rule is a request budget over a window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Default budgets per endpoint class.
var (
	RuleLogin    = Rule{Max: 5, Window: 5 * time.Minute}
	RuleRegister = Rule{Max: 3, Window: time.Hour}
	RuleAPI      = Rule{Max: 100, Window: time.Minute}
)

// Result reports the outcome of a Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	// RetryAfter is the whole-second wait until the window rolls over.
	// Only meaningful when Allowed is false.
	RetryAfter int
}

type bucket struct {
	count     int
	resetTime time.Time
}

// Limiter tracks one counter per (identity, endpoint) key. Construct once
// and inject; the map is guarded by a mutex and a background sweep evicts
// expired buckets to bound memory.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
	now     func() time.Time

	sweepEvery time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewLimiter() *Limiter {
	l := &Limiter{
		buckets:    make(map[string]bucket),
		now:        time.Now,
		sweepEvery: time.Minute,
		stopCh:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Stop ends the background sweep.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Check admits or rejects one request for the (identity, endpoint) key under
// rule. A missing or expired bucket is replaced, never merged.
func (l *Limiter) Check(identity, endpoint string, rule Rule) Result {
	key := identity + ":" + endpoint
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetTime) {
		b = bucket{count: 1, resetTime: now.Add(rule.Window)}
		l.buckets[key] = b
		return Result{Allowed: true, Remaining: rule.Max - 1, ResetTime: b.resetTime}
	}

	b.count++
	l.buckets[key] = b

	if b.count > rule.Max {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  b.resetTime,
			RetryAfter: retryAfterSeconds(b.resetTime.Sub(now)),
		}
	}
	return Result{Allowed: true, Remaining: rule.Max - b.count, ResetTime: b.resetTime}
}

// Len returns the number of live buckets, for tests and metrics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.resetTime) {
			delete(l.buckets, key)
		}
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
