package ratelimit

import (
	"sync"
	"time"
)

type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	// ScopeStream covers media byte-range requests; players issue many per playback.
	ScopeStream Scope = "stream"
)

type BucketKind string

const (
	BucketIP  BucketKind = "ip"
	BucketKey BucketKind = "key"
)

// Limit is the number of requests allowed per window for each bucket kind.
// Zero disables limiting for that kind.
type Limit struct {
	IP  int
	Key int
}

type Config struct {
	Window time.Duration
	Scopes map[Scope]Limit
	// MaxEntries bounds the number of live buckets; stale ones are dropped when it
	// is exceeded. Zero means 100000.
	MaxEntries int
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64
	ResetIn   int64
}

type key struct {
	scope  Scope
	kind   BucketKind
	bucket string
}

type counter struct {
	windowStart int64
	count       int
}

// Limiter is a fixed-window counter keyed by scope, bucket kind and bucket.
// Buckets from earlier windows are swept once per window.
type Limiter struct {
	cfg     Config
	windowS int64

	mu        sync.Mutex
	entries   map[key]counter
	sweptFrom int64
}

func New(cfg Config) *Limiter {
	if cfg.Window < time.Second {
		cfg.Window = time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100000
	}
	return &Limiter{
		cfg:     cfg,
		windowS: int64(cfg.Window / time.Second),
		entries: make(map[key]counter, 1024),
	}
}

// Take counts one request against the bucket and reports whether it may proceed.
func (l *Limiter) Take(now time.Time, scope Scope, kind BucketKind, bucket string) Result {
	unixNow := now.Unix()
	limit := l.limit(scope, kind)
	if limit <= 0 {
		return Result{Allowed: true, ResetAt: unixNow}
	}

	start, resetAt := l.window(unixNow)
	k := key{scope: scope, kind: kind, bucket: bucket}

	l.mu.Lock()
	l.sweep(start)
	c := l.entries[k]
	if c.windowStart != start {
		c = counter{windowStart: start}
	}
	allowed := c.count < limit
	if allowed {
		c.count++
	}
	l.entries[k] = c
	l.mu.Unlock()

	return Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-c.count, 0),
		ResetAt:   resetAt,
		ResetIn:   max(resetAt-unixNow, 0),
	}
}

// Len is the number of buckets currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) window(unixNow int64) (start, resetAt int64) {
	start = unixNow / l.windowS * l.windowS
	return start, start + l.windowS
}

func (l *Limiter) limit(scope Scope, kind BucketKind) int {
	lim, ok := l.cfg.Scopes[scope]
	if !ok {
		return 0
	}
	if kind == BucketKey {
		return lim.Key
	}
	return lim.IP
}

// sweep drops buckets from earlier windows, at most once per window unless the
// map has outgrown MaxEntries. Callers hold l.mu.
func (l *Limiter) sweep(current int64) {
	if current <= l.sweptFrom && len(l.entries) <= l.cfg.MaxEntries {
		return
	}
	for k, c := range l.entries {
		if c.windowStart < current {
			delete(l.entries, k)
		}
	}
	l.sweptFrom = current
}
