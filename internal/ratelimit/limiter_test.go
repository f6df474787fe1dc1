package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_UsesDifferentLimitsByScopeAndBucket(t *testing.T) {
	t.Parallel()

	limiter := New(Config{
		Window: time.Minute,
		Scopes: map[Scope]Limit{
			ScopeRead:   {IP: 2, Key: 4},
			ScopeWrite:  {IP: 1, Key: 3},
			ScopeStream: {IP: 5, Key: 10},
		},
	})
	now := time.Unix(1_700_000_000, 0).UTC()

	// Read/IP allows 2 then blocks.
	if r := limiter.Take(now, ScopeRead, BucketIP, "1.1.1.1"); !r.Allowed || r.Remaining != 1 {
		t.Fatalf("read ip #1 = %#v", r)
	}
	if r := limiter.Take(now, ScopeRead, BucketIP, "1.1.1.1"); !r.Allowed || r.Remaining != 0 {
		t.Fatalf("read ip #2 = %#v", r)
	}
	if r := limiter.Take(now, ScopeRead, BucketIP, "1.1.1.1"); r.Allowed || r.Remaining != 0 {
		t.Fatalf("read ip #3 = %#v", r)
	}

	// Read/key has higher limit.
	for i := 0; i < 4; i++ {
		r := limiter.Take(now, ScopeRead, BucketKey, "user-a")
		if !r.Allowed {
			t.Fatalf("read key #%d denied: %#v", i+1, r)
		}
	}
	if r := limiter.Take(now, ScopeRead, BucketKey, "user-a"); r.Allowed {
		t.Fatalf("read key #5 should be denied: %#v", r)
	}

	// Write/IP limit 1.
	if r := limiter.Take(now, ScopeWrite, BucketIP, "2.2.2.2"); !r.Allowed {
		t.Fatalf("write ip #1 denied: %#v", r)
	}
	if r := limiter.Take(now, ScopeWrite, BucketIP, "2.2.2.2"); r.Allowed {
		t.Fatalf("write ip #2 should be denied: %#v", r)
	}

	// Stream scope is counted separately from read for the same IP.
	for i := 0; i < 5; i++ {
		if r := limiter.Take(now, ScopeStream, BucketIP, "1.1.1.1"); !r.Allowed {
			t.Fatalf("stream ip #%d denied: %#v", i+1, r)
		}
	}
	if r := limiter.Take(now, ScopeStream, BucketIP, "1.1.1.1"); r.Allowed || r.Limit != 5 {
		t.Fatalf("stream ip #6 should be denied: %#v", r)
	}
}

func TestLimiter_UnconfiguredScopeIsUnlimited(t *testing.T) {
	t.Parallel()

	limiter := New(Config{Scopes: map[Scope]Limit{ScopeRead: {IP: 1}}})
	now := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 10; i++ {
		if r := limiter.Take(now, ScopeStream, BucketIP, "1.1.1.1"); !r.Allowed || r.Limit != 0 {
			t.Fatalf("stream #%d = %#v, want unlimited", i+1, r)
		}
	}
	if r := limiter.Take(now, ScopeRead, BucketKey, "user-a"); !r.Allowed || r.Limit != 0 {
		t.Fatalf("read key = %#v, want unlimited", r)
	}
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	t.Parallel()

	limiter := New(Config{
		Window: time.Minute,
		Scopes: map[Scope]Limit{ScopeRead: {IP: 1, Key: 1}},
	})
	t0 := time.Unix(1_700_000_000, 0).UTC()

	if r := limiter.Take(t0, ScopeRead, BucketIP, "1.1.1.1"); !r.Allowed {
		t.Fatalf("first request denied: %#v", r)
	}
	if r := limiter.Take(t0.Add(10*time.Second), ScopeRead, BucketIP, "1.1.1.1"); r.Allowed {
		t.Fatalf("second request should be denied: %#v", r)
	}
	if r := limiter.Take(t0.Add(61*time.Second), ScopeRead, BucketIP, "1.1.1.1"); !r.Allowed {
		t.Fatalf("request after reset denied: %#v", r)
	}
}

func TestLimiter_SweepsPreviousWindows(t *testing.T) {
	t.Parallel()

	limiter := New(Config{
		Window: time.Minute,
		Scopes: map[Scope]Limit{ScopeStream: {IP: 10}},
	})
	t0 := time.Unix(1_700_000_040, 0).UTC()

	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		limiter.Take(t0, ScopeStream, BucketIP, ip)
	}
	if got := limiter.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	limiter.Take(t0.Add(time.Minute), ScopeStream, BucketIP, "4.4.4.4")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("Len() after rollover = %d, want 1", got)
	}
}

func TestLimiter_ResetIn(t *testing.T) {
	t.Parallel()

	limiter := New(Config{Window: time.Minute, Scopes: map[Scope]Limit{ScopeRead: {IP: 1}}})
	r := limiter.Take(time.Unix(1_700_000_010, 0), ScopeRead, BucketIP, "1.1.1.1")
	if r.ResetAt != 1_700_000_040 || r.ResetIn != 30 {
		t.Fatalf("result = %#v, want reset at 1700000040 in 30s", r)
	}
}
