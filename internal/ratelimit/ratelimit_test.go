package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_AllowWithinQuota(t *testing.T) {
	l := NewLimiter(Config{Quota: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if !l.Allow("u1") {
			t.Fatalf("Allow() call %d = false, want true", i+1)
		}
	}
	if l.Allow("u1") {
		t.Error("Allow() over quota = true, want false")
	}
}

func TestLimiter_PerUserIsolation(t *testing.T) {
	l := NewLimiter(Config{Quota: 2, Window: time.Minute})

	l.Allow("heavy")
	l.Allow("heavy")
	if l.Allow("heavy") {
		t.Error("Allow(heavy) over quota = true, want false")
	}

	if !l.Allow("light") {
		t.Error("Allow(light) = false, want true; other users must not be affected")
	}
}

func TestLimiter_SlidingWindowExpiry(t *testing.T) {
	l := NewLimiter(Config{Quota: 2, Window: 150 * time.Millisecond})

	if !l.Allow("u1") || !l.Allow("u1") {
		t.Fatal("initial Allow() calls = false, want true")
	}
	if l.Allow("u1") {
		t.Fatal("Allow() over quota = true, want false")
	}

	time.Sleep(300 * time.Millisecond)

	if !l.Allow("u1") {
		t.Error("Allow() after window expiry = false, want true")
	}
}

func TestLimiter_DenialHasNoSideEffects(t *testing.T) {
	l := NewLimiter(Config{Quota: 1, Window: 150 * time.Millisecond})

	if !l.Allow("u1") {
		t.Fatal("first Allow() = false, want true")
	}
	// Hammer denied attempts; they must not extend the window.
	for i := 0; i < 20; i++ {
		if l.Allow("u1") {
			t.Fatal("Allow() over quota = true, want false")
		}
	}

	time.Sleep(300 * time.Millisecond)

	if !l.Allow("u1") {
		t.Error("Allow() after expiry = false, want true; denied attempts must not count")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter(Config{Quota: 1, Window: time.Minute})

	l.Allow("u1")
	if l.Allow("u1") {
		t.Fatal("Allow() over quota = true, want false")
	}

	l.Reset()

	if !l.Allow("u1") {
		t.Error("Allow() after Reset = false, want true")
	}
	if got := l.Stats().Denied; got != 0 {
		t.Errorf("Denied after Reset = %d, want 0", got)
	}
}

func TestLimiter_Stats(t *testing.T) {
	l := NewLimiter(Config{Quota: 1, Window: time.Minute})

	l.Allow("a")
	l.Allow("b")
	l.Allow("a") // denied
	l.Allow("a") // denied

	stats := l.Stats()
	if stats.TrackedUsers != 2 {
		t.Errorf("TrackedUsers = %d, want 2", stats.TrackedUsers)
	}
	if stats.Denied != 2 {
		t.Errorf("Denied = %d, want 2", stats.Denied)
	}
}

func TestLimiter_ConcurrentAllow(t *testing.T) {
	const quota = 10
	l := NewLimiter(Config{Quota: quota, Window: time.Hour})

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("u1") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != quota {
		t.Errorf("admitted = %d, want exactly %d", got, quota)
	}
}
