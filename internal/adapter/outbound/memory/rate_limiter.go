// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/ratelimit"
)

// windowEntry tracks request counts for a single client key.
type windowEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter implements ratelimit.Limiter with per-key request windows
// held in memory. Thread-safe for concurrent access. Counters are shared
// mutable state across all in-flight requests for the same client, so the
// increment-and-compare happens under one lock acquisition.
// Includes background cleanup to prevent unbounded memory growth.
type RateLimiter struct {
	entries         map[string]*windowEntry
	mu              sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
}

// NewRateLimiter creates a new in-memory rate limiter with the default
// cleanup interval of 5 minutes.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(5 * time.Minute)
}

// NewRateLimiterWithConfig creates a new in-memory rate limiter with a custom
// cleanup interval (how often expired windows are removed).
func NewRateLimiterWithConfig(cleanupInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		entries:         make(map[string]*windowEntry),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}
}

// Allow checks if a request is allowed under the given windowed limit.
// A key's first request opens its window; requests beyond config.MaxRequests
// inside the window are denied until the window expires, at which point the
// counter resets.
func (r *RateLimiter) Allow(ctx context.Context, key string, config ratelimit.Config) (ratelimit.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.resetAt) {
		// First request, or a fresh window after expiry.
		r.entries[key] = &windowEntry{
			count:   1,
			resetAt: now.Add(config.Window),
		}
		return ratelimit.Result{
			Allowed:   true,
			Remaining: config.MaxRequests - 1,
		}, nil
	}

	if entry.count >= config.MaxRequests {
		retryAfter := entry.resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return ratelimit.Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	entry.count++
	return ratelimit.Result{
		Allowed:   true,
		Remaining: config.MaxRequests - entry.count,
	}, nil
}

// StartCleanup starts the background cleanup goroutine.
// The goroutine periodically removes expired windows.
// It stops when ctx is cancelled or Stop() is called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

// cleanup removes expired windows. Called only by the cleanup goroutine.
func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cleaned := 0

	for key, entry := range r.entries {
		if now.After(entry.resetAt) {
			delete(r.entries, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed",
			"cleaned_keys", cleaned,
			"remaining_keys", len(r.entries))
	}
}

// Stop gracefully stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (r *RateLimiter) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Size returns the current number of tracked keys.
// Useful for testing and monitoring memory usage.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Compile-time interface verification.
var _ ratelimit.Limiter = (*RateLimiter)(nil)
