package ratelimit

import "context"

// Limiter is the interface for rate limiting operations.
//
// Implementations count requests per key within a rolling window that opens
// at a client's first request and resets when it expires. The check must be
// atomic (increment-and-compare under one critical section) so concurrent
// requests for the same key never lose updates.
//
// The interface is storage-agnostic, allowing implementations backed by
// in-memory stores or shared backends.
type Limiter interface {
	// Allow checks if a request identified by key is allowed under the
	// given config. The key should be created by ClientKey.
	//
	// Allow atomically increments the counter for the key and returns the
	// result. When the request is denied, RetryAfter in the result
	// indicates when the window resets.
	Allow(ctx context.Context, key string, config Config) (Result, error)
}
