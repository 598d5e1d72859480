// Package ratelimit provides rate limiting domain types.
package ratelimit

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Config defines the windowed rate limiting parameters.
type Config struct {
	// MaxRequests is the number of allowed requests in the window.
	MaxRequests int

	// Window is the time window for the limit. A client's first request
	// opens its window; the counter resets when the window expires.
	Window time.Duration
}

// Result contains the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Remaining is the number of remaining requests in the current window.
	Remaining int

	// RetryAfter is the duration until the window resets.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// keyPrefix is the base prefix for all rate limit keys.
const keyPrefix = "ratelimit:client:"

// ClientKey returns a structured rate limit key for a client identity.
// The identity (usually an IP address) is hashed with xxhash so map keys are
// bounded in size and the raw address never doubles as a map key.
func ClientKey(identity string) string {
	return keyPrefix + strconv.FormatUint(xxhash.Sum64String(identity), 16)
}
