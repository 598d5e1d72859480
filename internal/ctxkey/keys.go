// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with the request_id field.
type LoggerKey struct{}

// NonceKey is the context key type for the per-request CSP nonce.
// Set by the nonce middleware, read by the page handler at render time.
type NonceKey struct{}

// CSRFTokenKey is the context key type for the per-session CSRF token.
// Set by the CSRF middleware, read by the page handler so the form can echo it back.
type CSRFTokenKey struct{}
