// Package web provides the HTTP transport adapter for the storefront.
//
// It wires the route table to the checkout service and composes the security
// middleware chain in front of it. The chain order is load-bearing:
// rate limiting runs globally before route dispatch, CORS precedes the
// cookie-dependent steps, nonce generation precedes CSP header emission, and
// CSRF verification runs last so the cookie secret is available to it.
package web
