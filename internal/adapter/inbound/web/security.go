package web

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/Checkout-Gate/checkoutgate/internal/ctxkey"
	"github.com/Checkout-Gate/checkoutgate/internal/domain/ratelimit"
)

// csrfCookieName is the cookie carrying the CSRF secret.
const csrfCookieName = "checkout_csrf_token"

// rateLimitMessage is the fixed client-facing message for denied requests.
const rateLimitMessage = "Too many requests from this IP, please try again later."

// NonceKey is the context key for the per-request CSP nonce.
var NonceKey = ctxkey.NonceKey{}

// CSRFTokenKey is the context key for the CSRF token bound to the session cookie.
var CSRFTokenKey = ctxkey.CSRFTokenKey{}

// CORSMiddleware applies the cross-origin policy for the read-only API
// surface. The policy is deliberately permissive (no credentialed
// cross-origin requests exist): a "*" entry allows any origin, otherwise the
// request origin is echoed back only when allowlisted.
// Preflight OPTIONS requests are answered here and never reach the router.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAny = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowAny {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware applies the global windowed rate limit before route
// dispatch. The client identity comes from the RealIP middleware; internal
// endpoints (/health, /metrics) are exempt. Denied requests get a 429 with
// the fixed message and a Retry-After header.
func RateLimitMiddleware(limiter ratelimit.Limiter, config ratelimit.Config, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := ratelimit.ClientKey(ClientIPFromContext(r.Context()))
			result, err := limiter.Allow(r.Context(), key, config)
			if err != nil {
				// Fail open: a broken limiter must not take the site down.
				LoggerFromContext(r.Context()).Error("rate limiter check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				if metrics != nil {
					metrics.RateLimitedTotal.Inc()
				}
				retryAfter := int(result.RetryAfter.Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprintf(w, `{"error":%q}`, rateLimitMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NonceMiddleware generates a fresh 16-byte cryptographically random nonce
// per request, stores it in context for the page renderer, and emits the
// Content-Security-Policy header scoped to it. 'strict-dynamic' propagates
// trust from the nonce-tagged inline script to the scripts it loads (the
// PayPal SDK), so nothing else executes.
// Must run before any handler writes the response: CSP is a header.
func NonceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := generateNonce()

		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf("default-src 'self'; script-src 'self' 'nonce-%s' 'strict-dynamic' https://www.paypal.com; ", nonce)+
				"style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; "+
				"frame-src https://www.paypal.com; connect-src 'self' https://www.paypal.com; "+
				"frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		ctx := context.WithValue(r.Context(), NonceKey, nonce)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NonceFromContext retrieves the per-request CSP nonce.
// Returns an empty string if the nonce middleware did not run.
func NonceFromContext(ctx context.Context) string {
	if nonce, ok := ctx.Value(NonceKey).(string); ok {
		return nonce
	}
	return ""
}

// CSRFMiddleware provides Cross-Site Request Forgery protection.
//
// On safe methods (GET, HEAD, OPTIONS):
//   - Sets the CSRF token cookie if not already present.
//   - Stores the token in context so the page handler can embed it in the form.
//   - Does NOT validate tokens (safe methods are idempotent).
//
// On state-changing methods (POST):
//   - Requires the X-CSRF-Token header to match the checkout_csrf_token cookie.
//   - Mismatches or missing tokens result in 403. All POSTs are protected
//     uniformly, including the read-only /api/validate-service route.
func CSRFMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := r.Method

			// Safe methods: issue the token, then pass through.
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				token := ensureCSRFCookie(w, r)
				ctx := context.WithValue(r.Context(), CSRFTokenKey, token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Validate CSRF token.
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				writeCSRFFailure(w, metrics)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			if headerToken == "" || headerToken != cookie.Value {
				writeCSRFFailure(w, metrics)
				return
			}

			ctx := context.WithValue(r.Context(), CSRFTokenKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFTokenFromContext retrieves the CSRF token bound to the session cookie.
// Returns an empty string if the CSRF middleware did not run.
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(CSRFTokenKey).(string); ok {
		return token
	}
	return ""
}

// writeCSRFFailure writes the 403 response for a failed CSRF check.
func writeCSRFFailure(w http.ResponseWriter, metrics *Metrics) {
	if metrics != nil {
		metrics.CSRFRejectedTotal.Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"Invalid CSRF token"}`))
}

// ensureCSRFCookie sets the checkout_csrf_token cookie if it is not already
// present on the request, and returns the effective token. The cookie is
// readable by JavaScript (HttpOnly=false) so the frontend can include it as
// the X-CSRF-Token header on state-changing requests.
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value // Already has a token.
	}

	token := generateCSRFToken()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // JS must read this to send as header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400, // 24 hours
	})
	return token
}

// generateNonce returns 16 cryptographically random bytes, base64-encoded.
func generateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read should never fail on modern systems.
		return base64.StdEncoding.EncodeToString(make([]byte, 16))
	}
	return base64.StdEncoding.EncodeToString(b)
}

// generateCSRFToken returns a cryptographically random 32-byte token in
// URL-safe base64.
func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read should never fail on modern systems.
		// Fallback: return a zero-filled token (will still validate correctly).
		return strings.Repeat("0", 43)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
