package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Checkout-Gate/checkoutgate/internal/adapter/outbound/memory"
	"github.com/Checkout-Gate/checkoutgate/internal/domain/ratelimit"
)

// dummyHandler returns a 200 OK with a fixed body for middleware testing.
func dummyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// --- Nonce / CSP Middleware Tests ---

func TestNonce_SetsCSPHeaders(t *testing.T) {
	handler := NonceMiddleware(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	csp := rec.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Fatal("Content-Security-Policy header not set")
	}
	if !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("CSP missing default-src 'self': %s", csp)
	}
	if !strings.Contains(csp, "'nonce-") {
		t.Errorf("CSP missing nonce source: %s", csp)
	}
	if !strings.Contains(csp, "'strict-dynamic'") {
		t.Errorf("CSP missing 'strict-dynamic': %s", csp)
	}
	if !strings.Contains(csp, "https://www.paypal.com") {
		t.Errorf("CSP missing paypal.com in script-src: %s", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("CSP missing frame-ancestors 'none': %s", csp)
	}

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", rec.Header().Get("X-Content-Type-Options"))
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", rec.Header().Get("X-Frame-Options"))
	}
	if rec.Header().Get("Referrer-Policy") != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q, want strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	}
}

func TestNonce_FreshPerRequest(t *testing.T) {
	var seen []string
	handler := NonceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, NonceFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 nonces, got %d", len(seen))
	}
	for i, nonce := range seen {
		if nonce == "" {
			t.Fatalf("nonce %d is empty", i)
		}
		for j := i + 1; j < len(seen); j++ {
			if nonce == seen[j] {
				t.Errorf("nonce reused across requests %d and %d: %s", i, j, nonce)
			}
		}
	}
}

func TestNonce_HeaderMatchesContext(t *testing.T) {
	var fromCtx string
	handler := NonceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = NonceFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "'nonce-"+fromCtx+"'") {
		t.Errorf("CSP header does not reference the context nonce %q: %s", fromCtx, csp)
	}
}

func TestNonceFromContext_MissingReturnsEmpty(t *testing.T) {
	if nonce := NonceFromContext(context.Background()); nonce != "" {
		t.Errorf("expected empty nonce without middleware, got %q", nonce)
	}
}

// --- CSRF Middleware Tests ---

func TestCSRF_SetsCookieOnGET(t *testing.T) {
	handler := CSRFMiddleware(nil)(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	cookies := rec.Result().Cookies()
	var csrfCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == csrfCookieName {
			csrfCookie = c
			break
		}
	}
	if csrfCookie == nil {
		t.Fatalf("expected %s cookie on GET", csrfCookieName)
	}
	if csrfCookie.HttpOnly {
		t.Error("CSRF cookie should NOT be HttpOnly (JS needs to read it)")
	}
	if csrfCookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("CSRF cookie SameSite = %v, want Strict", csrfCookie.SameSite)
	}
	if csrfCookie.Path != "/" {
		t.Errorf("CSRF cookie Path = %q, want /", csrfCookie.Path)
	}
	if csrfCookie.MaxAge != 86400 {
		t.Errorf("CSRF cookie MaxAge = %d, want 86400", csrfCookie.MaxAge)
	}
	if len(csrfCookie.Value) != 43 { // 32 bytes raw-url base64 = 43 chars
		t.Errorf("CSRF token length = %d, want 43", len(csrfCookie.Value))
	}
}

func TestCSRF_ExistingCookiePreserved(t *testing.T) {
	var fromCtx string
	handler := CSRFMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = CSRFTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := generateCSRFToken()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if fromCtx != token {
		t.Errorf("context token = %q, want the existing cookie token", fromCtx)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			t.Error("middleware re-issued the CSRF cookie despite a valid one on the request")
		}
	}
}

func TestCSRF_POSTWithoutToken_Returns403(t *testing.T) {
	handler := CSRFMiddleware(nil)(dummyHandler())

	req := httptest.NewRequest(http.MethodPost, "/save-transaction", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("POST without CSRF token: status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid CSRF token") {
		t.Errorf("expected CSRF error message, got: %s", rec.Body.String())
	}
}

func TestCSRF_POSTWithMismatchedToken_Returns403(t *testing.T) {
	handler := CSRFMiddleware(nil)(dummyHandler())

	req := httptest.NewRequest(http.MethodPost, "/save-transaction", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: generateCSRFToken()})
	req.Header.Set("X-CSRF-Token", generateCSRFToken())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("POST with mismatched token: status = %d, want 403", rec.Code)
	}
}

func TestCSRF_POSTWithHeaderButNoCookie_Returns403(t *testing.T) {
	handler := CSRFMiddleware(nil)(dummyHandler())

	req := httptest.NewRequest(http.MethodPost, "/save-transaction", strings.NewReader(`{}`))
	req.Header.Set("X-CSRF-Token", generateCSRFToken())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("POST with header but no cookie: status = %d, want 403", rec.Code)
	}
}

func TestCSRF_POSTWithValidToken_Succeeds(t *testing.T) {
	handler := CSRFMiddleware(nil)(dummyHandler())

	token := generateCSRFToken()
	req := httptest.NewRequest(http.MethodPost, "/save-transaction", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	req.Header.Set("X-CSRF-Token", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST with valid token: status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
}

// --- CORS Middleware Tests ---

func TestCORS_Wildcard(t *testing.T) {
	handler := CORSMiddleware([]string{"*"})(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORS_AllowlistedOriginEchoed(t *testing.T) {
	handler := CORSMiddleware([]string{"https://shop.example.com"})(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the allowlisted origin", got)
	}
	if vary := rec.Header().Get("Vary"); !strings.Contains(vary, "Origin") {
		t.Errorf("Vary = %q, want Origin", vary)
	}
}

func TestCORS_UnknownOriginDenied(t *testing.T) {
	handler := CORSMiddleware([]string{"https://shop.example.com"})(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want unset for unknown origin", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (CORS denies reads, not requests)", rec.Code)
	}
}

func TestCORS_PreflightAnsweredDirectly(t *testing.T) {
	reached := false
	handler := CORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/save-transaction", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if reached {
		t.Error("preflight request reached the inner handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-CSRF-Token") {
		t.Errorf("Access-Control-Allow-Headers = %q, want X-CSRF-Token included", got)
	}
}

// --- Rate Limit Middleware Tests ---

// withClientIP simulates the RealIP middleware for a request.
func withClientIP(r *http.Request, ip string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ClientIPKey, ip))
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	limiter := memory.NewRateLimiter()
	config := ratelimit.Config{MaxRequests: 3, Window: time.Minute}
	handler := RateLimitMiddleware(limiter, config, nil)(dummyHandler())

	for i := 0; i < 3; i++ {
		req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestRateLimit_DeniesOverLimit(t *testing.T) {
	limiter := memory.NewRateLimiter()
	config := ratelimit.Config{MaxRequests: 2, Window: time.Minute}
	handler := RateLimitMiddleware(limiter, config, nil)(dummyHandler())

	for i := 0; i < 2; i++ {
		req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.2")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), rateLimitMessage) {
		t.Errorf("body = %s, want the fixed rate limit message", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set on 429")
	}
}

func TestRateLimit_IndependentClients(t *testing.T) {
	limiter := memory.NewRateLimiter()
	config := ratelimit.Config{MaxRequests: 1, Window: time.Minute}
	handler := RateLimitMiddleware(limiter, config, nil)(dummyHandler())

	req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.3")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// A different client IP has its own window.
	req = withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.4")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_ExemptsInternalEndpoints(t *testing.T) {
	limiter := memory.NewRateLimiter()
	config := ratelimit.Config{MaxRequests: 1, Window: time.Minute}
	handler := RateLimitMiddleware(limiter, config, nil)(dummyHandler())

	// Exhaust the window.
	req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	for _, path := range []string{"/health", "/metrics"} {
		req := withClientIP(httptest.NewRequest(http.MethodGet, path, nil), "10.0.0.5")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 (exempt from rate limit)", path, rec.Code)
		}
	}
}

// failingLimiter always errors, to exercise the fail-open path.
type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, ratelimit.Config) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("limiter backend unavailable")
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	config := ratelimit.Config{MaxRequests: 1, Window: time.Minute}
	handler := RateLimitMiddleware(failingLimiter{}, config, nil)(dummyHandler())

	req := withClientIP(httptest.NewRequest(http.MethodGet, "/", nil), "10.0.0.6")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (fail open)", rec.Code)
	}
}
