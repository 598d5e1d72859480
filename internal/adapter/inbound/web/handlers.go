package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/transaction"
	"github.com/Checkout-Gate/checkoutgate/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Handler serves the storefront routes: the checkout page, the read-only
// catalog/config API, and the CSRF-protected mutating routes.
type Handler struct {
	checkout       *service.CheckoutService
	paypalClientID string
	metrics        *Metrics
	tmpl           *template.Template
}

// NewHandler creates the route handler. paypalClientID may be empty; the
// /config/paypal route then degrades to a 500 response instead of the
// process refusing to start. Metrics are attached by the Server when the
// middleware chain is assembled.
func NewHandler(checkout *service.CheckoutService, paypalClientID string) (*Handler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		checkout:       checkout,
		paypalClientID: paypalClientID,
		tmpl:           tmpl,
	}, nil
}

// Routes returns the route table as an http.Handler. The security middleware
// chain is composed around it by the Server, not here.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Static files (no-cache for JS to prevent stale code)
	staticSub, _ := fs.Sub(staticFS, "static")
	staticHandler := http.StripPrefix("/static/", http.FileServer(http.FS(staticSub)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		staticHandler.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /{$}", h.storefrontPage)
	mux.HandleFunc("GET /config/paypal", h.paypalConfig)
	mux.HandleFunc("GET /api/services", h.listServices)
	mux.HandleFunc("POST /api/validate-service", h.validateService)
	mux.HandleFunc("POST /save-transaction", h.saveTransaction)

	// Favicon handler to prevent browser error noise
	mux.Handle("GET /favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	return mux
}

// storefrontPage renders the checkout page with the per-request CSP nonce
// and the CSRF token the form echoes back on submission.
func (h *Handler) storefrontPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Nonce":     NonceFromContext(r.Context()),
		"CSRFToken": CSRFTokenFromContext(r.Context()),
		"Services":  h.checkout.Services(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		LoggerFromContext(r.Context()).Error("failed to render page", "error", err)
	}
}

// paypalConfig hands the payment gateway public client ID to the page.
// A missing ID is a named, safe-to-disclose configuration failure.
func (h *Handler) paypalConfig(w http.ResponseWriter, r *http.Request) {
	if h.paypalClientID == "" {
		LoggerFromContext(r.Context()).Error("paypal client ID requested but not configured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "PayPal client ID is not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientId": h.paypalClientID})
}

// listServices returns the full static catalog.
func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.checkout.Services())
}

// validateServiceRequest is the JSON request for /api/validate-service.
type validateServiceRequest struct {
	Name string `json:"name"`
}

// validateService resolves a client-selected service to its canonical price.
// The route is a POST and therefore CSRF-protected like every other POST,
// even though it performs no mutation.
func (h *Handler) validateService(w http.ResponseWriter, r *http.Request) {
	var req validateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid service selection"})
		return
	}

	svc, err := h.checkout.ValidateService(req.Name)
	if err != nil {
		// Unknown name: no price leaves the server.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid service selection"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": svc.Name, "price": svc.Price})
}

// saveTransaction runs the transaction intake pipeline.
func (h *Handler) saveTransaction(w http.ResponseWriter, r *http.Request) {
	var req transaction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  []transaction.FieldError{{Field: "payload", Message: "request body must be valid JSON"}},
		})
		return
	}

	rec, err := h.checkout.SaveTransaction(r.Context(), &req)
	if err != nil {
		var verr *transaction.ValidationError
		switch {
		case errors.As(err, &verr):
			if h.metrics != nil {
				h.metrics.ValidationFailedTotal.Inc()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"errors":  verr.Errors,
			})
		case errors.Is(err, service.ErrStoreWrite):
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   service.ErrStoreWrite.Error(),
			})
		default:
			// Unexpected: log and fall through to the generic 500 body.
			LoggerFromContext(r.Context()).Error("save transaction failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "Internal server error",
			})
		}
		return
	}

	if h.metrics != nil {
		h.metrics.TransactionsSavedTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Transaction saved successfully",
		"transaction": rec,
	})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
