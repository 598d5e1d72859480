package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/save-transaction", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Verify histogram has observation
	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "checkoutgate_request_duration_seconds" {
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "method" && lp.GetValue() == "POST" {
						if m.GetHistogram().GetSampleCount() != 1 {
							t.Errorf("expected 1 observation, got %d", m.GetHistogram().GetSampleCount())
						}
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected to find request_duration_seconds metric with method=POST")
	}
}

func TestMetricsMiddleware_RecordsRequestCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var m dto.Metric
	if err := metrics.RequestsTotal.WithLabelValues("GET", "ok").Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Counter.GetValue() != 1 {
		t.Errorf("expected count 1, got %f", m.Counter.GetValue())
	}
}

func TestMetricsMiddleware_StatusLabels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		label  string
	}{
		{"success", http.StatusOK, "ok"},
		{"validation failure", http.StatusBadRequest, "client_error"},
		{"csrf rejection", http.StatusForbidden, "client_error"},
		{"store failure", http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			metrics := NewMetrics(reg)

			handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, "/save-transaction", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			var m dto.Metric
			if err := metrics.RequestsTotal.WithLabelValues("POST", tt.label).Write(&m); err != nil {
				t.Fatal(err)
			}
			if m.Counter.GetValue() != 1 {
				t.Errorf("expected count 1 for label %q, got %f", tt.label, m.Counter.GetValue())
			}
		})
	}
}

func TestMetricsMiddleware_SkipsInternalEndpoints(t *testing.T) {
	for _, path := range []string{"/metrics", "/health"} {
		t.Run(path, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			metrics := NewMetrics(reg)

			handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, path, nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			metricFamilies, err := reg.Gather()
			if err != nil {
				t.Fatal(err)
			}
			for _, mf := range metricFamilies {
				if mf.GetName() == "checkoutgate_request_duration_seconds" {
					for _, m := range mf.GetMetric() {
						if m.GetHistogram().GetSampleCount() != 0 {
							t.Errorf("expected 0 observations for %s, got %d", path, m.GetHistogram().GetSampleCount())
						}
					}
				}
			}
		})
	}
}
