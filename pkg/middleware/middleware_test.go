package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gatheredValue finds a metric family by name and returns the value of its
// first metric (counter or histogram sample count).
func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name || len(fam.Metric) == 0 {
			continue
		}
		m := fam.Metric[0]
		if m.Counter != nil {
			return m.GetCounter().GetValue(), true
		}
		if m.Histogram != nil {
			return float64(m.GetHistogram().GetSampleCount()), true
		}
	}
	return 0, false
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.Label {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetricsRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := Metrics(WithRegistry(reg))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/pot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	if got, ok := gatheredValue(t, reg, "padsync_http_requests_total"); !ok || got != 1 {
		t.Errorf("http_requests_total = %v (found=%v), want 1", got, ok)
	}
	if got, ok := gatheredValue(t, reg, "padsync_http_request_duration_seconds"); !ok || got != 1 {
		t.Errorf("duration sample count = %v (found=%v), want 1", got, ok)
	}

	// The counter carries the method, path and status of the request.
	families, _ := reg.Gather()
	for _, fam := range families {
		if fam.GetName() != "padsync_http_requests_total" {
			continue
		}
		m := fam.Metric[0]
		if labelValue(m, "method") != "GET" || labelValue(m, "path") != "/pot" || labelValue(m, "status") != "418" {
			t.Errorf("labels = %v, want method=GET path=/pot status=418", m.Label)
		}
	}
}

func TestMetricsCustomNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := Metrics(WithRegistry(reg), WithNamespace("custom"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if _, ok := gatheredValue(t, reg, "custom_http_requests_total"); !ok {
		t.Error("expected custom_http_requests_total to be registered")
	}
}

func TestOpenTelemetryPassesThrough(t *testing.T) {
	// With no tracer provider installed the middleware must still be a
	// transparent pass-through.
	called := false
	handler := OpenTelemetry()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !called {
		t.Fatal("wrapped handler was not called")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestOpenTelemetryFilterSkips(t *testing.T) {
	handler := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/ws"
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("filtered request status = %d, want %d", rec.Code, http.StatusOK)
	}
}
