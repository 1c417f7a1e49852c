package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCountEngineEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.MessageHandled("fallback")
	metrics.MessageHandled("fallback")
	metrics.MessageHandled("completion")
	metrics.CompletionFailed("timeout")
	metrics.ProfileWrite("ok")
	metrics.FieldExtracted("name")
	metrics.FieldExtracted("name")
	metrics.StoreError("get")

	if got := testutil.ToFloat64(metrics.Messages.WithLabelValues("fallback")); got != 2 {
		t.Fatalf("expected 2 fallback messages, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Messages.WithLabelValues("completion")); got != 1 {
		t.Fatalf("expected 1 completion message, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CompletionFailures.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ProfileWrites.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 profile write, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ExtractedFields.WithLabelValues("name")); got != 2 {
		t.Fatalf("expected 2 extracted names, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.StoreErrors.WithLabelValues("get")); got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.MessageHandled("fallback")
	metrics.CompletionFailed("transport")
	metrics.ProfileWrite("error")
	metrics.FieldExtracted("gender")
	metrics.StoreError("upsert")
	metrics.ObserveRequest("/health", "200", time.Millisecond)
	if metrics.Handler() == nil {
		t.Fatalf("expected a fallback handler")
	}
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")
	metrics.MessageHandled("completion")
	metrics.ObserveRequest("/api/v1/chat/messages", "200", 150*time.Millisecond)

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, `test_chat_messages_total{path="completion"} 1`) {
		t.Fatalf("expected message counter in exposition, got %s", body)
	}
	if !strings.Contains(body, "test_http_request_duration_seconds_count") {
		t.Fatalf("expected request histogram in exposition, got %s", body)
	}
}
