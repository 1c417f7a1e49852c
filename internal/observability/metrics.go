package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments of the chat service. It satisfies
// chat.Observer; a nil *Metrics records nothing.
type Metrics struct {
	Messages           *prometheus.CounterVec
	CompletionFailures *prometheus.CounterVec
	ProfileWrites      *prometheus.CounterVec
	ExtractedFields    *prometheus.CounterVec
	StoreErrors        *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on reg. A nil reg uses the default
// registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)
	return &Metrics{
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Handled chat messages by reply path.",
		}, []string{"path"}),
		CompletionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_failures_total",
			Help:      "Completion service failures by reason.",
		}, []string{"reason"}),
		ProfileWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_writes_total",
			Help:      "Profile persistence attempts by result.",
		}, []string{"result"}),
		ExtractedFields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_fields_total",
			Help:      "Profile fields found in dialogue by field.",
		}, []string{"field"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Profile store and doctor directory failures by operation.",
		}, []string{"op"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"route", "status"}),
		gatherer: gatherer,
	}
}

func (m *Metrics) MessageHandled(path string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(path).Inc()
}

func (m *Metrics) CompletionFailed(reason string) {
	if m == nil {
		return
	}
	m.CompletionFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProfileWrite(result string) {
	if m == nil {
		return
	}
	m.ProfileWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) FieldExtracted(field string) {
	if m == nil {
		return
	}
	m.ExtractedFields.WithLabelValues(field).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler exposes the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
