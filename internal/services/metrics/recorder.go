package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

const namespace = "concierge"

// Recorder keeps the service's Prometheus metrics on a private registry
type Recorder struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	items     *prometheus.GaugeVec
	failures  *prometheus.GaugeVec
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	logger    arbor.ILogger
}

// NewRecorder creates the recorder and registers its collectors
func NewRecorder(logger arbor.ILogger) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Inbound messages by routing decision kind",
		}, []string{"kind", "confident"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_refreshes_total",
			Help:      "Knowledge refresh attempts by collection and outcome",
		}, []string{"collection", "outcome"}),
		items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knowledge_items",
			Help:      "Items in the current snapshot of each collection",
		}, []string{"collection"}),
		failures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knowledge_consecutive_failures",
			Help:      "Consecutive failed refreshes of each collection",
		}, []string{"collection"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 30, 60},
		}, []string{"route"}),
		logger: logger,
	}
}

// ObserveDecision counts one routing decision
func (r *Recorder) ObserveDecision(decision models.RoutingDecision) {
	r.decisions.WithLabelValues(string(decision.Kind), strconv.FormatBool(decision.Confident)).Inc()
}

// ObserveRefresh records a refresh outcome and the resulting collection size
func (r *Recorder) ObserveRefresh(status models.RefreshStatus) {
	outcome := "success"
	if !status.Healthy() {
		outcome = "failure"
	}
	r.refreshes.WithLabelValues(status.Collection, outcome).Inc()
	r.items.WithLabelValues(status.Collection).Set(float64(status.ItemCount))
	r.failures.WithLabelValues(status.Collection).Set(float64(status.ConsecutiveFailures))
}

// ObserveHTTP records one served request. route must come from a fixed set.
func (r *Recorder) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	r.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.latency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Subscribe feeds the recorder from routing and refresh events
func (r *Recorder) Subscribe(events interfaces.EventService) error {
	onRefresh := func(ctx context.Context, event interfaces.Event) error {
		if status, ok := event.Payload.(models.RefreshStatus); ok {
			r.ObserveRefresh(status)
		}
		return nil
	}

	if err := events.Subscribe(interfaces.EventKnowledgeRefreshed, onRefresh); err != nil {
		return err
	}
	if err := events.Subscribe(interfaces.EventKnowledgeRefreshFailed, onRefresh); err != nil {
		return err
	}
	if err := events.Subscribe(interfaces.EventMessageRouted, func(ctx context.Context, event interfaces.Event) error {
		if decision, ok := event.Payload.(models.RoutingDecision); ok {
			r.ObserveDecision(decision)
		}
		return nil
	}); err != nil {
		return err
	}

	r.logger.Debug().Msg("Metrics recorder subscribed to events")
	return nil
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
