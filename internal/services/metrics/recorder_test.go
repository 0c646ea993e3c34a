package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/events"
)

// metricValue finds the value of one labelled series in the registry
func metricValue(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchesLabels(metric, labels) {
				if metric.GetCounter() != nil {
					return metric.GetCounter().GetValue()
				}
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if want != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func TestObserveDecision(t *testing.T) {
	r := NewRecorder(arbor.NewLogger())

	r.ObserveDecision(models.RoutingDecision{Kind: models.DecisionFaqAnswer, Confident: true})
	r.ObserveDecision(models.RoutingDecision{Kind: models.DecisionFaqAnswer, Confident: true})
	r.ObserveDecision(models.RoutingDecision{Kind: models.DecisionProcedureAnswer})

	assert.Equal(t, 2.0, metricValue(t, r, "concierge_routing_decisions_total", map[string]string{"kind": "faq_answer", "confident": "true"}))
	assert.Equal(t, 1.0, metricValue(t, r, "concierge_routing_decisions_total", map[string]string{"kind": "procedure_answer", "confident": "false"}))
}

func TestObserveRefresh(t *testing.T) {
	r := NewRecorder(arbor.NewLogger())

	r.ObserveRefresh(models.RefreshStatus{Collection: "faq", ItemCount: 12})
	r.ObserveRefresh(models.RefreshStatus{Collection: "faq", ItemCount: 12, LastError: "timeout", ConsecutiveFailures: 1})

	assert.Equal(t, 1.0, metricValue(t, r, "concierge_knowledge_refreshes_total", map[string]string{"collection": "faq", "outcome": "success"}))
	assert.Equal(t, 1.0, metricValue(t, r, "concierge_knowledge_refreshes_total", map[string]string{"collection": "faq", "outcome": "failure"}))
	assert.Equal(t, 12.0, metricValue(t, r, "concierge_knowledge_items", map[string]string{"collection": "faq"}))
	assert.Equal(t, 1.0, metricValue(t, r, "concierge_knowledge_consecutive_failures", map[string]string{"collection": "faq"}))
}

func TestSubscribe_RecordsEvents(t *testing.T) {
	logger := arbor.NewLogger()
	bus := events.NewService(logger)
	defer bus.Close()

	r := NewRecorder(logger)
	require.NoError(t, r.Subscribe(bus))

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventKnowledgeRefreshed,
		Payload: models.RefreshStatus{Collection: "procedures", ItemCount: 4},
	}))
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventMessageRouted,
		Payload: models.RoutingDecision{Kind: models.DecisionGenerativeAnswer},
	}))
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventMessageRouted,
		Payload: "not a decision",
	}))

	assert.Equal(t, 4.0, metricValue(t, r, "concierge_knowledge_items", map[string]string{"collection": "procedures"}))
	assert.Equal(t, 1.0, metricValue(t, r, "concierge_routing_decisions_total", map[string]string{"kind": "generative_answer"}))
}

func TestHandler_ServesExposition(t *testing.T) {
	r := NewRecorder(arbor.NewLogger())
	r.ObserveDecision(models.RoutingDecision{Kind: models.DecisionAcknowledge})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `concierge_routing_decisions_total{confident="false",kind="acknowledge"} 1`)
}
