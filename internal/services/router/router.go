// Package router decides how one chat message is answered: a maintenance
// refresh, a canned reply, a knowledge item, or the generative fallback.
package router

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/classifier"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

// Router implements interfaces.MessageHandler. It holds no per-message state.
type Router struct {
	classifier    *classifier.Classifier
	faqs          interfaces.FaqIndex
	procedures    interfaces.ProcedureIndex
	answerer      interfaces.Answerer
	events        interfaces.EventService
	faqLimit      int
	summaryLength int
	assistantName string
	logger        arbor.ILogger
}

// NewRouter wires the router to both collections and the fallback answerer.
// events may be nil.
func NewRouter(
	config *common.Config,
	cls *classifier.Classifier,
	faqs interfaces.FaqIndex,
	procedures interfaces.ProcedureIndex,
	answerer interfaces.Answerer,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Router {
	faqLimit := config.Knowledge.FaqLimit
	if faqLimit <= 0 {
		faqLimit = 3
	}
	return &Router{
		classifier:    cls,
		faqs:          faqs,
		procedures:    procedures,
		answerer:      answerer,
		events:        events,
		faqLimit:      faqLimit,
		summaryLength: config.Procedures.SummaryLength,
		assistantName: config.Assistant.Name,
		logger:        logger,
	}
}

// Handle routes an inbound chat message. Bot senders and blank text are ignored.
func (r *Router) Handle(ctx context.Context, msg models.InboundMessage) (*models.Reply, bool) {
	if msg.SenderIsBot || strings.TrimSpace(msg.Text) == "" {
		return nil, false
	}

	decision, reply := r.Ask(ctx, msg.Text)

	r.logger.Debug().
		Str("conversation_id", msg.ConversationID).
		Str("kind", string(decision.Kind)).
		Str("topic", decision.Topic).
		Bool("direct", msg.IsDirectMessage).
		Msg("Message routed")

	return &reply, true
}

// Ask routes text, renders the reply and publishes the decision
func (r *Router) Ask(ctx context.Context, text string) (models.RoutingDecision, models.Reply) {
	decision := r.Route(ctx, text)
	reply := r.Reply(decision)

	if r.events != nil {
		if err := r.events.Publish(ctx, interfaces.Event{Type: interfaces.EventMessageRouted, Payload: decision}); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to publish routing event")
		}
	}

	return decision, reply
}

// Route classifies text and walks the fallback chain to a single decision
func (r *Router) Route(ctx context.Context, text string) models.RoutingDecision {
	c := r.classifier.Classify(text)

	switch {
	case c.Maintenance != models.MaintenanceNone:
		return r.maintain(ctx, c.Maintenance)
	case c.IsAcknowledgement:
		return models.RoutingDecision{Kind: models.DecisionAcknowledge}
	case c.IsTrivial:
		return models.RoutingDecision{Kind: models.DecisionTrivialPrompt, Query: c.CleanedText}
	}

	decision := r.lookup(ctx, c)
	decision.Topic = c.MatchedTopic
	return decision
}

// lookup walks the collections for a question. Procedures are consulted first
// unless the text carries the faq: prefix; a topic hint does not change that order.
func (r *Router) lookup(ctx context.Context, c classifier.Classification) models.RoutingDecision {
	query := c.CleanedText
	filter := knowledge.CategoryFilter(c.Category)

	if c.ControlMode == classifier.ControlFaq {
		if faqs := r.faqs.Search(query, r.faqLimit, filter); len(faqs) > 0 {
			return faqAnswer(query, faqs)
		}
		if item, ok := r.procedures.BestMatch(query); ok {
			return procedureAnswer(query, item, true)
		}
		return r.generative(ctx, query)
	}

	if item, ok := r.procedures.BestMatch(query); ok {
		return procedureAnswer(query, item, true)
	}
	if faqs := r.faqs.Search(query, r.faqLimit, filter); len(faqs) > 0 {
		return faqAnswer(query, faqs)
	}
	if hits := r.procedures.Search(query, 1, nil); len(hits) > 0 {
		return procedureAnswer(query, hits[0], false)
	}
	return r.generative(ctx, query)
}

func (r *Router) maintain(ctx context.Context, kind models.MaintenanceKind) models.RoutingDecision {
	decision := models.RoutingDecision{Kind: models.DecisionMaintenanceAck, Maintenance: kind}

	if kind == models.MaintenanceFaq || kind == models.MaintenanceAll {
		decision.Refreshed = append(decision.Refreshed, r.faqs.Refresh(ctx))
	}
	if kind == models.MaintenanceProcedures || kind == models.MaintenanceAll {
		decision.Refreshed = append(decision.Refreshed, r.procedures.Refresh(ctx))
	}

	r.logger.Info().
		Str("maintenance", string(kind)).
		Int("collections", len(decision.Refreshed)).
		Msg("On-demand knowledge refresh")

	return decision
}

func (r *Router) generative(ctx context.Context, query string) models.RoutingDecision {
	return models.RoutingDecision{
		Kind:  models.DecisionGenerativeAnswer,
		Query: query,
		Text:  r.answerer.Answer(ctx, query),
	}
}

func procedureAnswer(query string, item models.ProcedureItem, confident bool) models.RoutingDecision {
	return models.RoutingDecision{
		Kind:      models.DecisionProcedureAnswer,
		Query:     query,
		Procedure: &item,
		Confident: confident,
	}
}

func faqAnswer(query string, faqs []models.FaqItem) models.RoutingDecision {
	return models.RoutingDecision{
		Kind:  models.DecisionFaqAnswer,
		Query: query,
		Faqs:  faqs,
	}
}
