package knowledge

import (
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/scoring"
)

const (
	CollectionFaq        = "faq"
	CollectionProcedures = "procedures"
)

// FaqStore is the FAQ collection
type FaqStore = Store[models.FaqItem]

// ProcedureStore is the procedure collection
type ProcedureStore = Store[models.ProcedureItem]

var faqDescriptor = Descriptor[models.FaqItem]{
	Collection: CollectionFaq,
	ID:         func(item models.FaqItem) string { return item.ID },
	Fields: func(item models.FaqItem) []scoring.Field {
		return []scoring.Field{
			scoring.Primary(item.Question),
			scoring.Secondary(item.Category),
			scoring.Body(item.Answer),
		}
	},
	Normalize: func(item models.FaqItem) models.FaqItem {
		item.ID = strings.TrimSpace(item.ID)
		item.Category = strings.TrimSpace(item.Category)
		item.Question = strings.TrimSpace(item.Question)
		item.Answer = strings.TrimSpace(item.Answer)
		return item
	},
}

var procedureDescriptor = Descriptor[models.ProcedureItem]{
	Collection: CollectionProcedures,
	ID:         func(item models.ProcedureItem) string { return item.ID },
	Fields: func(item models.ProcedureItem) []scoring.Field {
		return []scoring.Field{
			scoring.Primary(item.Title),
			scoring.Secondary(item.Summary),
			scoring.Secondary(strings.Join(item.Tags, " ")),
			scoring.Body(item.Content),
		}
	},
	Normalize: func(item models.ProcedureItem) models.ProcedureItem {
		item.ID = strings.TrimSpace(item.ID)
		item.Title = strings.TrimSpace(item.Title)
		item.Summary = strings.TrimSpace(item.Summary)
		item.Content = strings.TrimSpace(item.Content)
		item.SourceLink = strings.TrimSpace(item.SourceLink)

		tags := item.Tags[:0:0]
		for _, tag := range item.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		item.Tags = tags
		return item
	},
}

// NewFaqStore creates the FAQ collection
func NewFaqStore(source interfaces.KnowledgeSource[models.FaqItem], events interfaces.EventService, logger arbor.ILogger, options Options) *FaqStore {
	return NewStore(faqDescriptor, source, events, logger, options)
}

// NewProcedureStore creates the procedure collection
func NewProcedureStore(source interfaces.KnowledgeSource[models.ProcedureItem], events interfaces.EventService, logger arbor.ILogger, options Options) *ProcedureStore {
	return NewStore(procedureDescriptor, source, events, logger, options)
}

// CategoryFilter matches FAQ items whose category equals category, ignoring case.
// An empty category matches everything.
func CategoryFilter(category string) func(models.FaqItem) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}
	return func(item models.FaqItem) bool {
		return strings.EqualFold(item.Category, category)
	}
}
