package router

import (
	"fmt"
	"strings"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

const (
	acknowledgementText = "You're welcome! Ask away whenever you need something else."
	openProcedureText   = "Open procedure"
)

var collectionLabels = map[string]string{
	"faq":        "FAQ",
	"procedures": "Procedures",
}

// Reply renders a decision for the chat transport. Knowledge answers carry
// blocks; everything else is plain text.
func (r *Router) Reply(decision models.RoutingDecision) models.Reply {
	switch decision.Kind {
	case models.DecisionAcknowledge:
		return models.Reply{Text: acknowledgementText}
	case models.DecisionTrivialPrompt:
		return models.Reply{Text: r.trivialPrompt()}
	case models.DecisionMaintenanceAck:
		return models.Reply{Text: maintenanceText(decision.Refreshed)}
	case models.DecisionProcedureAnswer:
		return r.procedureReply(decision)
	case models.DecisionFaqAnswer:
		return faqReply(decision)
	default:
		return models.Reply{Text: decision.Text}
	}
}

func (r *Router) trivialPrompt() string {
	name := r.assistantName
	if name == "" {
		name = "I"
	} else {
		name = "I'm " + name + " and I"
	}
	return fmt.Sprintf("Hi! %s can answer questions about our procedures and FAQs. "+
		"Try a full question, or a prefix like `sop: open house` or `faq: commission split`.", name)
}

func maintenanceText(statuses []models.RefreshStatus) string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		label := collectionLabels[status.Collection]
		if label == "" {
			label = status.Collection
		}

		switch {
		case !status.Configured:
			lines = append(lines, fmt.Sprintf("%s: source not configured, nothing to refresh.", label))
		case status.LastError != "":
			lines = append(lines, fmt.Sprintf("%s: refresh failed (%s). Still serving %d items.",
				label, status.LastError, status.ItemCount))
		case status.Dropped > 0:
			lines = append(lines, fmt.Sprintf("%s: refreshed, %d items loaded (%d skipped).",
				label, status.ItemCount, status.Dropped))
		default:
			lines = append(lines, fmt.Sprintf("%s: refreshed, %d items loaded.", label, status.ItemCount))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Router) procedureReply(decision models.RoutingDecision) models.Reply {
	item := decision.Procedure
	if item == nil {
		return models.Reply{Text: decision.Text}
	}

	summary := item.Summary
	if summary == "" {
		summary = common.TruncateText(item.Content, r.summaryLength)
	}
	body := fmt.Sprintf("*%s*\n%s", item.Title, summary)

	var button *models.LinkButton
	text := body
	if item.SourceLink != "" {
		button = &models.LinkButton{Text: openProcedureText, URL: item.SourceLink}
		text = body + "\n" + item.SourceLink
	}

	return models.Reply{
		Text: text,
		Blocks: []models.Block{
			models.ContextBlock(fmt.Sprintf("Procedure for _%s_", decision.Query)),
			models.SectionBlock(body, button),
		},
	}
}

func faqReply(decision models.RoutingDecision) models.Reply {
	blocks := []models.Block{
		models.ContextBlock(fmt.Sprintf("FAQ results for _%s_", decision.Query)),
	}
	texts := make([]string, 0, len(decision.Faqs))

	for i, item := range decision.Faqs {
		if i > 0 {
			blocks = append(blocks, models.DividerBlock())
		}
		section := fmt.Sprintf("*%s*\n%s", item.Question, item.Answer)
		blocks = append(blocks, models.SectionBlock(section, nil))
		texts = append(texts, section)
	}

	return models.Reply{Text: strings.Join(texts, "\n\n"), Blocks: blocks}
}
