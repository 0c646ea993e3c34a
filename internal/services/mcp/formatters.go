package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

const previewLength = 300

// formatAnswer renders the reply text followed by the routing decision
func formatAnswer(decision models.RoutingDecision, reply models.Reply) string {
	var sb strings.Builder
	sb.WriteString(reply.Text)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(fmt.Sprintf("**Decision:** %s\n", decision.Kind))
	sb.WriteString(fmt.Sprintf("**Confident:** %t\n", decision.Confident))
	if decision.Query != "" {
		sb.WriteString(fmt.Sprintf("**Query:** %s\n", decision.Query))
	}
	if decision.Procedure != nil {
		sb.WriteString(fmt.Sprintf("**Procedure:** %s (%s)\n", decision.Procedure.Title, decision.Procedure.ID))
	}
	if len(decision.Faqs) > 0 {
		ids := make([]string, 0, len(decision.Faqs))
		for _, faq := range decision.Faqs {
			ids = append(ids, faq.ID)
		}
		sb.WriteString(fmt.Sprintf("**FAQs:** %s\n", strings.Join(ids, ", ")))
	}
	return sb.String()
}

func formatFaqResults(query string, items []models.FaqItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## FAQ Results for \"%s\" (%d results)\n\n", query, len(items)))

	if len(items) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, item.Question))
		sb.WriteString(fmt.Sprintf("**ID:** %s\n", item.ID))
		if item.Category != "" {
			sb.WriteString(fmt.Sprintf("**Category:** %s\n", item.Category))
		}
		sb.WriteString("\n")
		sb.WriteString(item.Answer)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

func formatProcedureResults(query string, items []models.ProcedureItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Procedure Results for \"%s\" (%d results)\n\n", query, len(items)))

	if len(items) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, item.Title))
		sb.WriteString(fmt.Sprintf("**ID:** %s\n", item.ID))
		if len(item.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(item.Tags, ", ")))
		}
		if item.SourceLink != "" {
			sb.WriteString(fmt.Sprintf("**Link:** %s\n", item.SourceLink))
		}
		sb.WriteString("\n")

		summary := item.Summary
		if summary == "" {
			summary = common.TruncateText(item.Content, previewLength)
		}
		sb.WriteString(summary)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

func formatStatuses(heading string, statuses []models.RefreshStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", heading))
	sb.WriteString("| Collection | Configured | Items | Dropped | Failures | Last success | Error |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")

	for _, s := range statuses {
		lastSuccess := "never"
		if s.LastSuccess != nil {
			lastSuccess = s.LastSuccess.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("| %s | %t | %d | %d | %d | %s | %s |\n",
			s.Collection, s.Configured, s.ItemCount, s.Dropped, s.ConsecutiveFailures, lastSuccess, s.LastError))
	}

	return sb.String()
}
