package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

type stubAsker struct {
	text string
}

func (s *stubAsker) Ask(ctx context.Context, text string) (models.RoutingDecision, models.Reply) {
	s.text = text
	return models.RoutingDecision{
			Kind:      models.DecisionFaqAnswer,
			Query:     "commission",
			Faqs:      []models.FaqItem{{ID: "f1"}, {ID: "f2"}},
			Confident: true,
		},
		models.Reply{Text: "Here is what I found"}
}

func newTestTools(t *testing.T) (*Tools, *stubAsker) {
	t.Helper()
	logger := arbor.NewLogger()

	faqs := knowledge.NewFaqStore(nil, nil, logger, knowledge.DefaultOptions())
	faqs.ReplaceAll([]models.FaqItem{
		{ID: "f1", Category: "commission", Question: "What is the commission split?", Answer: "70/30"},
		{ID: "f2", Category: "payroll", Question: "When is commission paid?", Answer: "At closing"},
	})

	procedures := knowledge.NewProcedureStore(nil, nil, logger, knowledge.DefaultOptions())
	procedures.ReplaceAll([]models.ProcedureItem{
		{ID: "p1", Title: "Open House Procedure", Tags: []string{"marketing"}, Content: "Sign in every visitor", SourceLink: "https://wiki.example.com/open-house"},
	})

	asker := &stubAsker{}
	return NewTools(asker, faqs, procedures, logger), asker
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleAsk(t *testing.T) {
	tools, asker := newTestTools(t)

	result, err := tools.handleAsk(context.Background(), callRequest(map[string]any{"text": "faq: commission"}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Equal(t, "faq: commission", asker.text)
	assert.Contains(t, text, "Here is what I found")
	assert.Contains(t, text, "**Decision:** faq_answer")
	assert.Contains(t, text, "**FAQs:** f1, f2")
	assert.False(t, result.IsError)
}

func TestHandleAsk_MissingText(t *testing.T) {
	tools, _ := newTestTools(t)

	result, err := tools.handleAsk(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "text parameter is required")
}

func TestHandleSearchFaq(t *testing.T) {
	tools, _ := newTestTools(t)

	result, err := tools.handleSearchFaq(context.Background(), callRequest(map[string]any{"query": "commission"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "(2 results)")
	assert.Contains(t, text, "What is the commission split?")

	result, err = tools.handleSearchFaq(context.Background(), callRequest(map[string]any{"query": "commission", "category": "Payroll"}))
	require.NoError(t, err)
	text = resultText(t, result)
	assert.Contains(t, text, "(1 results)")
	assert.Contains(t, text, "When is commission paid?")

	result, err = tools.handleSearchFaq(context.Background(), callRequest(map[string]any{"query": "commission", "limit": float64(1)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "(1 results)")
}

func TestHandleSearchProcedures(t *testing.T) {
	tools, _ := newTestTools(t)

	result, err := tools.handleSearchProcedures(context.Background(), callRequest(map[string]any{"query": "open house"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Open House Procedure")
	assert.Contains(t, text, "**Tags:** marketing")
	assert.Contains(t, text, "https://wiki.example.com/open-house")

	result, err = tools.handleSearchProcedures(context.Background(), callRequest(map[string]any{"query": "zebra"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No results found.")
}

func TestHandleKnowledgeStatus(t *testing.T) {
	tools, _ := newTestTools(t)

	result, err := tools.handleKnowledgeStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "| faq |")
	assert.Contains(t, text, "| procedures |")
}

func TestHandleRefreshKnowledge_UnknownCollection(t *testing.T) {
	tools, _ := newTestTools(t)

	result, err := tools.handleRefreshKnowledge(context.Background(), callRequest(map[string]any{"collection": "listings"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown collection")
}

func TestSearchLimit(t *testing.T) {
	assert.Equal(t, defaultSearchLimit, searchLimit(callRequest(nil)))
	assert.Equal(t, defaultSearchLimit, searchLimit(callRequest(map[string]any{"limit": float64(0)})))
	assert.Equal(t, maxSearchLimit, searchLimit(callRequest(map[string]any{"limit": float64(500)})))
	assert.Equal(t, 3, searchLimit(callRequest(map[string]any{"limit": float64(3)})))
}
