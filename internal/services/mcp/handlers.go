package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 25
)

// Asker routes free text and renders the reply
type Asker interface {
	Ask(ctx context.Context, text string) (models.RoutingDecision, models.Reply)
}

// Tools holds the collaborators the MCP tools call into
type Tools struct {
	asker      Asker
	faqs       interfaces.FaqIndex
	procedures interfaces.ProcedureIndex
	logger     arbor.ILogger
}

// NewTools creates the MCP tool set
func NewTools(asker Asker, faqs interfaces.FaqIndex, procedures interfaces.ProcedureIndex, logger arbor.ILogger) *Tools {
	return &Tools{
		asker:      asker,
		faqs:       faqs,
		procedures: procedures,
		logger:     logger,
	}
}

// Register adds every tool to the server
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(askTool(), t.handleAsk)
	s.AddTool(searchFaqTool(), t.handleSearchFaq)
	s.AddTool(searchProceduresTool(), t.handleSearchProcedures)
	s.AddTool(knowledgeStatusTool(), t.handleKnowledgeStatus)
	s.AddTool(refreshKnowledgeTool(), t.handleRefreshKnowledge)
}

func (t *Tools) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || text == "" {
		return errorResult("Error: text parameter is required"), nil
	}

	decision, reply := t.asker.Ask(ctx, text)

	t.logger.Debug().
		Str("kind", string(decision.Kind)).
		Bool("confident", decision.Confident).
		Msg("MCP ask routed")

	return textResult(formatAnswer(decision, reply)), nil
}

func (t *Tools) handleSearchFaq(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return errorResult("Error: query parameter is required"), nil
	}

	category := request.GetString("category", "")
	limit := searchLimit(request)

	results := t.faqs.Search(query, limit, knowledge.CategoryFilter(category))
	return textResult(formatFaqResults(query, results)), nil
}

func (t *Tools) handleSearchProcedures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return errorResult("Error: query parameter is required"), nil
	}

	results := t.procedures.Search(query, searchLimit(request), nil)
	return textResult(formatProcedureResults(query, results)), nil
}

func (t *Tools) handleKnowledgeStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses := []models.RefreshStatus{t.faqs.Status(), t.procedures.Status()}
	return textResult(formatStatuses("Knowledge Status", statuses)), nil
}

func (t *Tools) handleRefreshKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := request.GetString("collection", "all")

	var statuses []models.RefreshStatus
	switch collection {
	case knowledge.CollectionFaq:
		statuses = append(statuses, t.faqs.Refresh(ctx))
	case knowledge.CollectionProcedures:
		statuses = append(statuses, t.procedures.Refresh(ctx))
	case "", "all":
		statuses = append(statuses, t.faqs.Refresh(ctx), t.procedures.Refresh(ctx))
	default:
		return errorResult(fmt.Sprintf("Error: unknown collection %q (use faq, procedures or all)", collection)), nil
	}

	t.logger.Info().
		Str("collection", collection).
		Int("refreshed", len(statuses)).
		Msg("Refresh requested over MCP")

	return textResult(formatStatuses("Refresh Results", statuses)), nil
}

func searchLimit(request mcp.CallToolRequest) int {
	limit := request.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

func textResult(markdown string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(markdown),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
