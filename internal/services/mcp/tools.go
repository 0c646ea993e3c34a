package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	ToolAsk              = "ask"
	ToolSearchFaq        = "search_faq"
	ToolSearchProcedures = "search_procedures"
	ToolKnowledgeStatus  = "knowledge_status"
	ToolRefreshKnowledge = "refresh_knowledge"
)

func askTool() mcp.Tool {
	return mcp.NewTool(ToolAsk,
		mcp.WithDescription("Route a question the way the chat assistant would and return its reply and routing decision"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Message text, optionally prefixed with faq: to search the FAQ first"),
		),
	)
}

func searchFaqTool() mcp.Tool {
	return mcp.NewTool(ToolSearchFaq,
		mcp.WithDescription("Search the brokerage FAQ collection by relevance"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free text query"),
		),
		mcp.WithString("category",
			mcp.Description("Only return FAQs in this category (case-insensitive)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 5, max: 25)"),
		),
	)
}

func searchProceduresTool() mcp.Tool {
	return mcp.NewTool(ToolSearchProcedures,
		mcp.WithDescription("Search the procedure (SOP) collection by relevance"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free text query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 5, max: 25)"),
		),
	)
}

func knowledgeStatusTool() mcp.Tool {
	return mcp.NewTool(ToolKnowledgeStatus,
		mcp.WithDescription("Report item counts and last refresh outcome for both collections"),
	)
}

func refreshKnowledgeTool() mcp.Tool {
	return mcp.NewTool(ToolRefreshKnowledge,
		mcp.WithDescription("Reload collections from their sources"),
		mcp.WithString("collection",
			mcp.Description("faq, procedures or all (default: all)"),
			mcp.Enum("faq", "procedures", "all"),
		),
	)
}
