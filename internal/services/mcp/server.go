package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/concierge/internal/common"
)

// NewServer builds an MCP server exposing the knowledge tools
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		"concierge",
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	tools.Register(s)
	return s
}
