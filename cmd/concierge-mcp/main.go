package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/concierge/internal/app"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/services/mcp"
)

func main() {
	if _, err := common.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// CONCIERGE_CONFIG may list several files separated by commas
	configPath := os.Getenv("CONCIERGE_CONFIG")
	if configPath == "" {
		configPath = "concierge.toml"
	}
	var configFiles []string
	for _, path := range strings.Split(configPath, ",") {
		path = strings.TrimSpace(path)
		if _, err := os.Stat(path); err == nil {
			configFiles = append(configFiles, path)
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol: log to file only and keep the chat transport off
	config.Logging.Output = []string{"file"}
	if config.Logging.Level == "info" || config.Logging.Level == "debug" || config.Logging.Level == "trace" {
		config.Logging.Level = "warn"
	}
	config.Slack.Enabled = false

	logger := common.InitLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Load both collections before serving; failures are reported by knowledge_status
	application.SchedulerService.RunNow(context.Background())

	tools := mcp.NewTools(application.Router, application.Faqs, application.Procedures, logger)
	mcpServer := mcp.NewServer(tools)

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
