package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/concierge/internal/app"
)

var (
	askJSON      bool
	askNoRefresh bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Route one question and print the reply",
	Long: `Loads both collections, routes the question exactly as a chat message would be
routed, and prints the reply. Use --json to see the routing decision.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the routing decision and reply as JSON")
	askCmd.Flags().BoolVar(&askNoRefresh, "no-refresh", false, "Skip loading the collections first")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if !askNoRefresh {
		application.SchedulerService.RunNow(ctx)
	}

	decision, reply := application.Router.Ask(ctx, strings.Join(args, " "))

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"decision": decision,
			"reply":    reply,
		})
	}

	fmt.Println(formatReply(reply))
	return nil
}
