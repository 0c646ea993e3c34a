package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/concierge/internal/app"
	"github.com/ternarybob/concierge/internal/models"
)

var refreshJSON bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch both collections once and print their status",
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "Print statuses as JSON")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	statuses := application.SchedulerService.RunNow(ctx)

	if refreshJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	printStatuses(statuses)

	for _, s := range statuses {
		if s.Configured && !s.Healthy() {
			return fmt.Errorf("%s refresh failed", s.Collection)
		}
	}
	return nil
}

func printStatuses(statuses []models.RefreshStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tCONFIGURED\tITEMS\tDROPPED\tFAILURES\tERROR")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%d\t%s\n",
			s.Collection, s.Configured, s.ItemCount, s.Dropped, s.ConsecutiveFailures, s.LastError)
	}
	w.Flush()
}
