package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/concierge/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version needs no configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Concierge version %s\n", common.GetFullVersion())
	},
}
