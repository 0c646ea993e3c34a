package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
)

var (
	configFiles []string // Multiple --config flags supported, later files override earlier ones
	envFiles    []string

	// Global state, resolved before any subcommand runs
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Brokerage knowledge assistant",
	Long: `Concierge answers agent questions from the brokerage FAQ sheet and procedure
documents, falling back to a generative model when neither has an answer.
Without a subcommand it runs the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&envFiles, "env-file", nil, "Dotenv file to load before the environment is read (default .env)")
	registerServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd, askCmd, refreshCmd, versionCmd)
}

// loadConfig runs the startup sequence shared by every subcommand:
// .env -> defaults -> config files -> environment -> flags -> logger
func loadConfig(cmd *cobra.Command, args []string) error {
	if _, err := common.LoadDotEnv(envFiles...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("concierge.toml"); err == nil {
			configFiles = append(configFiles, "concierge.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Configuration loaded")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
