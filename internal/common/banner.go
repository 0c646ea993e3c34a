package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective knowledge sources
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Concierge", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Bool("faq_sheet", config.Faq.SheetID != "" || config.Faq.CSVURL != "").
		Str("procedures_dir", config.Procedures.Dir).
		Str("procedures_repo", config.Procedures.GitHub.Owner+"/"+config.Procedures.GitHub.Repo).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Bool("slack", config.Slack.Enabled).
		Msg("Concierge starting")
}
