package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string                `toml:"environment"` // "development" or "production"
	Server      ServerConfig          `toml:"server"`
	Logging     LoggingConfig         `toml:"logging"`
	Knowledge   KnowledgeConfig       `toml:"knowledge"`
	Faq         FaqSourceConfig       `toml:"faq"`
	Procedures  ProcedureSourceConfig `toml:"procedures"`
	Classifier  ClassifierConfig      `toml:"classifier"`
	Assistant   AssistantConfig       `toml:"assistant"`
	LLM         LLMConfig             `toml:"llm"`
	Gemini      GeminiConfig          `toml:"gemini"`
	Claude      ClaudeConfig          `toml:"claude"`
	Slack       SlackConfig           `toml:"slack"`
}

type ServerConfig struct {
	Port            int      `toml:"port" validate:"min=1,max=65535"`
	Host            string   `toml:"host"`
	AllowedOrigins  []string `toml:"allowed_origins"` // CORS; "*" allows any origin
	ShutdownTimeout string   `toml:"shutdown_timeout" validate:"durationstr"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"` // "stdout", "file"
	Dir    string   `toml:"dir"`                                               // Log directory (default: <exe dir>/logs)
}

// KnowledgeConfig controls refresh scheduling and answer sizes for both collections
type KnowledgeConfig struct {
	RefreshSchedule  string `toml:"refresh_schedule" validate:"cronspec"` // Cron with seconds, e.g. "0 */15 * * * *"
	RefreshOnStartup bool   `toml:"refresh_on_startup"`
	RefreshTimeout   string `toml:"refresh_timeout" validate:"durationstr"`
	FaqLimit         int    `toml:"faq_limit" validate:"min=1,max=10"` // Max FAQ items in one answer
	SearchLimit      int    `toml:"search_limit" validate:"min=1,max=100"`
}

// FaqSourceConfig locates the FAQ spreadsheet. Either SheetID (Sheets values API)
// or CSVURL (published CSV export) must be set for the collection to be populated.
type FaqSourceConfig struct {
	SheetID     string `toml:"sheet_id"`
	Range       string `toml:"range"`        // A1 range, e.g. "FAQ!A:C"
	APIKey      string `toml:"api_key"`      // Sheets API key
	AccessToken string `toml:"access_token"` // OAuth bearer token, takes priority over APIKey
	CSVURL      string `toml:"csv_url" validate:"omitempty,url"`
	BaseURL     string `toml:"base_url" validate:"omitempty,url"` // Sheets API endpoint override
	Timeout     string `toml:"timeout" validate:"durationstr"`
}

// ProcedureSourceConfig locates the procedure documents. A local directory, a GitHub
// folder, or both may be configured; items from both are merged.
type ProcedureSourceConfig struct {
	Dir           string             `toml:"dir"`
	Include       []string           `toml:"include"`       // doublestar globs relative to Dir
	LinkBaseURL   string             `toml:"link_base_url"` // Prefix used to build canonical links for local files
	SummaryLength int                `toml:"summary_length" validate:"min=40"`
	GitHub        GitHubSourceConfig `toml:"github"`
}

type GitHubSourceConfig struct {
	Owner      string   `toml:"owner"`
	Repo       string   `toml:"repo"`
	Path       string   `toml:"path"`
	Branch     string   `toml:"branch"`
	Token      string   `toml:"token"`
	Extensions []string `toml:"extensions"`
	Workers    int      `toml:"workers" validate:"min=0,max=32"` // Concurrent file downloads
	BaseURL    string   `toml:"base_url" validate:"omitempty,url"` // GitHub Enterprise / test override
}

// ClassifierConfig holds the domain vocabulary used by the intent classifier
type ClassifierConfig struct {
	Categories      []string `toml:"categories"`       // Allowed "<category>: <query>" prefixes
	ProcedureTopics []string `toml:"procedure_topics"` // Phrases that bias routing toward procedures
	MinTokens       int      `toml:"min_tokens" validate:"min=1"`
}

// AssistantConfig shapes the generative fallback persona
type AssistantConfig struct {
	Name         string `toml:"name" validate:"required"`
	Organisation string `toml:"organisation"`
	Domain       string `toml:"domain"`
	Apology      string `toml:"apology" validate:"required"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains settings shared by all providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
	Timeout         string      `toml:"timeout" validate:"durationstr"`
	RateLimit       string      `toml:"rate_limit" validate:"durationstr"` // Minimum interval between calls
	CacheSize       int         `toml:"cache_size" validate:"min=0"`    // Cached answers, 0 disables
	MaxRetries      int         `toml:"max_retries" validate:"min=0,max=10"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature" validate:"min=0,max=2"`
	BaseURL     string  `toml:"base_url" validate:"omitempty,url"` // Endpoint override (proxy / tests)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens" validate:"min=1"`
	Temperature float32 `toml:"temperature" validate:"min=0,max=1"`
	BaseURL     string  `toml:"base_url" validate:"omitempty,url"` // Endpoint override (proxy / tests)
}

// SlackConfig contains Socket Mode and Web API settings
type SlackConfig struct {
	Enabled      bool   `toml:"enabled"`
	AppToken     string `toml:"app_token"` // xapp- token for apps.connections.open
	BotToken     string `toml:"bot_token"` // xoxb- token for chat.postMessage
	APIBaseURL   string `toml:"api_base_url" validate:"omitempty,url"`
	PostInterval string `toml:"post_interval" validate:"durationstr"`
	ReconnectMax string `toml:"reconnect_max" validate:"durationstr"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8085,
			Host:            "localhost",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Knowledge: KnowledgeConfig{
			RefreshSchedule:  "0 */15 * * * *", // Every 15 minutes
			RefreshOnStartup: true,
			RefreshTimeout:   "2m",
			FaqLimit:         3,
			SearchLimit:      10,
		},
		Faq: FaqSourceConfig{
			Range:   "FAQ!A:C",
			BaseURL: "https://sheets.googleapis.com",
			Timeout: "30s",
		},
		Procedures: ProcedureSourceConfig{
			Include:       []string{"**/*.md", "**/*.markdown", "**/*.txt", "**/*.html", "**/*.htm", "**/*.pdf"},
			SummaryLength: 240,
			GitHub: GitHubSourceConfig{
				Branch:     "main",
				Extensions: []string{".md", ".markdown", ".txt", ".html"},
				Workers:    4,
			},
		},
		Classifier: ClassifierConfig{
			Categories: []string{
				"listings", "commission", "compliance", "marketing", "transactions",
				"onboarding", "technology", "payroll", "leads",
			},
			ProcedureTopics: []string{
				"open house", "checklist", "step by step", "steps to", "how do i submit",
				"how do i list", "listing input", "listing agreement", "closing", "escrow",
				"earnest money", "disclosure", "lockbox", "showing", "mls", "transaction file",
				"offer", "onboard", "sop", "procedure", "process for",
			},
			MinTokens: 3,
		},
		Assistant: AssistantConfig{
			Name:         "Concierge",
			Organisation: "the brokerage",
			Domain:       "real estate brokerage operations",
			Apology:      "Sorry, I couldn't come up with an answer right now. Please try again in a moment or ask your team lead.",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			Timeout:         "60s",
			RateLimit:       "1s",
			CacheSize:       256,
			MaxRetries:      2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.4,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   1024,
			Temperature: 0.4,
		},
		Slack: SlackConfig{
			APIBaseURL:   "https://slack.com/api",
			PostInterval: "1s",
			ReconnectMax: "1m",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := firstEnv("CONCIERGE_ENV", "GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("CONCIERGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CONCIERGE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging
	if level := os.Getenv("CONCIERGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CONCIERGE_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Knowledge
	if schedule := os.Getenv("CONCIERGE_REFRESH_SCHEDULE"); schedule != "" {
		config.Knowledge.RefreshSchedule = schedule
	}
	if onStartup := os.Getenv("CONCIERGE_REFRESH_ON_STARTUP"); onStartup != "" {
		if b, err := strconv.ParseBool(onStartup); err == nil {
			config.Knowledge.RefreshOnStartup = b
		}
	}

	// FAQ sheet
	if sheetID := os.Getenv("CONCIERGE_FAQ_SHEET_ID"); sheetID != "" {
		config.Faq.SheetID = sheetID
	}
	if sheetRange := os.Getenv("CONCIERGE_FAQ_RANGE"); sheetRange != "" {
		config.Faq.Range = sheetRange
	}
	if apiKey := firstEnv("CONCIERGE_FAQ_API_KEY", "GOOGLE_API_KEY"); apiKey != "" {
		config.Faq.APIKey = apiKey
	}
	if token := os.Getenv("CONCIERGE_FAQ_ACCESS_TOKEN"); token != "" {
		config.Faq.AccessToken = token
	}
	if csvURL := os.Getenv("CONCIERGE_FAQ_CSV_URL"); csvURL != "" {
		config.Faq.CSVURL = csvURL
	}

	// Procedures
	if dir := os.Getenv("CONCIERGE_PROCEDURES_DIR"); dir != "" {
		config.Procedures.Dir = dir
	}
	if linkBase := os.Getenv("CONCIERGE_PROCEDURES_LINK_BASE_URL"); linkBase != "" {
		config.Procedures.LinkBaseURL = linkBase
	}
	if owner := os.Getenv("CONCIERGE_PROCEDURES_GITHUB_OWNER"); owner != "" {
		config.Procedures.GitHub.Owner = owner
	}
	if repo := os.Getenv("CONCIERGE_PROCEDURES_GITHUB_REPO"); repo != "" {
		config.Procedures.GitHub.Repo = repo
	}
	if path := os.Getenv("CONCIERGE_PROCEDURES_GITHUB_PATH"); path != "" {
		config.Procedures.GitHub.Path = path
	}
	if branch := os.Getenv("CONCIERGE_PROCEDURES_GITHUB_BRANCH"); branch != "" {
		config.Procedures.GitHub.Branch = branch
	}
	if token := firstEnv("CONCIERGE_GITHUB_TOKEN", "GITHUB_TOKEN"); token != "" {
		config.Procedures.GitHub.Token = token
	}

	// LLM providers
	if provider := os.Getenv("CONCIERGE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if rateLimit := os.Getenv("CONCIERGE_LLM_RATE_LIMIT"); rateLimit != "" {
		config.LLM.RateLimit = rateLimit
	}
	if apiKey := firstEnv("CONCIERGE_GEMINI_API_KEY", "GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("CONCIERGE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if apiKey := firstEnv("CONCIERGE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("CONCIERGE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Slack
	if enabled := os.Getenv("CONCIERGE_SLACK_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Slack.Enabled = b
		}
	}
	if token := firstEnv("CONCIERGE_SLACK_APP_TOKEN", "SLACK_APP_TOKEN"); token != "" {
		config.Slack.AppToken = token
	}
	if token := firstEnv("CONCIERGE_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN"); token != "" {
		config.Slack.BotToken = token
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New()

	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		return ValidateRefreshSchedule(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("durationstr", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		_, err := time.ParseDuration(value)
		return err == nil
	})

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// scheduleParser accepts six-field cron expressions (with seconds) and descriptors like "@every 10m"
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateRefreshSchedule validates a refresh cron expression. An empty schedule
// disables periodic refresh.
func ValidateRefreshSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// ResolveAPIKey resolves an API key with environment variable priority.
// Resolution order: environment variables → config fallback → error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"CONCIERGE_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"CONCIERGE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		if value := firstEnv(envVarNames...); value != "" {
			return value, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
