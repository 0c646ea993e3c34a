package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/connectors/slack"
	"github.com/ternarybob/concierge/internal/handlers"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/services/classifier"
	"github.com/ternarybob/concierge/internal/services/events"
	"github.com/ternarybob/concierge/internal/services/knowledge"
	"github.com/ternarybob/concierge/internal/services/llm"
	"github.com/ternarybob/concierge/internal/services/metrics"
	"github.com/ternarybob/concierge/internal/services/router"
	"github.com/ternarybob/concierge/internal/services/scheduler"
	"github.com/ternarybob/concierge/internal/services/sources"
	"github.com/ternarybob/concierge/internal/services/status"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService
	Metrics          *metrics.Recorder

	// Knowledge
	Faqs       *knowledge.FaqStore
	Procedures *knowledge.ProcedureStore

	// Answering
	Classifier *classifier.Classifier
	Providers  *llm.ProviderFactory
	Fallback   *llm.FallbackAdapter
	Router     *router.Router

	StatusService *status.Service

	// Chat transport, nil unless Slack is enabled
	SlackBot *slack.Bot

	// HTTP handlers
	AskHandler     *handlers.AskHandler
	SearchHandler  *handlers.SearchHandler
	RefreshHandler *handlers.RefreshHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies. Nothing is fetched
// and no background work starts until Start is called.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("faq_configured", app.Faqs.Status().Configured).
		Bool("procedures_configured", app.Procedures.Status().Configured).
		Bool("llm_available", app.Providers.Available()).
		Bool("slack_enabled", cfg.Slack.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	a.Metrics = metrics.NewRecorder(a.Logger)
	if err := a.Metrics.Subscribe(a.EventService); err != nil {
		return fmt.Errorf("failed to subscribe metrics: %w", err)
	}

	options := knowledge.DefaultOptions()
	options.Timeout = common.ParseDurationOr(a.Config.Knowledge.RefreshTimeout, options.Timeout)

	a.Faqs = knowledge.NewFaqStore(
		sources.NewSheetSource(a.Config.Faq, a.Logger),
		a.EventService, a.Logger, options,
	)
	a.Procedures = knowledge.NewProcedureStore(
		sources.NewProcedureSource(a.Config.Procedures, a.Logger),
		a.EventService, a.Logger, options,
	)

	a.SchedulerService = scheduler.NewService(a.Config.Knowledge, a.Logger, a.Faqs, a.Procedures)

	a.Classifier = classifier.NewClassifier(a.Config.Classifier)
	a.Providers = llm.NewProviderFactory(a.Config, a.Logger)
	a.Fallback = llm.NewFallbackAdapter(a.Config, a.Providers, a.Logger)
	a.Router = router.NewRouter(a.Config, a.Classifier, a.Faqs, a.Procedures, a.Fallback, a.EventService, a.Logger)

	a.StatusService = status.NewService(a.Faqs, a.Procedures, a.SchedulerService)

	if a.Config.Slack.Enabled {
		bot, err := slack.NewBot(a.Config.Slack, a.Router, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create slack bot: %w", err)
		}
		a.SlackBot = bot
	}

	return nil
}

func (a *App) initHandlers() {
	a.AskHandler = handlers.NewAskHandler(a.Router, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.Faqs, a.Procedures, a.Config.Knowledge.SearchLimit, a.Logger)
	a.RefreshHandler = handlers.NewRefreshHandler(a.Faqs, a.Procedures, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
}

// Start begins scheduled refreshes and the chat transport
func (a *App) Start(ctx context.Context) error {
	if err := a.SchedulerService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if a.SlackBot != nil {
		if err := a.SlackBot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start slack bot: %w", err)
		}
	}
	return nil
}

// Close stops background work and releases provider clients
func (a *App) Close() error {
	if a.SlackBot != nil {
		a.SlackBot.Stop()
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
