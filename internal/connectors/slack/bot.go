package slack

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
)

// Bot runs a chat transport in the background, feeding it to the router
type Bot struct {
	transport interfaces.ChatTransport
	handler   interfaces.MessageHandler
	logger    arbor.ILogger
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
}

// NewBot creates a Socket Mode bot. Both tokens are required.
func NewBot(config common.SlackConfig, handler interfaces.MessageHandler, logger arbor.ILogger) (*Bot, error) {
	if config.AppToken == "" || config.BotToken == "" {
		return nil, fmt.Errorf("slack app_token and bot_token are required")
	}

	web := NewWebClient(config, logger)
	return NewBotWithTransport(NewSocketClient(config, web, logger), handler, logger), nil
}

// NewBotWithTransport creates a bot over any chat transport
func NewBotWithTransport(transport interfaces.ChatTransport, handler interfaces.MessageHandler, logger arbor.ILogger) *Bot {
	return &Bot{
		transport: transport,
		handler:   handler,
		logger:    logger,
	}
}

// Start runs the transport until Stop is called or ctx ends
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return fmt.Errorf("slack bot already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done

	common.SafeGo(b.logger, "slack-bot", func() {
		defer close(done)
		if err := b.transport.Run(runCtx, b.handler); err != nil {
			b.logger.Error().Err(err).Msg("Slack transport stopped")
		}
	})

	b.logger.Info().Msg("Slack bot started")
	return nil
}

// Stop cancels the transport and waits for it to return
func (b *Bot) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	b.logger.Info().Msg("Slack bot stopped")
}
