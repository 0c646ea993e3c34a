package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

var errDisconnect = errors.New("slack requested disconnect")

// envelope is one Socket Mode frame
type envelope struct {
	EnvelopeID   string          `json:"envelope_id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	RetryAttempt int             `json:"retry_attempt"`
	Reason       string          `json:"reason"`
}

type ack struct {
	EnvelopeID string `json:"envelope_id"`
}

type eventsAPIPayload struct {
	Type  string       `json:"type"`
	Event messageEvent `json:"event"`
}

type messageEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	Text        string `json:"text"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	TS          string `json:"ts"`
	ThreadTS    string `json:"thread_ts"`
}

// SocketClient is the Socket Mode transport: it receives events over a
// websocket and posts replies through the Web API
type SocketClient struct {
	web          *WebClient
	dialer       *websocket.Dialer
	reconnectMax time.Duration
	logger       arbor.ILogger
}

// NewSocketClient creates the transport
func NewSocketClient(config common.SlackConfig, web *WebClient, logger arbor.ILogger) *SocketClient {
	return &SocketClient{
		web:          web,
		dialer:       &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		reconnectMax: common.ParseDurationOr(config.ReconnectMax, time.Minute),
		logger:       logger,
	}
}

// Run connects and serves events until ctx is cancelled, reconnecting with
// capped exponential backoff after disconnects and read errors
func (s *SocketClient) Run(ctx context.Context, handler interfaces.MessageHandler) error {
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = s.serve(ctx, conn, handler)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		s.logger.Info().Err(err).Msg("Socket Mode connection closed, reconnecting")
	}
}

// connect opens a fresh Socket Mode URL and dials it, retrying until ctx ends
func (s *SocketClient) connect(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.WithCappedDuration(s.reconnectMax, retry.NewExponential(500*time.Millisecond))

	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		wsURL, err := s.web.OpenConnection(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to open Socket Mode connection")
			return retry.RetryableError(err)
		}

		c, _, err := s.dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to dial Socket Mode websocket")
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("socket mode connect: %w", err)
	}
	return conn, nil
}

// serve reads frames until the connection fails, Slack asks to disconnect,
// or ctx is cancelled. Every envelope is acknowledged before it is handled.
func (s *SocketClient) serve(ctx context.Context, conn *websocket.Conn, handler interfaces.MessageHandler) error {
	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			writeMu.Unlock()
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn().Err(err).Msg("Ignoring malformed Socket Mode frame")
			continue
		}

		if env.EnvelopeID != "" {
			writeMu.Lock()
			err := conn.WriteJSON(ack{EnvelopeID: env.EnvelopeID})
			writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("failed to acknowledge envelope: %w", err)
			}
		}

		switch env.Type {
		case "hello":
			s.logger.Info().Msg("Socket Mode connected")
		case "disconnect":
			s.logger.Info().Str("reason", env.Reason).Msg("Socket Mode disconnect requested")
			return errDisconnect
		case "events_api":
			msg, ok := parseEvent(env.Payload)
			if !ok {
				continue
			}
			common.SafeGo(s.logger, "slack-dispatch", func() {
				s.dispatch(ctx, handler, msg)
			})
		default:
			s.logger.Debug().Str("type", env.Type).Msg("Ignoring Socket Mode envelope")
		}
	}
}

// dispatch routes one message and posts the reply, logging post failures
func (s *SocketClient) dispatch(ctx context.Context, handler interfaces.MessageHandler, msg models.InboundMessage) {
	reply, ok := handler.Handle(ctx, msg)
	if !ok || reply == nil {
		return
	}

	if err := s.Post(ctx, msg.ConversationID, msg.ThreadID, *reply); err != nil {
		s.logger.Warn().
			Err(err).
			Str("channel", msg.ConversationID).
			Msg("Failed to post reply")
	}
}

// Post sends a reply through the Web API
func (s *SocketClient) Post(ctx context.Context, conversationID, threadID string, reply models.Reply) error {
	return s.web.PostMessage(ctx, conversationID, threadID, reply)
}

// parseEvent maps an events_api payload to an inbound message. Direct messages
// arrive as message events, channel questions as app_mention events.
func parseEvent(raw json.RawMessage) (models.InboundMessage, bool) {
	var payload eventsAPIPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.InboundMessage{}, false
	}
	event := payload.Event

	switch event.Type {
	case "app_mention":
	case "message":
		if event.ChannelType != "im" {
			return models.InboundMessage{}, false
		}
		if event.Subtype != "" && event.Subtype != "bot_message" {
			return models.InboundMessage{}, false
		}
	default:
		return models.InboundMessage{}, false
	}

	threadID := event.ThreadTS
	if threadID == "" {
		threadID = event.TS
	}

	return models.InboundMessage{
		Text:            event.Text,
		ConversationID:  event.Channel,
		ThreadID:        threadID,
		UserID:          event.User,
		IsDirectMessage: event.ChannelType == "im",
		SenderIsBot:     event.BotID != "" || event.Subtype == "bot_message",
	}, true
}

var _ interfaces.ChatTransport = (*SocketClient)(nil)
