package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
	"golang.org/x/time/rate"
)

// apiResponse is the envelope every Slack Web API method returns
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	URL   string `json:"url,omitempty"`
	TS    string `json:"ts,omitempty"`
}

type postMessageRequest struct {
	Channel  string  `json:"channel"`
	ThreadTS string  `json:"thread_ts,omitempty"`
	Text     string  `json:"text"`
	Blocks   []block `json:"blocks,omitempty"`
}

// WebClient calls the Slack Web API
type WebClient struct {
	client   *resty.Client
	appToken string
	botToken string
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewWebClient creates a Web API client. Posts are spaced by config.PostInterval.
func NewWebClient(config common.SlackConfig, logger arbor.ILogger) *WebClient {
	baseURL := strings.TrimSuffix(config.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})

	var limiter *rate.Limiter
	if interval := common.ParseDurationOr(config.PostInterval, 0); interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &WebClient{
		client:   client,
		appToken: config.AppToken,
		botToken: config.BotToken,
		limiter:  limiter,
		logger:   logger,
	}
}

// OpenConnection asks for a Socket Mode websocket URL using the app token
func (c *WebClient) OpenConnection(ctx context.Context) (string, error) {
	var result apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.appToken).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetResult(&result).
		Post("/apps.connections.open")
	if err != nil {
		return "", fmt.Errorf("apps.connections.open: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("apps.connections.open returned %d", resp.StatusCode())
	}
	if !result.OK {
		return "", fmt.Errorf("apps.connections.open: %s", result.Error)
	}
	if result.URL == "" {
		return "", fmt.Errorf("apps.connections.open: empty url")
	}
	return result.URL, nil
}

// PostMessage sends a reply to a channel, threaded when threadTS is set
func (c *WebClient) PostMessage(ctx context.Context, channel, threadTS string, reply models.Reply) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var result apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.botToken).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(postMessageRequest{
			Channel:  channel,
			ThreadTS: threadTS,
			Text:     reply.Text,
			Blocks:   renderBlocks(reply.Blocks),
		}).
		SetResult(&result).
		Post("/chat.postMessage")
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("chat.postMessage returned %d", resp.StatusCode())
	}
	if !result.OK {
		return fmt.Errorf("chat.postMessage: %s", result.Error)
	}

	c.logger.Debug().
		Str("channel", channel).
		Str("thread_ts", threadTS).
		Str("ts", result.TS).
		Msg("Posted reply")
	return nil
}
