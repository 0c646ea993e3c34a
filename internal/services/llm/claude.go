package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/concierge/internal/common"
)

type claudeBackend struct {
	config common.ClaudeConfig

	mu     sync.Mutex
	client *anthropic.Client
}

func newClaudeBackend(config common.ClaudeConfig) *claudeBackend {
	return &claudeBackend{config: config}
}

func (c *claudeBackend) available() bool {
	_, err := common.ResolveAPIKey("anthropic_api_key", c.config.APIKey)
	return err == nil
}

func (c *claudeBackend) getClient() (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	apiKey, err := common.ResolveAPIKey("anthropic_api_key", c.config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}

	// The factory owns retries
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if c.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.config.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	c.client = &client
	return c.client, nil
}

func (c *claudeBackend) generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error) {
	client, err := c.getClient()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = c.config.Model
	}

	messages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, err
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	temperature := request.Temperature
	if temperature <= 0 {
		temperature = c.config.Temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, errors.New("response has no text")
	}

	return &ContentResponse{Text: text.String(), Provider: ProviderClaude, Model: model}, nil
}

func (c *claudeBackend) close() {
	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
}
