package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
)

// ErrNoProvider is returned when no API key is available for the selected provider
var ErrNoProvider = errors.New("no generative provider configured")

// ProviderType names a generative backend
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderClaude ProviderType = "claude"
)

// ContentRequest is a provider-agnostic generation request. Zero Model,
// Temperature and MaxTokens take the provider's configured defaults.
type ContentRequest struct {
	Messages          []interfaces.Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ContentResponse is the generated text and where it came from
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider generates text for a request
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// backend is one vendor SDK behind the factory. generate makes a single
// attempt; retries are applied by the factory.
type backend interface {
	available() bool
	generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error)
	close()
}

// modelPrefixes maps explicit "<vendor>/" model prefixes to a provider
var modelPrefixes = []struct {
	prefix   string
	provider ProviderType
}{
	{"claude/", ProviderClaude},
	{"anthropic/", ProviderClaude},
	{"gemini/", ProviderGemini},
	{"google/", ProviderGemini},
}

// ProviderFactory routes each request to Gemini or Claude by model name and
// retries transient failures.
type ProviderFactory struct {
	defaultProvider ProviderType
	backends        map[ProviderType]backend
	retryConfig     *RetryConfig
	logger          arbor.ILogger
}

// NewProviderFactory creates the factory. Vendor clients are created on first use.
func NewProviderFactory(config *common.Config, logger arbor.ILogger) *ProviderFactory {
	defaultProvider := ProviderGemini
	if config.LLM.DefaultProvider == common.LLMProviderClaude {
		defaultProvider = ProviderClaude
	}

	return &ProviderFactory{
		defaultProvider: defaultProvider,
		backends: map[ProviderType]backend{
			ProviderGemini: newGeminiBackend(config.Gemini),
			ProviderClaude: newClaudeBackend(config.Claude),
		},
		retryConfig: NewRetryConfig(config.LLM.MaxRetries),
		logger:      logger,
	}
}

// DetectProvider picks the provider for a model string: an explicit vendor
// prefix first, then the "claude-" / "gemini-" model families, then the default.
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	lower := strings.ToLower(model)
	for _, p := range modelPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.provider
		}
	}
	switch {
	case strings.HasPrefix(lower, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(lower, "gemini-"):
		return ProviderGemini
	}
	return f.defaultProvider
}

// NormalizeModel strips a vendor prefix
func (f *ProviderFactory) NormalizeModel(model string) string {
	lower := strings.ToLower(model)
	for _, p := range modelPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return model[len(p.prefix):]
		}
	}
	return model
}

// Available reports whether the default provider has an API key
func (f *ProviderFactory) Available() bool {
	return f.backends[f.defaultProvider].available()
}

// GenerateContent sends the request to the provider selected by request.Model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	b := f.backends[provider]

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content")

	var resp *ContentResponse
	err := f.retryConfig.Do(ctx, f.logger, string(provider), func() error {
		var callErr error
		resp, callErr = b.generate(ctx, model, request)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	return resp, nil
}

// Close drops cached clients so the next call re-resolves API keys
func (f *ProviderFactory) Close() error {
	for _, b := range f.backends {
		b.close()
	}
	return nil
}
