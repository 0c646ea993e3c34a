package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/concierge/internal/common"
	"google.golang.org/genai"
)

type geminiBackend struct {
	config common.GeminiConfig

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiBackend(config common.GeminiConfig) *geminiBackend {
	return &geminiBackend{config: config}
}

func (g *geminiBackend) available() bool {
	_, err := common.ResolveAPIKey("gemini_api_key", g.config.APIKey)
	return err == nil
}

func (g *geminiBackend) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	apiKey, err := common.ResolveAPIKey("gemini_api_key", g.config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: g.config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *geminiBackend) generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = g.config.Model
	}

	contents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, err
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	temperature := request.Temperature
	if temperature <= 0 {
		temperature = g.config.Temperature
	}
	genConfig := &genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)}
	if request.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(request.MaxTokens)
	}
	if systemText != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("response has no candidates")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("response has no text")
	}

	return &ContentResponse{Text: text, Provider: ProviderGemini, Model: model}, nil
}

func (g *geminiBackend) close() {
	g.mu.Lock()
	g.client = nil
	g.mu.Unlock()
}
