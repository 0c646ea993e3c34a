package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"google.golang.org/genai"
)

func clearKeyEnv(t *testing.T) {
	for _, name := range []string{"CONCIERGE_GEMINI_API_KEY", "GEMINI_API_KEY", "CONCIERGE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestProviderFactory_DetectProvider(t *testing.T) {
	config := common.NewDefaultConfig()
	factory := NewProviderFactory(config, arbor.NewLogger())

	assert.Equal(t, ProviderGemini, factory.DetectProvider(""))
	assert.Equal(t, ProviderClaude, factory.DetectProvider("claude-haiku-4-5"))
	assert.Equal(t, ProviderClaude, factory.DetectProvider("anthropic/claude-sonnet-4"))
	assert.Equal(t, ProviderGemini, factory.DetectProvider("google/gemini-2.5-pro"))

	config.LLM.DefaultProvider = common.LLMProviderClaude
	factory = NewProviderFactory(config, arbor.NewLogger())
	assert.Equal(t, ProviderClaude, factory.DetectProvider("custom-model"))
}

func TestProviderFactory_NormalizeModel(t *testing.T) {
	factory := NewProviderFactory(common.NewDefaultConfig(), arbor.NewLogger())

	assert.Equal(t, "claude-sonnet-4", factory.NormalizeModel("Claude/claude-sonnet-4"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini-2.5-flash"))
}

func TestProviderFactory_NoKey(t *testing.T) {
	clearKeyEnv(t)
	config := common.NewDefaultConfig()
	factory := NewProviderFactory(config, arbor.NewLogger())

	assert.False(t, factory.Available())

	request := &ContentRequest{Messages: []interfaces.Message{{Role: "user", Content: "hi"}}}
	_, err := factory.GenerateContent(context.Background(), request)
	assert.ErrorIs(t, err, ErrNoProvider)

	request.Model = "claude-haiku-4-5"
	_, err = factory.GenerateContent(context.Background(), request)
	assert.ErrorIs(t, err, ErrNoProvider)

	config.Gemini.APIKey = "configured"
	assert.True(t, NewProviderFactory(config, arbor.NewLogger()).Available())
}

func TestConvertMessages(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	contents, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)

	params, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	assert.Len(t, params, 2)

	_, _, err = convertMessagesToGemini([]interfaces.Message{{Role: "assistant", Content: "x"}})
	assert.Error(t, err)
	_, _, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
}

func TestProviderFactory_ClaudeBackend(t *testing.T) {
	clearKeyEnv(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-haiku-4-5", body["model"])

		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5",` +
			`"content":[{"type":"text","text":"Lockboxes are registered with the office."}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":7}}`))
	}))
	defer server.Close()

	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = common.LLMProviderClaude
	config.Claude.APIKey = "test-key"
	config.Claude.BaseURL = server.URL
	factory := NewProviderFactory(config, arbor.NewLogger())
	factory.retryConfig = fastRetry(2)
	defer factory.Close()

	resp, err := factory.GenerateContent(context.Background(), &ContentRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: "lockbox?"}},
		SystemInstruction: "be brief",
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, resp.Provider)
	assert.Equal(t, "claude-haiku-4-5", resp.Model)
	assert.Equal(t, "Lockboxes are registered with the office.", resp.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProviderFactory_GeminiBackend(t *testing.T) {
	clearKeyEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Escrow opens within 3 days."}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	config := common.NewDefaultConfig()
	config.Gemini.APIKey = "test-key"
	config.Gemini.BaseURL = server.URL
	factory := NewProviderFactory(config, arbor.NewLogger())
	defer factory.Close()

	resp, err := factory.GenerateContent(context.Background(), &ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "escrow?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, resp.Provider)
	assert.Equal(t, "Escrow opens within 3 days.", resp.Text)
}
