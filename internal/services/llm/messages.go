package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/concierge/internal/interfaces"
	"google.golang.org/genai"
)

func requireUserMessage(messages []interfaces.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, msg := range messages {
		if msg.Role == "user" {
			return nil
		}
	}
	return fmt.Errorf("at least one message must have role 'user'")
}

// convertMessagesToGemini maps chat messages to Gemini contents. The first
// system message is returned separately for the SystemInstruction field.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if err := requireUserMessage(messages); err != nil {
		return nil, "", err
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// convertMessagesToClaude maps chat messages to Claude message params,
// returning the first system message separately.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if err := requireUserMessage(messages); err != nil {
		return nil, "", err
	}

	params := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return params, systemText, nil
}
