package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// Answerer produces a reply for free text. Implementations never fail outward:
// on any error they return a user-safe apology.
type Answerer interface {
	Answer(ctx context.Context, text string) string
}
