package interfaces

import (
	"context"

	"github.com/ternarybob/concierge/internal/models"
)

// MessageHandler routes one inbound message. ok is false when the message is
// ignored (bot senders, blank text) and nothing should be posted.
type MessageHandler interface {
	Handle(ctx context.Context, msg models.InboundMessage) (reply *models.Reply, ok bool)
}

// ChatTransport delivers inbound events and posts replies
type ChatTransport interface {
	// Run blocks, delivering messages to the handler until ctx is cancelled
	Run(ctx context.Context, handler MessageHandler) error

	// Post sends a reply into a conversation, threaded when threadID is set
	Post(ctx context.Context, conversationID, threadID string, reply models.Reply) error
}
