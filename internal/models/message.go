package models

// InboundMessage is a chat event delivered by the transport
type InboundMessage struct {
	Text            string `json:"text"`
	ConversationID  string `json:"conversation_id"`
	ThreadID        string `json:"thread_id,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	IsDirectMessage bool   `json:"is_direct_message"`
	SenderIsBot     bool   `json:"sender_is_bot"`
}

// BlockType identifies the kind of structured reply block
type BlockType string

const (
	BlockContext BlockType = "context"
	BlockSection BlockType = "section"
	BlockDivider BlockType = "divider"
)

// LinkButton is an optional call-to-action attached to a section block
type LinkButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Block is one element of a structured reply
type Block struct {
	Type   BlockType   `json:"type"`
	Text   string      `json:"text,omitempty"`
	Button *LinkButton `json:"button,omitempty"`
}

// Reply is what the transport sends back. Blocks is empty for plain-text replies;
// Text is always set so transports without block support still have something to show.
type Reply struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// ContextBlock builds a context line
func ContextBlock(text string) Block {
	return Block{Type: BlockContext, Text: text}
}

// SectionBlock builds a section with optional link button
func SectionBlock(text string, button *LinkButton) Block {
	return Block{Type: BlockSection, Text: text, Button: button}
}

// DividerBlock builds a divider
func DividerBlock() Block {
	return Block{Type: BlockDivider}
}
