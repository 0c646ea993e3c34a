package main

import (
	"strings"

	"github.com/ternarybob/concierge/internal/models"
)

// formatReply renders a structured reply as plain terminal text
func formatReply(reply models.Reply) string {
	if len(reply.Blocks) == 0 {
		return reply.Text
	}

	var b strings.Builder
	for _, block := range reply.Blocks {
		switch block.Type {
		case models.BlockContext:
			b.WriteString(block.Text)
			b.WriteString("\n\n")
		case models.BlockSection:
			b.WriteString(block.Text)
			b.WriteString("\n")
			if block.Button != nil && block.Button.URL != "" {
				b.WriteString(block.Button.Text + ": " + block.Button.URL + "\n")
			}
		case models.BlockDivider:
			b.WriteString("---\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
