package slack

import (
	"unicode/utf8"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

// Block Kit caps section text at 3000 characters and button labels at 75
const (
	maxSectionText = 3000
	maxButtonText  = 75
)

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type buttonElement struct {
	Type string     `json:"type"`
	Text textObject `json:"text"`
	URL  string     `json:"url"`
}

type block struct {
	Type      string         `json:"type"`
	Text      *textObject    `json:"text,omitempty"`
	Elements  []textObject   `json:"elements,omitempty"`
	Accessory *buttonElement `json:"accessory,omitempty"`
}

// renderBlocks converts reply blocks into Block Kit JSON structures
func renderBlocks(blocks []models.Block) []block {
	if len(blocks) == 0 {
		return nil
	}

	out := make([]block, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case models.BlockContext:
			out = append(out, block{
				Type:     "context",
				Elements: []textObject{{Type: "mrkdwn", Text: clip(b.Text, maxSectionText)}},
			})
		case models.BlockSection:
			section := block{
				Type: "section",
				Text: &textObject{Type: "mrkdwn", Text: clip(b.Text, maxSectionText)},
			}
			if b.Button != nil && b.Button.URL != "" {
				section.Accessory = &buttonElement{
					Type: "button",
					Text: textObject{Type: "plain_text", Text: clip(b.Button.Text, maxButtonText)},
					URL:  b.Button.URL,
				}
			}
			out = append(out, section)
		case models.BlockDivider:
			out = append(out, block{Type: "divider"})
		}
	}
	return out
}

// clip keeps text as written unless it exceeds max runes
func clip(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return common.TruncateText(text, max)
}
