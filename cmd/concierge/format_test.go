package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/concierge/internal/models"
)

func TestFormatReply(t *testing.T) {
	assert.Equal(t, "plain", formatReply(models.Reply{Text: "plain"}))

	reply := models.Reply{
		Text: "fallback",
		Blocks: []models.Block{
			models.ContextBlock("Procedure for _open house_"),
			models.SectionBlock("*Open House*\nSign in visitors.", &models.LinkButton{Text: "Open procedure", URL: "https://wiki/oh"}),
			models.DividerBlock(),
			models.SectionBlock("second", nil),
		},
	}

	assert.Equal(t,
		"Procedure for _open house_\n\n*Open House*\nSign in visitors.\nOpen procedure: https://wiki/oh\n---\nsecond",
		formatReply(reply))
}
