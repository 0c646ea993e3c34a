package handlers

import (
	"context"

	"github.com/ternarybob/concierge/internal/models"
)

// Asker routes free text and renders the reply
type Asker interface {
	Ask(ctx context.Context, text string) (models.RoutingDecision, models.Reply)
}
