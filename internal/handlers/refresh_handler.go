package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

// RefreshHandler refreshes collections on demand
type RefreshHandler struct {
	faqs       interfaces.FaqIndex
	procedures interfaces.ProcedureIndex
	logger     arbor.ILogger
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(faqs interfaces.FaqIndex, procedures interfaces.ProcedureIndex, logger arbor.ILogger) *RefreshHandler {
	return &RefreshHandler{
		faqs:       faqs,
		procedures: procedures,
		logger:     logger,
	}
}

// RefreshHandler handles POST /api/refresh?collection=faq|procedures|all.
// The refresh runs synchronously and the resulting statuses are returned.
func (h *RefreshHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	collection := r.URL.Query().Get("collection")
	var statuses []models.RefreshStatus

	switch collection {
	case knowledge.CollectionFaq:
		statuses = append(statuses, h.faqs.Refresh(r.Context()))
	case knowledge.CollectionProcedures:
		statuses = append(statuses, h.procedures.Refresh(r.Context()))
	case "", "all":
		statuses = append(statuses, h.faqs.Refresh(r.Context()), h.procedures.Refresh(r.Context()))
	default:
		WriteError(w, http.StatusBadRequest, "collection must be faq, procedures or all")
		return
	}

	h.logger.Info().
		Str("collection", collection).
		Int("refreshed", len(statuses)).
		Msg("Refresh requested over HTTP")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"collections": statuses,
	})
}
