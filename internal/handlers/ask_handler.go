package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/models"
)

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Text string `json:"text"`
}

// AskResponse carries the routing decision and the rendered reply
type AskResponse struct {
	RequestID string                 `json:"request_id"`
	Decision  models.RoutingDecision `json:"decision"`
	Reply     models.Reply           `json:"reply"`
}

// AskHandler answers free-text questions through the router
type AskHandler struct {
	asker  Asker
	logger arbor.ILogger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(asker Asker, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		asker:  asker,
		logger: logger,
	}
}

// AskHandler handles POST /api/ask
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	requestID := RequestID(r)
	decision, reply := h.asker.Ask(r.Context(), req.Text)

	h.logger.Debug().
		Str("request_id", requestID).
		Str("kind", string(decision.Kind)).
		Msg("Ask request routed")

	WriteJSON(w, http.StatusOK, AskResponse{
		RequestID: requestID,
		Decision:  decision,
		Reply:     reply,
	})
}
