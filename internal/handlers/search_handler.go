package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

// FaqSearchResponse is the body of GET /api/faq/search
type FaqSearchResponse struct {
	Query    string           `json:"query"`
	Category string           `json:"category,omitempty"`
	Count    int              `json:"count"`
	Results  []models.FaqItem `json:"results"`
}

// ProcedureSearchResponse is the body of GET /api/procedures/search
type ProcedureSearchResponse struct {
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
	Results []models.ProcedureItem `json:"results"`
}

// SearchHandler serves direct searches of both collections for operators
type SearchHandler struct {
	faqs        interfaces.FaqIndex
	procedures  interfaces.ProcedureIndex
	searchLimit int
	logger      arbor.ILogger
}

// NewSearchHandler creates a new search handler. searchLimit caps the limit parameter.
func NewSearchHandler(faqs interfaces.FaqIndex, procedures interfaces.ProcedureIndex, searchLimit int, logger arbor.ILogger) *SearchHandler {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &SearchHandler{
		faqs:        faqs,
		procedures:  procedures,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

// SearchFaqHandler handles GET /api/faq/search?q=&category=&limit=
func (h *SearchHandler) SearchFaqHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	limit := GetLimitParam(r, h.searchLimit, h.searchLimit)

	results := h.faqs.Search(query, limit, knowledge.CategoryFilter(category))
	if results == nil {
		results = []models.FaqItem{}
	}

	h.logger.Debug().
		Str("query", query).
		Str("category", category).
		Int("results", len(results)).
		Msg("FAQ search")

	WriteJSON(w, http.StatusOK, FaqSearchResponse{
		Query:    query,
		Category: category,
		Count:    len(results),
		Results:  results,
	})
}

// SearchProceduresHandler handles GET /api/procedures/search?q=&limit=
func (h *SearchHandler) SearchProceduresHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := GetLimitParam(r, h.searchLimit, h.searchLimit)

	results := h.procedures.Search(query, limit, nil)
	if results == nil {
		results = []models.ProcedureItem{}
	}

	h.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Procedure search")

	WriteJSON(w, http.StatusOK, ProcedureSearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}
