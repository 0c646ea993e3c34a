package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
	"github.com/ternarybob/concierge/internal/services/status"
)

type mockAsker struct {
	mock.Mock
}

func (m *mockAsker) Ask(ctx context.Context, text string) (models.RoutingDecision, models.Reply) {
	args := m.Called(ctx, text)
	return args.Get(0).(models.RoutingDecision), args.Get(1).(models.Reply)
}

type countingSource struct {
	calls int
	items []models.FaqItem
}

func (s *countingSource) Name() string     { return "sheet" }
func (s *countingSource) Configured() bool { return true }
func (s *countingSource) Fetch(ctx context.Context) ([]models.FaqItem, error) {
	s.calls++
	return s.items, nil
}

func newStores(t *testing.T) (*knowledge.FaqStore, *knowledge.ProcedureStore, *countingSource) {
	t.Helper()
	logger := arbor.NewLogger()

	source := &countingSource{items: []models.FaqItem{
		{ID: "f1", Category: "commission", Question: "What is the commission split?", Answer: "70/30"},
		{ID: "f2", Category: "payroll", Question: "When is commission paid?", Answer: "At closing"},
		{ID: "f3", Category: "office", Question: "Where do I park?", Answer: "Lot B"},
	}}
	faqs := knowledge.NewFaqStore(source, nil, logger, knowledge.DefaultOptions())
	faqs.ReplaceAll(source.items)

	procedures := knowledge.NewProcedureStore(nil, nil, logger, knowledge.DefaultOptions())
	procedures.ReplaceAll([]models.ProcedureItem{
		{ID: "p1", Title: "Open House Procedure", Content: "Sign in every visitor"},
		{ID: "p2", Title: "Lockbox Registration", Content: "Register lockboxes"},
	})
	return faqs, procedures, source
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestAskHandler(t *testing.T) {
	asker := &mockAsker{}
	decision := models.RoutingDecision{Kind: models.DecisionAcknowledge}
	asker.On("Ask", mock.Anything, "thanks!").Return(decision, models.Reply{Text: "You're welcome!"})

	h := NewAskHandler(asker, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.AskHandler(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"text":"thanks!"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AskResponse](t, rec)
	assert.Equal(t, models.DecisionAcknowledge, resp.Decision.Kind)
	assert.Equal(t, "You're welcome!", resp.Reply.Text)
	assert.True(t, strings.HasPrefix(resp.RequestID, "req_"))
	asker.AssertExpectations(t)
}

func TestAskHandler_BadRequests(t *testing.T) {
	h := NewAskHandler(&mockAsker{}, arbor.NewLogger())

	tests := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{name: "wrong method", method: http.MethodGet, code: http.StatusMethodNotAllowed},
		{name: "invalid json", method: http.MethodPost, body: `{`, code: http.StatusBadRequest},
		{name: "blank text", method: http.MethodPost, body: `{"text":"   "}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.AskHandler(rec, httptest.NewRequest(tt.method, "/api/ask", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSearchFaqHandler(t *testing.T) {
	faqs, procedures, _ := newStores(t)
	h := NewSearchHandler(faqs, procedures, 10, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.SearchFaqHandler(rec, httptest.NewRequest(http.MethodGet, "/api/faq/search?q=commission", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[FaqSearchResponse](t, rec)
	assert.Equal(t, 2, resp.Count)

	rec = httptest.NewRecorder()
	h.SearchFaqHandler(rec, httptest.NewRequest(http.MethodGet, "/api/faq/search?q=commission&category=Payroll", nil))
	resp = decode[FaqSearchResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "f2", resp.Results[0].ID)

	rec = httptest.NewRecorder()
	h.SearchFaqHandler(rec, httptest.NewRequest(http.MethodGet, "/api/faq/search?q=commission&limit=1", nil))
	resp = decode[FaqSearchResponse](t, rec)
	assert.Equal(t, 1, resp.Count)

	rec = httptest.NewRecorder()
	h.SearchFaqHandler(rec, httptest.NewRequest(http.MethodGet, "/api/faq/search?q=zebra", nil))
	resp = decode[FaqSearchResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Results)

	rec = httptest.NewRecorder()
	h.SearchFaqHandler(rec, httptest.NewRequest(http.MethodGet, "/api/faq/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchProceduresHandler(t *testing.T) {
	faqs, procedures, _ := newStores(t)
	h := NewSearchHandler(faqs, procedures, 10, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.SearchProceduresHandler(rec, httptest.NewRequest(http.MethodGet, "/api/procedures/search?q=open+house", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ProcedureSearchResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "p1", resp.Results[0].ID)

	rec = httptest.NewRecorder()
	h.SearchProceduresHandler(rec, httptest.NewRequest(http.MethodPost, "/api/procedures/search?q=x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshHandler(t *testing.T) {
	faqs, procedures, source := newStores(t)
	h := NewRefreshHandler(faqs, procedures, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.RefreshHandler(rec, httptest.NewRequest(http.MethodPost, "/api/refresh?collection=faq", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string][]models.RefreshStatus](t, rec)
	require.Len(t, resp["collections"], 1)
	assert.Equal(t, 3, resp["collections"][0].ItemCount)
	assert.Equal(t, 1, source.calls)

	rec = httptest.NewRecorder()
	h.RefreshHandler(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	resp = decode[map[string][]models.RefreshStatus](t, rec)
	require.Len(t, resp["collections"], 2)
	assert.False(t, resp["collections"][1].Configured)

	rec = httptest.NewRecorder()
	h.RefreshHandler(rec, httptest.NewRequest(http.MethodPost, "/api/refresh?collection=listings", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusHandler(t *testing.T) {
	faqs, procedures, _ := newStores(t)
	h := NewStatusHandler(status.NewService(faqs, procedures, nil), arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.GetStatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[status.Report](t, rec)
	require.Len(t, report.Collections, 2)
	assert.Equal(t, 3, report.Collections[0].ItemCount)
	assert.Equal(t, 2, report.Collections[1].ItemCount)

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetLimitParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"limit=3", 3},
		{"limit=0", 10},
		{"limit=abc", 10},
		{"limit=500", 25},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		assert.Equal(t, tt.want, GetLimitParam(r, 10, 25), tt.query)
	}
}
