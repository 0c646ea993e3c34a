package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/app"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	application, err := app.New(common.NewDefaultConfig(), arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	application.Procedures.ReplaceAll([]models.ProcedureItem{
		{ID: "open-house", Title: "Open House Procedure", Content: "Sign in every visitor"},
	})

	return New(application)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		code     int
		contains string
	}{
		{name: "health", method: http.MethodGet, path: "/health", code: http.StatusOK, contains: `"ok"`},
		{name: "status", method: http.MethodGet, path: "/api/status", code: http.StatusOK, contains: `"collections"`},
		{name: "ask", method: http.MethodPost, path: "/api/ask", body: `{"text":"sop: open house"}`, code: http.StatusOK, contains: `"procedure_answer"`},
		{name: "procedure search", method: http.MethodGet, path: "/api/procedures/search?q=open+house", code: http.StatusOK, contains: `"open-house"`},
		{name: "faq search empty", method: http.MethodGet, path: "/api/faq/search?q=parking", code: http.StatusOK, contains: `"count":0`},
		{name: "refresh unconfigured", method: http.MethodPost, path: "/api/refresh?collection=faq", code: http.StatusOK, contains: `"configured":false`},
		{name: "cors preflight", method: http.MethodOptions, path: "/api/ask", code: http.StatusNoContent},
		{name: "unknown", method: http.MethodGet, path: "/nope", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)

	ask := httptest.NewRecorder()
	s.Handler().ServeHTTP(ask, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"text":"thanks!"}`)))
	require.Equal(t, http.StatusOK, ask.Code)

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return strings.Contains(rec.Body.String(), `concierge_routing_decisions_total{confident="false",kind="acknowledge"} 1`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t)

	handler := s.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal server error"`)
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"text":"thanks!"}`))
	req.Header.Set("X-Request-ID", "req_from_client")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req_from_client", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req_from_client"`)
}

func TestCORSAllowedOrigins(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Server.AllowedOrigins = []string{"https://admin.example.com"}
	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })
	s := New(application)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPMetrics(t *testing.T) {
	s := newTestServer(t)

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/1", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `concierge_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, `concierge_http_requests_total{code="404",method="GET",route="other"} 1`)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
