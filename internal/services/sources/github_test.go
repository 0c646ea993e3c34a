package sources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/knowledge"
)

func newGitHubServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		entries := []map[string]interface{}{
			{"path": "docs/sops", "type": "tree", "sha": "t"},
		}
		paths := make([]string, 0, len(files))
		for path := range files {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			entries = append(entries, map[string]interface{}{"path": path, "type": "blob", "sha": "s-" + path})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"sha": "root", "tree": entries})
	})
	for path, content := range files {
		path, content := path, content
		mux.HandleFunc("/repos/acme/handbook/contents/"+path, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":     "file",
				"encoding": "base64",
				"path":     path,
				"name":     path,
				"html_url": "https://github.com/acme/handbook/blob/main/" + path,
				"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			})
		})
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGitHubSource_Fetch(t *testing.T) {
	server := newGitHubServer(t, map[string]string{
		"docs/sops/listings/lockbox.md": "# Lockbox Registration\n\nRegister every lockbox with the office.",
		"docs/other/readme.md":          "# Not a procedure",
	})

	source := NewGitHubSource(common.GitHubSourceConfig{
		Owner:      "acme",
		Repo:       "handbook",
		Path:       "docs/sops",
		Branch:     "main",
		Extensions: []string{".md"},
		BaseURL:    server.URL,
	}, newTestParser(), arbor.NewLogger())

	require.True(t, source.Configured())
	assert.Equal(t, "github:acme/handbook@main", source.Name())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "listings-lockbox", items[0].ID)
	assert.Equal(t, "Lockbox Registration", items[0].Title)
	assert.Equal(t, []string{"listings"}, items[0].Tags)
	assert.Equal(t, "https://github.com/acme/handbook/blob/main/docs/sops/listings/lockbox.md", items[0].SourceLink)
}

func TestGitHubSource_FetchKeepsListingOrder(t *testing.T) {
	files := map[string]string{
		"docs/sops/a-closing.md":    "# Closing\n\nSchedule the closing.",
		"docs/sops/b-escrow.md":     "# Escrow\n\nOpen escrow within 3 days.",
		"docs/sops/c-lockbox.md":    "# Lockbox\n\nRegister the lockbox.",
		"docs/sops/d-open-house.md": "# Open House\n\nSign in visitors.",
		"docs/sops/e-showing.md":    "# Showing\n\nConfirm with the seller.",
	}
	server := newGitHubServer(t, files)

	source := NewGitHubSource(common.GitHubSourceConfig{
		Owner:      "acme",
		Repo:       "handbook",
		Path:       "docs/sops",
		Branch:     "main",
		Extensions: []string{".md"},
		Workers:    3,
		BaseURL:    server.URL,
	}, newTestParser(), arbor.NewLogger())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"a-closing", "b-escrow", "c-lockbox", "d-open-house", "e-showing"}, ids)
}

func TestGitHubSource_ListFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	source := NewGitHubSource(common.GitHubSourceConfig{
		Owner: "acme", Repo: "handbook", BaseURL: server.URL,
	}, newTestParser(), arbor.NewLogger())

	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestGitHubSource_NotConfigured(t *testing.T) {
	source := NewGitHubSource(common.GitHubSourceConfig{Owner: "acme"}, newTestParser(), arbor.NewLogger())

	assert.False(t, source.Configured())
	assert.Equal(t, "github", source.Name())
	_, err := source.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// newGitHubOutageServer lists one procedure but refuses every file download
func newGitHubOutageServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"sha": "root", "tree": []map[string]interface{}{
			{"path": "docs/sops/open-house.md", "type": "blob", "sha": "oh"},
		}})
	})
	mux.HandleFunc("/repos/acme/handbook/contents/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func outageSourceConfig(baseURL string) common.GitHubSourceConfig {
	return common.GitHubSourceConfig{
		Owner:      "acme",
		Repo:       "handbook",
		Path:       "docs/sops",
		Branch:     "main",
		Extensions: []string{".md"},
		Workers:    2,
		BaseURL:    baseURL,
	}
}

func TestGitHubSource_DownloadFailureFailsFetch(t *testing.T) {
	server := newGitHubOutageServer(t)
	source := NewGitHubSource(outageSourceConfig(server.URL), newTestParser(), arbor.NewLogger())

	items, err := source.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "docs/sops/open-house.md")
}

func TestGitHubSource_SkipsUnparseableFile(t *testing.T) {
	server := newGitHubServer(t, map[string]string{
		"docs/sops/broken.md":  "---\ntitle: [unclosed\n---\n# Broken\n\nBody.",
		"docs/sops/lockbox.md": "# Lockbox\n\nRegister the lockbox.",
	})
	source := NewGitHubSource(outageSourceConfig(server.URL), newTestParser(), arbor.NewLogger())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "lockbox", items[0].ID)
}

func TestGitHubSource_DownloadOutageKeepsProcedureSnapshot(t *testing.T) {
	server := newGitHubOutageServer(t)
	source := NewGitHubSource(outageSourceConfig(server.URL), newTestParser(), arbor.NewLogger())
	store := knowledge.NewProcedureStore(source, nil, arbor.NewLogger(), knowledge.Options{RetryBase: time.Millisecond})

	kept, _ := store.ReplaceAll([]models.ProcedureItem{
		{ID: "open-house", Title: "Open House Checklist", Content: "Sign in every visitor."},
	})
	require.Equal(t, 1, kept)

	status := store.Refresh(context.Background())

	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, 1, status.ConsecutiveFailures)
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "Open House Checklist", store.Items()[0].Title)
}
