package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pagetoc/internal/config"
	"github.com/dgallion1/pagetoc/internal/metrics"
	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/dgallion1/pagetoc/internal/pipeline"
	"github.com/dgallion1/pagetoc/internal/toc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sitePage = `<html><head><title>Guide</title></head><body>
<div class="side-bar"><ul class="nav-list">
<li class="nav-list-item"><a class="nav-list-link active" href="/guide">Guide</a></li>
<li class="nav-list-item"><a class="nav-list-link" href="/faq">FAQ</a></li>
</ul></div>
<div class="main-content"><h2 id="a">A</h2><h3 id="b">B</h3><h2 id="c">C</h2></div>
</body></html>`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkerCount = 1
	if mutate != nil {
		mutate(cfg)
	}
	builder, err := cfg.NewBuilder()
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(*cfg, builder, metrics.NewBuildStats(time.Hour), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	s, err := NewServer(orch, log, *cfg)
	require.NoError(t, err)
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTOC_InsertsAndReportsStatus(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(sitePage)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(page.StatusInserted), rec.Header().Get(StatusHeader))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	body := rec.Body.String()
	assert.Contains(t, body, toc.ContainerID)
	assert.Less(t, strings.Index(body, `href="/guide"`), strings.Index(body, toc.ContainerID))
	assert.Less(t, strings.Index(body, toc.ContainerID), strings.Index(body, `href="/faq"`))

	// Posting the result again leaves it alone.
	again := do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(body)))
	assert.Equal(t, string(page.StatusSkipped), again.Header().Get(StatusHeader))
	assert.Equal(t, 1, strings.Count(again.Body.String(), `id="`+toc.ContainerID+`"`))
}

func TestTOC_NotModified(t *testing.T) {
	s := newTestServer(t, nil)
	first := do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(sitePage)))
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(sitePage))
	req.Header.Set("If-None-Match", etag)
	rec := do(s, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTOC_EmptyBody(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader("  ")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTOC_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 16 })
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(sitePage)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestOutline_Markdown(t *testing.T) {
	s := newTestServer(t, nil)
	body, ctype := multipartBody(t, "file", map[string]string{
		"notes.md": "# Notes\n\n## Setup\n\n### Install\n\n## Usage\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Title   string `json:"title"`
		Links   int    `json:"links"`
		Outline struct {
			Items []struct {
				Text     string            `json:"text"`
				Children []json.RawMessage `json:"children"`
			} `json:"items"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Links)
	require.Len(t, resp.Outline.Items, 1)
	assert.Equal(t, "Notes", resp.Outline.Items[0].Text)
	assert.Len(t, resp.Outline.Items[0].Children, 2)
}

func TestOutline_HTMLUsesContentRegionAndLevels(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Levels = []int{2} })
	src := `<html><body>
<div class="side-bar"><h2 id="site">Site nav</h2></div>
<div class="main-content"><h1 id="top">Top</h1><h2 id="a">A</h2><h2 id="b">B</h2></div>
</body></html>`
	body, ctype := multipartBody(t, "file", map[string]string{"page.html": src})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Links   int `json:"links"`
		Outline struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Links)
	require.Len(t, resp.Outline.Items, 2)
	assert.Equal(t, "a", resp.Outline.Items[0].ID)
	assert.Equal(t, "b", resp.Outline.Items[1].ID)
	assert.NotContains(t, rec.Body.String(), "Site nav")
}

func TestOutline_UnsupportedType(t *testing.T) {
	s := newTestServer(t, nil)
	body, ctype := multipartBody(t, "file", map[string]string{"data.csv": "a,b"})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestBatch_ProcessesPages(t *testing.T) {
	s := newTestServer(t, nil)
	body, ctype := multipartBody(t, "files", map[string]string{
		"guide.html": sitePage,
		"notes.txt":  "plain",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/batch", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var queued struct {
		JobID    string              `json:"job_id"`
		Pages    int                 `json:"pages"`
		Rejected []map[string]string `json:"rejected"`
		PollURL  string              `json:"poll_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queued))
	assert.Equal(t, 1, queued.Pages)
	require.Len(t, queued.Rejected, 1)
	assert.Equal(t, "notes.txt", queued.Rejected[0]["filename"])

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := do(s, httptest.NewRequest(http.MethodGet, queued.PollURL, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status == pipeline.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, snap.Pages, 1)
	assert.Equal(t, 3, snap.Pages[0].Links)

	pageRec := do(s, httptest.NewRequest(http.MethodGet, queued.PollURL+"/pages/0", nil))
	require.Equal(t, http.StatusOK, pageRec.Code)
	assert.Equal(t, string(page.StatusInserted), pageRec.Header().Get(StatusHeader))
	assert.Contains(t, pageRec.Body.String(), toc.ContainerID)

	missing := do(s, httptest.NewRequest(http.MethodGet, queued.PollURL+"/pages/5", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
	bad := do(s, httptest.NewRequest(http.MethodGet, queued.PollURL+"/pages/x", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestBatch_NoProcessableFiles(t *testing.T) {
	s := newTestServer(t, nil)
	body, ctype := multipartBody(t, "files", map[string]string{"a.pdf": "%PDF"})
	req := httptest.NewRequest(http.MethodPost, "/api/batch", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatus_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, httptest.NewRequest(http.MethodPost, "/api/toc", strings.NewReader(sitePage)))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Builds metrics.Snapshot `json:"builds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Builds.Count)
	assert.Equal(t, 1, resp.Builds.ByStatus[string(page.StatusInserted)])
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.APIKey = "secret" })

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, do(s, req).Code)

	// Health stays public.
	assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"page.html":          "page.html",
		"../../etc/passwd":   "passwd",
		`C:\docs\index.html`: "index.html",
		"":                   "unnamed",
		"a..b.html":          "a_b.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.CORSOrigins = []string{"https://docs.example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/toc", nil)
	req.Header.Set("Origin", "https://docs.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(s, req)
	assert.Equal(t, "https://docs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = do(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
