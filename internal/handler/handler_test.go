package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/repository/localfs"
	portfolio "portfolio/internal/service/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyDirectory fails document listings while failDocs is set
type flakyDirectory struct {
	portfolioSvc.DirectoryService
	failDocs atomic.Bool
}

func (d *flakyDirectory) GetDocumentsByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	if d.failDocs.Load() {
		return nil, errors.New("connection reset by peer")
	}
	return d.DirectoryService.GetDocumentsByFolder(ctx, folderID)
}

type testEnv struct {
	mux      *http.ServeMux
	root     string
	dir      *flakyDirectory
	sessions *portfolio.SessionStore
	uploads  portfolioSvc.UploadService
	logger   *slog.Logger
}

// newTestEnv serves a local portfolio:
//
//	p1/cv.pdf
//	p1/Teaching/eval.pdf
//	p1/Teaching/notes.docx
//	p1/Research/
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"p1/cv.pdf":              "cv",
		"p1/Teaching/eval.pdf":   "evaluation",
		"p1/Teaching/notes.docx": "notes",
	} {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "p1", "Research"), 0o755))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := &flakyDirectory{DirectoryService: localfs.NewDirectory(root, logger)}
	validator := portfolio.NewUploadValidator([]string{"pdf", "docx"}, 1<<20)
	uploads := portfolio.NewUploader(dir, validator, 1, logger)
	sessions := portfolio.NewSessionStore(func() *portfolio.Navigator {
		return portfolio.NewNavigator(dir, nil, logger)
	}, 0, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux,
		NewDirectoryHandler(dir, validator, logger),
		NewExplorerHandler(sessions, uploads, nil, 0, logger),
	)
	return &testEnv{mux: mux, root: root, dir: dir, sessions: sessions, uploads: uploads, logger: logger}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, field string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, newMultipartRequest(t, path, field, files))
	return rec
}

func newMultipartRequest(t *testing.T, path, field string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func documentNames(docs []models.Document) []string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.OriginalName
	}
	return names
}

func (e *testEnv) open(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/explorers", map[string]string{"portfolio_id": "p1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ExplorerResponse](t, rec).SessionID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDirectoryHandler_Reads(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/portfolios/p1/structure", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[models.FolderNode](t, rec)
	assert.Equal(t, "p1", root.ID)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Research", root.Children[0].Name)
	assert.Equal(t, 2, root.Children[1].DocumentCount)

	rec = env.do(t, http.MethodGet, "/api/folders/p1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"cv.pdf"}, documentNames(decode[[]models.Document](t, rec)))

	rec = env.do(t, http.MethodGet, "/api/folders/nope/documents", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestDirectoryHandler_UploadDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "/api/folders/p1/documents", "file", map[string]string{"cover.pdf": "letter"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[models.Document](t, rec)
	assert.Equal(t, "p1/cover.pdf", doc.ID)
	assert.Equal(t, int64(len("letter")), doc.SizeBytes)

	rec = env.upload(t, "/api/folders/p1/documents", "file", map[string]string{"cover.pdf": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.upload(t, "/api/folders/p1/documents", "file", map[string]string{"setup.exe": "MZ"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "unsupported_format", problem["reason"])
	assert.Equal(t, "setup.exe", problem["file"])

	rec = env.upload(t, "/api/folders/p1/documents", "other", map[string]string{"a.pdf": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplorerHandler_Navigation(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)
	base := "/api/explorers/" + id

	rec := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[ExplorerResponse](t, rec).View
	assert.Equal(t, "p1", view.CurrentFolderID)
	assert.Equal(t, models.LoadLoaded, view.LoadState)
	assert.False(t, view.NavState.CanGoUp)

	rec = env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder_id": "p1/Teaching"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[ExplorerResponse](t, rec).View
	assert.Equal(t, "p1/Teaching", view.CurrentFolderID)
	require.Len(t, view.Breadcrumb, 2)
	assert.Equal(t, "Teaching", view.Breadcrumb[1].Name)
	assert.Equal(t, []string{"eval.pdf", "notes.docx"}, documentNames(view.Documents))
	assert.True(t, view.NavState.CanGoBack)
	assert.True(t, view.NavState.CanGoUp)

	rec = env.do(t, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[ExplorerResponse](t, rec).View
	assert.Equal(t, "p1", view.CurrentFolderID)
	assert.True(t, view.NavState.CanGoForward)

	rec = env.do(t, http.MethodPost, base+"/forward", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1/Teaching", decode[ExplorerResponse](t, rec).View.CurrentFolderID)

	rec = env.do(t, http.MethodPost, base+"/up", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", decode[ExplorerResponse](t, rec).View.CurrentFolderID)

	rec = env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder_id": "p1/Missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/navigate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder": "p1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "p1", "Service"), 0o755))
	rec = env.do(t, http.MethodPost, base+"/structure/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder_id": "p1/Service"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExplorerHandler_CriteriaAndSelection(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)
	base := "/api/explorers/" + id

	rec := env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder_id": "p1/Teaching"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/selection/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ExplorerResponse](t, rec).View.Selection, 2)

	rec = env.do(t, http.MethodPut, base+"/criteria", models.FilterCriteria{FormatFamily: "pdf"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[ExplorerResponse](t, rec).View
	assert.Equal(t, []string{"eval.pdf"}, documentNames(view.Documents))
	assert.Empty(t, view.Selection, "criteria change clears the selection")

	rec = env.do(t, http.MethodPatch, base+"/criteria", map[string]interface{}{
		"format_family":  nil,
		"sort_direction": "desc",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[ExplorerResponse](t, rec).View
	assert.Equal(t, []string{"notes.docx", "eval.pdf"}, documentNames(view.Documents))
	assert.Empty(t, view.Criteria.FormatFamily)
	assert.Equal(t, models.SortDescending, view.Criteria.SortDirection)

	rec = env.do(t, http.MethodPut, base+"/criteria", models.FilterCriteria{SortField: "color"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/selection/toggle", map[string]string{"document_id": "p1/Teaching/eval.pdf"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p1/Teaching/eval.pdf"}, decode[ExplorerResponse](t, rec).View.Selection)

	rec = env.do(t, http.MethodGet, base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"eval.pdf"}, documentNames(decode[SelectedDocumentsResponse](t, rec).Documents))

	rec = env.do(t, http.MethodPut, base+"/view-mode", map[string]string{"view_mode": "grid"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[ExplorerResponse](t, rec).View
	assert.Equal(t, models.ViewGrid, view.ViewMode)
	assert.Empty(t, view.Selection)

	rec = env.do(t, http.MethodPut, base+"/view-mode", map[string]string{"view_mode": "carousel"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/selection/toggle", map[string]string{"document_id": "p1/Teaching/notes.docx"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ExplorerResponse](t, rec).View.Selection)
}

func TestExplorerHandler_NetworkErrorIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)
	base := "/api/explorers/" + id

	env.dir.failDocs.Store(true)
	rec := env.do(t, http.MethodPost, base+"/navigate", map[string]string{"folder_id": "p1/Teaching"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var problem struct {
		Retryable bool             `json:"retryable"`
		Op        string           `json:"op"`
		View      models.ViewModel `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.True(t, problem.Retryable)
	assert.Equal(t, "get_documents", problem.Op)
	assert.Equal(t, models.LoadError, problem.View.LoadState)
	assert.Equal(t, "p1/Teaching", problem.View.CurrentFolderID)

	env.dir.failDocs.Store(false)
	rec = env.do(t, http.MethodPost, base+"/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[ExplorerResponse](t, rec).View
	assert.Equal(t, models.LoadLoaded, view.LoadState)
	assert.Len(t, view.Documents, 2)
}

func TestExplorerHandler_Upload(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)
	base := "/api/explorers/" + id

	rec := env.upload(t, base+"/uploads", "files", map[string]string{
		"paper.pdf": "paper",
		"virus.exe": "MZ",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)

	assert.Equal(t, "p1", resp.Report.FolderID)
	assert.Equal(t, models.UploadSummary{TotalFiles: 2, Uploaded: 1, Rejected: 1}, resp.Report.Summary)
	require.Len(t, resp.Report.Rejected, 1)
	assert.Equal(t, "virus.exe", resp.Report.Rejected[0].File)
	assert.Equal(t, "unsupported_format", resp.Report.Rejected[0].Reason)
	assert.ElementsMatch(t, []string{"cv.pdf", "paper.pdf"}, documentNames(resp.View.Documents), "current folder is refreshed")

	rec = env.upload(t, base+"/uploads?folder_id=p1/Research", "files", map[string]string{"talk.pdf": "slides"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[UploadResponse](t, rec)
	assert.Equal(t, 1, resp.Report.Summary.Uploaded)
	assert.Equal(t, "p1", resp.View.CurrentFolderID)
	_, err := os.Stat(filepath.Join(env.root, "p1", "Research", "talk.pdf"))
	assert.NoError(t, err)

	rec = env.upload(t, base+"/uploads", "files", map[string]string{"paper.pdf": "again"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[UploadResponse](t, rec)
	require.Len(t, resp.Report.Failed, 1)
	assert.False(t, resp.Report.Failed[0].Retryable, "name conflicts are not retryable")

	rec = env.do(t, http.MethodPost, base+"/uploads", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplorerHandler_UploadBodyLimit(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)

	limited := NewExplorerHandler(env.sessions, env.uploads, nil, 512, env.logger)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/explorers/{id}/uploads", limited.Upload)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newMultipartRequest(t, "/api/explorers/"+id+"/uploads", "files", map[string]string{
		"thesis.pdf": strings.Repeat("x", 4096),
	}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	_, err := os.Stat(filepath.Join(env.root, "p1", "thesis.pdf"))
	assert.True(t, os.IsNotExist(err))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, newMultipartRequest(t, "/api/explorers/"+id+"/uploads", "files", map[string]string{
		"memo.pdf": "short",
	}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestExplorerHandler_Sessions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/explorers", map[string]string{"portfolio_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, env.sessions.Len(), "failed open does not leak a session")

	id := env.open(t)
	rec = env.do(t, http.MethodDelete, "/api/explorers/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/explorers/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/explorers/unknown/back", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExplorerHandler_Events(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t)

	server := httptest.NewServer(env.mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/explorers/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan models.ViewModel, 8)
	go func() {
		defer close(events)
		buf := make([]byte, 64<<10)
		var pending string
		for {
			n, err := resp.Body.Read(buf)
			pending += string(buf[:n])
			for {
				idx := strings.Index(pending, "\n\n")
				if idx < 0 {
					break
				}
				frame := pending[:idx]
				pending = pending[idx+2:]
				for _, line := range strings.Split(frame, "\n") {
					if data, ok := strings.CutPrefix(line, "data: "); ok {
						var view models.ViewModel
						if json.Unmarshal([]byte(data), &view) == nil {
							events <- view
						}
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()

	first := <-events
	assert.Equal(t, "p1", first.CurrentFolderID)

	rec := env.do(t, http.MethodPost, "/api/explorers/"+id+"/navigate", map[string]string{"folder_id": "p1/Research"})
	require.Equal(t, http.StatusOK, rec.Code)

	next := <-events
	assert.Equal(t, "p1/Research", next.CurrentFolderID)
}
