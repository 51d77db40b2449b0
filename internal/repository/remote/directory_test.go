package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T, handler http.Handler) *Directory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDirectory(srv.URL+"/", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDirectory_GetStructure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/portfolios/{id}/structure", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		parent := id
		writeJSON(w, http.StatusOK, models.FolderNode{
			ID:   id,
			Name: "Portfolio",
			Children: []*models.FolderNode{
				{ID: "c1", Name: "Teaching", ParentID: &parent},
			},
		})
	})
	d := newTestDirectory(t, mux)

	root, err := d.GetStructure(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", root.ID)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "p1", *root.Children[0].ParentID)
}

func TestDirectory_GetStructureSharesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/portfolios/{id}/structure", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, http.StatusOK, models.FolderNode{ID: r.PathValue("id")})
	})
	d := newTestDirectory(t, mux)

	var wg sync.WaitGroup
	results := make([]*models.FolderNode, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root, err := d.GetStructure(context.Background(), "p1")
			assert.NoError(t, err)
			results[i] = root
		}()
	}
	// Let every goroutine join the flight before the server answers
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "p1", r.ID)
	}
}

func TestDirectory_GetStructureCancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/portfolios/{id}/structure", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, http.StatusOK, models.FolderNode{ID: r.PathValue("id")})
	})
	d := newTestDirectory(t, mux)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.GetStructure(firstCtx, "p1")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)

	type result struct {
		root *models.FolderNode
		err  error
	}
	second := make(chan result, 1)
	go func() {
		root, err := d.GetStructure(context.Background(), "p1")
		second <- result{root, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.NotNil(t, res.root)
		assert.Equal(t, "p1", res.root.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
}

func TestDirectory_GetDocumentsByFolder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/folders/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Document{
			{ID: "d1", OriginalName: "cv.pdf", Format: "pdf", FolderID: r.PathValue("id"), Status: models.StatusApproved, Version: 1},
		})
	})
	d := newTestDirectory(t, mux)

	docs, err := d.GetDocumentsByFolder(context.Background(), "p1/teaching")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1/teaching", docs[0].FolderID)
	assert.Equal(t, models.StatusApproved, docs[0].Status)
}

func TestDirectory_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNotFound)
				assert.Contains(t, err.Error(), "folder f1 not found")
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrValidation) },
		},
		{
			name:   "server error is retryable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				var netErr *domain.NetworkError
				require.ErrorAs(t, err, &netErr)
				assert.Equal(t, "get_documents", netErr.Op)
				assert.True(t, netErr.Retryable())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":0,"detail":"folder f1 not found"}`))
			}))
			_, err := d.GetDocumentsByFolder(context.Background(), "f1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDirectory_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	d := NewDirectory(srv.URL, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := d.GetStructure(context.Background(), "p1")
	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "get_structure", netErr.Op)
}

func TestDirectory_UploadDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/folders/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		writeJSON(w, http.StatusCreated, models.Document{
			ID:           "new",
			OriginalName: header.Filename,
			Format:       models.FormatOf(header.Filename),
			SizeBytes:    int64(len(data)),
			Status:       models.StatusPending,
			Version:      1,
			FolderID:     r.PathValue("id"),
		})
	})
	d := newTestDirectory(t, mux)

	doc, err := d.UploadDocument(context.Background(), "f1", models.UploadFile{
		Name:    "Thesis.PDF",
		Size:    5,
		Content: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", doc.ID)
	assert.Equal(t, "Thesis.PDF", doc.OriginalName)
	assert.Equal(t, "pdf", doc.Format)
	assert.Equal(t, int64(5), doc.SizeBytes)
	assert.Equal(t, "f1", doc.FolderID)
}

func TestDirectory_UploadConflict(t *testing.T) {
	d := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("cv.pdf already exists"))
	}))

	_, err := d.UploadDocument(context.Background(), "f1", models.UploadFile{Name: "cv.pdf"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "cv.pdf already exists")
}
