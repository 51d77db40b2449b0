package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout is the HTTP timeout for directory requests
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read for the message
	maxErrorBody = 64 << 10
)

// Directory is a DirectoryService backed by a remote directory REST API
// (the /api/portfolios and /api/folders routes served by cmd/server).
type Directory struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// Concurrent structure fetches for the same portfolio share one request
	structures singleflight.Group
}

var _ portfolioSvc.DirectoryService = (*Directory)(nil)

// NewDirectory creates a remote directory client. A nil httpClient uses DefaultTimeout.
func NewDirectory(baseURL string, httpClient *http.Client, logger *slog.Logger) *Directory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Directory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetStructure fetches the folder tree. Callers sharing a flight receive the same
// snapshot and must treat it as read-only. The shared request is detached from any
// one caller's cancellation; each caller stops waiting when its own ctx is done.
func (d *Directory) GetStructure(ctx context.Context, portfolioID string) (*models.FolderNode, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := d.structures.DoChan(portfolioID, func() (any, error) {
		var root models.FolderNode
		path := "/api/portfolios/" + url.PathEscape(portfolioID) + "/structure"
		if err := d.getJSON(flightCtx, "get_structure", path, &root); err != nil {
			return nil, err
		}
		return &root, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			d.logger.Debug("shared structure fetch", "portfolio_id", portfolioID)
		}
		return res.Val.(*models.FolderNode), nil
	}
}

// GetDocumentsByFolder lists the documents of one folder.
func (d *Directory) GetDocumentsByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	var docs []models.Document
	path := "/api/folders/" + url.PathEscape(folderID) + "/documents"
	if err := d.getJSON(ctx, "get_documents", path, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// UploadDocument posts the file as multipart/form-data under the "file" field.
func (d *Directory) UploadDocument(ctx context.Context, folderID string, file models.UploadFile) (*models.Document, error) {
	const op = "upload_document"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", file.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	endpoint := d.baseURL + "/api/folders/" + url.PathEscape(folderID) + "/documents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var doc models.Document
	if err := d.do(req, op, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Directory) getJSON(ctx context.Context, op, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return d.do(req, op, dest)
}

// do executes req and decodes a 2xx JSON body into dest. Transport failures and 5xx
// responses become NetworkError; 4xx map onto the domain sentinels.
func (d *Directory) do(req *http.Request, op string, dest interface{}) error {
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(op, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

func statusError(op string, status int, body []byte) error {
	detail := problemDetail(body)
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return &domain.NotFoundError{Message: detail}
	case status == http.StatusConflict:
		return &domain.ConflictError{Message: detail}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusRequestEntityTooLarge:
		return &domain.ValidationError{Message: detail}
	default:
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("API error (status %d): %s", status, detail)}
	}
}

// problemDetail extracts "detail" from an RFC 7807 body, falling back to the raw text.
func problemDetail(body []byte) string {
	var problem struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Detail != "" {
		return problem.Detail
	}
	return strings.TrimSpace(string(body))
}
