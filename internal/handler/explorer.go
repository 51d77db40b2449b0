package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"portfolio/internal/config"
	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/handler/sse"
	"portfolio/internal/httputil"
	portfolio "portfolio/internal/service/portfolio"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ExplorerHandler serves explorer sessions: every session is an independent
// navigator and every call answers with the resulting view-model.
type ExplorerHandler struct {
	sessions       *portfolio.SessionStore
	uploads        portfolioSvc.UploadService
	sseConfig      *sse.Config
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewExplorerHandler creates a new explorer handler. A nil sseConfig uses
// sse.DefaultConfig; maxUploadBytes <= 0 uses config.DefaultMaxUploadBatchBytes.
func NewExplorerHandler(
	sessions *portfolio.SessionStore,
	uploads portfolioSvc.UploadService,
	sseConfig *sse.Config,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ExplorerHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.DefaultMaxUploadBatchBytes
	}
	return &ExplorerHandler{
		sessions:       sessions,
		uploads:        uploads,
		sseConfig:      sseConfig,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// ExplorerResponse is returned by every explorer endpoint
type ExplorerResponse struct {
	SessionID string            `json:"session_id"`
	View      *models.ViewModel `json:"view"`
}

// UploadResponse is returned by the upload endpoint
type UploadResponse struct {
	SessionID string               `json:"session_id"`
	Report    *models.UploadReport `json:"report"`
	View      *models.ViewModel    `json:"view"`
}

// SelectedDocumentsResponse lists the selected documents in view order
type SelectedDocumentsResponse struct {
	SessionID string            `json:"session_id"`
	Documents []models.Document `json:"documents"`
}

type openExplorerRequest struct {
	PortfolioID string `json:"portfolio_id"`
}

func (r *openExplorerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PortfolioID, validation.Required),
	)
}

type navigateRequest struct {
	FolderID string `json:"folder_id"`
}

func (r *navigateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FolderID, validation.Required),
	)
}

type viewModeRequest struct {
	ViewMode models.ViewMode `json:"view_mode"`
}

type toggleSelectionRequest struct {
	DocumentID string `json:"document_id"`
}

func (r *toggleSelectionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required),
	)
}

// criteriaPatch is an RFC 7396 merge patch over the active criteria.
// Absent fields are kept, null clears a predicate.
type criteriaPatch struct {
	FormatFamily  httputil.OptionalString `json:"format_family"`
	Status        httputil.OptionalString `json:"status"`
	SearchTerm    httputil.OptionalString `json:"search_term"`
	SortField     httputil.OptionalString `json:"sort_field"`
	SortDirection httputil.OptionalString `json:"sort_direction"`
}

func (p criteriaPatch) apply(current models.FilterCriteria) models.FilterCriteria {
	return models.FilterCriteria{
		FormatFamily:  p.FormatFamily.Apply(current.FormatFamily),
		Status:        models.DocumentStatus(p.Status.Apply(string(current.Status))),
		SearchTerm:    p.SearchTerm.Apply(current.SearchTerm),
		SortField:     models.SortField(p.SortField.Apply(string(current.SortField))),
		SortDirection: models.SortDirection(p.SortDirection.Apply(string(current.SortDirection))),
	}
}

// Create opens a portfolio in a new explorer session
// POST /api/explorers
// Returns 201 with the root folder view
func (h *ExplorerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req openExplorerRequest
	if !h.parseRequest(w, r, &req) {
		return
	}

	session := h.sessions.Create()
	view, err := session.Explorer.Open(r.Context(), req.PortfolioID)
	if err != nil {
		_ = h.sessions.Close(session.ID) // Error ignored: session was just created
		h.logger.Warn("failed to open portfolio",
			"portfolio_id", req.PortfolioID,
			"error", err,
		)
		handleViewError(w, view, err)
		return
	}

	h.logger.Info("explorer opened",
		"session_id", session.ID,
		"portfolio_id", req.PortfolioID,
	)
	httputil.RespondJSON(w, http.StatusCreated, ExplorerResponse{SessionID: session.ID, View: view})
}

// Get returns the current view
// GET /api/explorers/{id}
func (h *ExplorerHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, ExplorerResponse{SessionID: session.ID, View: session.Explorer.View()})
}

// Close ends a session
// DELETE /api/explorers/{id}
func (h *ExplorerHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigate moves to a folder
// POST /api/explorers/{id}/navigate
func (h *ExplorerHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !h.parseRequest(w, r, &req) {
		return
	}
	h.run(w, r, func(nav *portfolio.Navigator, ctx context.Context) (*models.ViewModel, error) {
		return nav.NavigateTo(ctx, req.FolderID)
	})
}

// Back returns to the previous folder
// POST /api/explorers/{id}/back
func (h *ExplorerHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*portfolio.Navigator).Back)
}

// Forward re-visits the folder left by Back
// POST /api/explorers/{id}/forward
func (h *ExplorerHandler) Forward(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*portfolio.Navigator).Forward)
}

// Up moves to the parent folder
// POST /api/explorers/{id}/up
func (h *ExplorerHandler) Up(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*portfolio.Navigator).Up)
}

// Refresh reloads the current folder; the retry path after a directory failure
// POST /api/explorers/{id}/refresh
func (h *ExplorerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*portfolio.Navigator).Refresh)
}

// RefreshStructure refetches the folder tree
// POST /api/explorers/{id}/structure/refresh
func (h *ExplorerHandler) RefreshStructure(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*portfolio.Navigator).RefreshStructure)
}

// SetCriteria replaces the filter and sort criteria
// PUT /api/explorers/{id}/criteria
func (h *ExplorerHandler) SetCriteria(w http.ResponseWriter, r *http.Request) {
	var criteria models.FilterCriteria
	if err := httputil.ParseJSON(w, r, &criteria); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.SetCriteria(criteria)
	})
}

// PatchCriteria merges a partial update into the active criteria
// PATCH /api/explorers/{id}/criteria
func (h *ExplorerHandler) PatchCriteria(w http.ResponseWriter, r *http.Request) {
	var patch criteriaPatch
	if err := httputil.ParseJSON(w, r, &patch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.PatchCriteria(patch.apply)
	})
}

// SetViewMode switches between list and grid; the selection is cleared
// PUT /api/explorers/{id}/view-mode
func (h *ExplorerHandler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	var req viewModeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.SetViewMode(req.ViewMode)
	})
}

// ToggleSelection flips one visible document in or out of the selection
// POST /api/explorers/{id}/selection/toggle
func (h *ExplorerHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleSelectionRequest
	if !h.parseRequest(w, r, &req) {
		return
	}
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.ToggleSelection(req.DocumentID), nil
	})
}

// SelectAll selects every visible document
// POST /api/explorers/{id}/selection/all
func (h *ExplorerHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.SelectAll(), nil
	})
}

// ClearSelection empties the selection
// DELETE /api/explorers/{id}/selection
func (h *ExplorerHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(nav *portfolio.Navigator, _ context.Context) (*models.ViewModel, error) {
		return nav.ClearSelection(), nil
	})
}

// GetSelection returns the selected documents for bulk actions
// GET /api/explorers/{id}/selection
func (h *ExplorerHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, SelectedDocumentsResponse{
		SessionID: session.ID,
		Documents: session.Explorer.SelectedDocuments(),
	})
}

// Upload validates and uploads the multipart "files" field into a folder.
// The target is the folder_id query parameter, or the current folder when absent.
// Rejected and failed files are reported per file; the batch itself answers 200.
// A body over the batch limit is refused with 413 before any file is stored.
// POST /api/explorers/{id}/uploads
func (h *ExplorerHandler) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	nav := session.Explorer

	folderID := r.URL.Query().Get("folder_id")
	if folderID == "" {
		folderID = nav.CurrentFolderID()
	}
	if folderID == "" {
		handleError(w, portfolio.ErrNotOpen)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	headers, err := httputil.FormFiles(r, "files", config.MaxMultipartMemory)
	if err != nil {
		if errors.Is(err, httputil.ErrNoFiles) {
			httputil.RespondError(w, http.StatusBadRequest, "No files provided")
			return
		}
		respondMultipartError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }() // Error ignored: temp files only

	files := make([]models.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file",
				"file", header.Filename,
				"error", err,
			)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open file %s", header.Filename))
			return
		}
		defer func() { _ = file.Close() }() // Error ignored: read-only

		files = append(files, models.UploadFile{
			Name:    header.Filename,
			Size:    header.Size,
			Content: file,
		})
	}

	h.logger.Info("starting upload batch",
		"session_id", session.ID,
		"folder_id", folderID,
		"file_count", len(files),
	)

	report, err := h.uploads.UploadBatch(r.Context(), folderID, files)
	if err != nil {
		handleError(w, err)
		return
	}

	view := nav.View()
	if report.Summary.Uploaded > 0 {
		refreshed, err := nav.RefreshIfCurrent(r.Context(), folderID)
		if err != nil {
			h.logger.Warn("refresh after upload failed",
				"session_id", session.ID,
				"folder_id", folderID,
				"error", err,
			)
		}
		if refreshed != nil {
			view = refreshed
		}
	}

	httputil.RespondJSON(w, http.StatusOK, UploadResponse{
		SessionID: session.ID,
		Report:    report,
		View:      view,
	})
}

// Events streams a "view" event with the view-model after every change of the session.
// The current view is sent first. Slow clients only receive the latest view.
// GET /api/explorers/{id}/events
func (h *ExplorerHandler) Events(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	nav := session.Explorer

	views := make(chan models.ViewModel, 1)
	unsubscribe := nav.OnViewChange(func(view models.ViewModel) {
		for {
			select {
			case views <- view:
				return
			default:
			}
			// Replace the pending view with the newer one
			select {
			case <-views:
			default:
			}
		}
	})
	defer unsubscribe()

	writer, err := sse.NewWriter(w, session.ID)
	if err != nil {
		h.logger.Error("failed to start event stream", "session_id", session.ID, "error", err)
		return
	}

	send := func(view *models.ViewModel) error {
		payload, err := json.Marshal(view)
		if err != nil {
			return err
		}
		return writer.WriteEvent("view", payload)
	}
	if err := send(nav.View()); err != nil {
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("event stream opened", "session_id", session.ID)
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("event stream closed", "session_id", session.ID)
			return
		case <-stopped:
			return
		case view := <-views:
			if err := send(&view); err != nil {
				h.logger.Debug("event stream write failed", "session_id", session.ID, "error", err)
				return
			}
		}
	}
}

// run resolves the session and applies op to its navigator
func (h *ExplorerHandler) run(w http.ResponseWriter, r *http.Request, op func(*portfolio.Navigator, context.Context) (*models.ViewModel, error)) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := op(session.Explorer, r.Context())
	if err != nil {
		var networkErr *domain.NetworkError
		if errors.As(err, &networkErr) {
			h.logger.Warn("directory request failed",
				"session_id", session.ID,
				"op", networkErr.Op,
				"error", networkErr.Err,
			)
		}
		handleViewError(w, view, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ExplorerResponse{SessionID: session.ID, View: view})
}

func (h *ExplorerHandler) session(w http.ResponseWriter, r *http.Request) (*portfolio.Session, bool) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return session, true
}

// parseRequest decodes and validates a JSON body. Validation failures answer 400.
func (h *ExplorerHandler) parseRequest(w http.ResponseWriter, r *http.Request, req validation.Validatable) bool {
	if err := httputil.ParseJSON(w, r, req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return false
	}
	return true
}
