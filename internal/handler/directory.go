package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"portfolio/internal/config"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/httputil"
	portfolio "portfolio/internal/service/portfolio"
)

// multipartOverhead is allowed on top of the file size limit for boundaries and headers
const multipartOverhead = 1 << 20

// DirectoryHandler exposes the configured directory backend over REST.
// The remote backend of another instance consumes these routes.
type DirectoryHandler struct {
	directory portfolioSvc.DirectoryService
	validator *portfolio.UploadValidator
	logger    *slog.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory portfolioSvc.DirectoryService, validator *portfolio.UploadValidator, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		directory: directory,
		validator: validator,
		logger:    logger,
	}
}

// GetStructure returns the nested folder tree of a portfolio
// GET /api/portfolios/{id}/structure
func (h *DirectoryHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.PathValue("id")
	if portfolioID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Portfolio ID is required")
		return
	}

	root, err := h.directory.GetStructure(r.Context(), portfolioID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, root)
}

// GetDocuments lists the documents directly inside a folder
// GET /api/folders/{id}/documents
func (h *DirectoryHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	folderID := r.PathValue("id")
	if folderID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	docs, err := h.directory.GetDocumentsByFolder(r.Context(), folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// UploadDocument stores one file sent as the multipart "file" field.
// Returns 201 with the document, 422 if the file is rejected, 409 on a name conflict.
// POST /api/folders/{id}/documents
func (h *DirectoryHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	folderID := r.PathValue("id")
	if folderID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	if maxSize := h.validator.MaxSizeBytes(); maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		respondMultipartError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }() // Error ignored: temp files only

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }() // Error ignored: read-only

	upload := models.UploadFile{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	}
	if err := h.validator.Validate(upload); err != nil {
		h.logger.Info("upload rejected",
			"folder_id", folderID,
			"file", header.Filename,
			"error", err,
		)
		handleError(w, err)
		return
	}

	doc, err := h.directory.UploadDocument(r.Context(), folderID, upload)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

func respondMultipartError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	httputil.RespondError(w, http.StatusBadRequest, "Failed to parse multipart form")
}
