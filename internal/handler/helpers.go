package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	"portfolio/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	handleViewError(w, nil, err)
}

// handleViewError is handleError for explorer operations. A directory failure still
// leaves the explorer in a well-defined state, so that view rides along in the problem.
func handleViewError(w http.ResponseWriter, view *models.ViewModel, err error) {
	var rejectedErr *domain.UploadRejectedError
	var networkErr *domain.NetworkError
	var conflictErr *domain.ConflictError

	switch {
	case errors.As(err, &rejectedErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, rejectedErr.Error(), map[string]interface{}{
			"file":   rejectedErr.File,
			"reason": rejectedErr.Reason,
		})
	case errors.As(err, &networkErr):
		extras := map[string]interface{}{
			"retryable": networkErr.Retryable(),
			"op":        networkErr.Op,
		}
		if view != nil {
			extras["view"] = view
		}
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, networkErr.Error(), extras)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{}
		if conflictErr.ResourceType != "" {
			extras["resource_type"] = conflictErr.ResourceType
		}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Health reports liveness
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
