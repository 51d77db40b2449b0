package handler

import "net/http"

// RegisterRoutes mounts the directory API, the explorer API and /health on mux.
func RegisterRoutes(mux *http.ServeMux, directory *DirectoryHandler, explorer *ExplorerHandler) {
	mux.HandleFunc("GET /health", Health)

	// Directory API
	mux.HandleFunc("GET /api/portfolios/{id}/structure", directory.GetStructure)
	mux.HandleFunc("GET /api/folders/{id}/documents", directory.GetDocuments)
	mux.HandleFunc("POST /api/folders/{id}/documents", directory.UploadDocument)

	// Explorer sessions
	mux.HandleFunc("POST /api/explorers", explorer.Create)
	mux.HandleFunc("GET /api/explorers/{id}", explorer.Get)
	mux.HandleFunc("DELETE /api/explorers/{id}", explorer.Close)
	mux.HandleFunc("GET /api/explorers/{id}/events", explorer.Events) // SSE view stream

	// Navigation
	mux.HandleFunc("POST /api/explorers/{id}/navigate", explorer.Navigate)
	mux.HandleFunc("POST /api/explorers/{id}/back", explorer.Back)
	mux.HandleFunc("POST /api/explorers/{id}/forward", explorer.Forward)
	mux.HandleFunc("POST /api/explorers/{id}/up", explorer.Up)
	mux.HandleFunc("POST /api/explorers/{id}/refresh", explorer.Refresh)
	mux.HandleFunc("POST /api/explorers/{id}/structure/refresh", explorer.RefreshStructure)

	// Filtering and layout
	mux.HandleFunc("PUT /api/explorers/{id}/criteria", explorer.SetCriteria)
	mux.HandleFunc("PATCH /api/explorers/{id}/criteria", explorer.PatchCriteria)
	mux.HandleFunc("PUT /api/explorers/{id}/view-mode", explorer.SetViewMode)

	// Selection
	mux.HandleFunc("GET /api/explorers/{id}/selection", explorer.GetSelection)
	mux.HandleFunc("POST /api/explorers/{id}/selection/toggle", explorer.ToggleSelection)
	mux.HandleFunc("POST /api/explorers/{id}/selection/all", explorer.SelectAll)
	mux.HandleFunc("DELETE /api/explorers/{id}/selection", explorer.ClearSelection)

	// Uploads
	mux.HandleFunc("POST /api/explorers/{id}/uploads", explorer.Upload)
}
