package portfolio

import (
	"context"

	"portfolio/internal/domain/models/portfolio"
)

// Explorer is the navigation surface of one open portfolio. Every mutating call
// returns the view-model after the operation.
type Explorer interface {
	Open(ctx context.Context, portfolioID string) (*portfolio.ViewModel, error)
	NavigateTo(ctx context.Context, folderID string) (*portfolio.ViewModel, error)
	Back(ctx context.Context) (*portfolio.ViewModel, error)
	Forward(ctx context.Context) (*portfolio.ViewModel, error)
	Up(ctx context.Context) (*portfolio.ViewModel, error)
	Refresh(ctx context.Context) (*portfolio.ViewModel, error)
	RefreshStructure(ctx context.Context) (*portfolio.ViewModel, error)
	RefreshIfCurrent(ctx context.Context, folderID string) (*portfolio.ViewModel, error)

	SetCriteria(criteria portfolio.FilterCriteria) (*portfolio.ViewModel, error)
	PatchCriteria(patch func(portfolio.FilterCriteria) portfolio.FilterCriteria) (*portfolio.ViewModel, error)
	SetViewMode(mode portfolio.ViewMode) (*portfolio.ViewModel, error)

	ToggleSelection(documentID string) *portfolio.ViewModel
	SelectAll() *portfolio.ViewModel
	ClearSelection() *portfolio.ViewModel
	SelectedDocuments() []portfolio.Document

	CurrentFolderID() string
	View() *portfolio.ViewModel
}

// UploadService validates dropped files and hands the accepted ones to the directory service.
type UploadService interface {
	// ValidateBatch splits files into accepted and rejected without touching the network
	ValidateBatch(files []portfolio.UploadFile) portfolio.BatchValidation

	// UploadBatch validates then uploads accepted files in submission order.
	// A failure on one file is recorded and does not abort the remaining queue.
	UploadBatch(ctx context.Context, folderID string, files []portfolio.UploadFile) (*portfolio.UploadReport, error)
}
