package portfolio

import (
	"context"

	"portfolio/internal/domain/models/portfolio"
)

// DirectoryService is the portfolio directory collaborator the explorer consumes.
// Implementations: Postgres, local filesystem and a REST client for a remote server.
type DirectoryService interface {
	// GetStructure returns a whole-tree snapshot rooted at the portfolio's root folder
	GetStructure(ctx context.Context, portfolioID string) (*portfolio.FolderNode, error)

	// GetDocumentsByFolder lists the documents directly inside a folder
	GetDocumentsByFolder(ctx context.Context, folderID string) ([]portfolio.Document, error)

	// UploadDocument stores a file in a folder and returns the created document
	UploadDocument(ctx context.Context, folderID string, file portfolio.UploadFile) (*portfolio.Document, error)
}
