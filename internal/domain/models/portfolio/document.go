package portfolio

import (
	"time"
)

// DocumentStatus is the review status of an uploaded document.
type DocumentStatus string

const (
	StatusPending         DocumentStatus = "pending"
	StatusInReview        DocumentStatus = "in_review"
	StatusApproved        DocumentStatus = "approved"
	StatusRejected        DocumentStatus = "rejected"
	StatusNeedsCorrection DocumentStatus = "needs_correction"
)

// DocumentStatuses lists every valid status, in workflow order.
var DocumentStatuses = []DocumentStatus{
	StatusPending,
	StatusInReview,
	StatusApproved,
	StatusRejected,
	StatusNeedsCorrection,
}

// Document is a file belonging to exactly one folder.
type Document struct {
	ID           string         `json:"id" db:"id"`
	OriginalName string         `json:"original_name" db:"original_name"`
	Format       string         `json:"format" db:"format"` // Lowercase extension without the dot
	SizeBytes    int64          `json:"size_bytes" db:"size_bytes"`
	Status       DocumentStatus `json:"status" db:"status"`
	Version      int            `json:"version" db:"version"`
	UploadedAt   time.Time      `json:"uploaded_at" db:"uploaded_at"`
	FolderID     string         `json:"folder_id" db:"folder_id"`
}
