package portfolio

import (
	"io"
	"path/filepath"
	"strings"
)

// UploadFile is a file dropped onto the explorer, before it reaches the directory service.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Format returns the lowercase extension of the file name without the leading dot.
func (f UploadFile) Format() string {
	return FormatOf(f.Name)
}

// FormatOf returns the lowercase extension of name without the leading dot.
// "Thesis.PDF" -> "pdf", "README" -> "".
func FormatOf(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// UploadRejection records a file refused by the upload validator.
type UploadRejection struct {
	File      string `json:"file"`
	SizeBytes int64  `json:"size_bytes"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// BatchValidation is the outcome of validating a batch of dropped files.
// Partial success is allowed; one invalid file never blocks the others.
type BatchValidation struct {
	Accepted []UploadFile
	Rejected []UploadRejection
}

// UploadFailure records an accepted file whose upload failed.
type UploadFailure struct {
	File      string `json:"file"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// UploadSummary contains aggregate counts for an upload batch.
type UploadSummary struct {
	TotalFiles int `json:"total_files"`
	Uploaded   int `json:"uploaded"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}

// UploadReport is the result of validating and uploading a batch.
// Uploaded keeps the order of the submitted files.
type UploadReport struct {
	FolderID string            `json:"folder_id"`
	Summary  UploadSummary     `json:"summary"`
	Uploaded []Document        `json:"uploaded"`
	Rejected []UploadRejection `json:"rejected"`
	Failed   []UploadFailure   `json:"failed"`
}
