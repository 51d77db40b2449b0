package portfolio

import (
	"context"
	"errors"
	"log/slog"

	"portfolio/internal/config"
	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"

	"golang.org/x/sync/errgroup"
)

// uploader validates batches and hands accepted files to the directory service.
type uploader struct {
	directory   portfolioSvc.DirectoryService
	validator   *UploadValidator
	concurrency int
	logger      *slog.Logger
}

// NewUploader creates the upload service. With concurrency 1 accepted files are
// uploaded one at a time in submission order; higher values run a bounded pool.
func NewUploader(
	directory portfolioSvc.DirectoryService,
	validator *UploadValidator,
	concurrency int,
	logger *slog.Logger,
) portfolioSvc.UploadService {
	concurrency = min(max(concurrency, 1), config.MaxUploadConcurrency)
	return &uploader{
		directory:   directory,
		validator:   validator,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (u *uploader) ValidateBatch(files []models.UploadFile) models.BatchValidation {
	return u.validator.ValidateBatch(files)
}

// UploadBatch validates files then uploads the accepted ones. Per-file failures are
// recorded in the report; the returned error is reserved for an invalid folder id.
func (u *uploader) UploadBatch(ctx context.Context, folderID string, files []models.UploadFile) (*models.UploadReport, error) {
	if folderID == "" {
		return nil, &domain.ValidationError{Message: "folder id is required"}
	}

	batch := u.validator.ValidateBatch(files)
	for _, r := range batch.Rejected {
		u.logger.Info("upload rejected",
			"folder_id", folderID,
			"file", r.File,
			"reason", r.Reason,
			"size_bytes", r.SizeBytes,
		)
	}

	type outcome struct {
		doc *models.Document
		err error
	}
	outcomes := make([]outcome, len(batch.Accepted))

	g := new(errgroup.Group)
	g.SetLimit(u.concurrency)
	for i, file := range batch.Accepted {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			doc, err := u.directory.UploadDocument(ctx, folderID, file)
			if err == nil && doc == nil {
				err = errors.New("directory returned no document")
			}
			outcomes[i] = outcome{doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait() // workers record failures instead of returning them

	report := &models.UploadReport{
		FolderID: folderID,
		Uploaded: []models.Document{},
		Rejected: batch.Rejected,
		Failed:   []models.UploadFailure{},
	}
	for i, o := range outcomes {
		name := batch.Accepted[i].Name
		if o.err != nil {
			err := domain.AsNetworkError("upload_document", o.err)
			var netErr *domain.NetworkError
			report.Failed = append(report.Failed, models.UploadFailure{
				File:      name,
				Error:     err.Error(),
				Retryable: errors.As(err, &netErr),
			})
			u.logger.Warn("upload failed",
				"folder_id", folderID,
				"file", name,
				"error", err,
			)
			continue
		}
		report.Uploaded = append(report.Uploaded, *o.doc)
		u.logger.Debug("document uploaded",
			"folder_id", folderID,
			"file", name,
			"document_id", o.doc.ID,
		)
	}

	report.Summary = models.UploadSummary{
		TotalFiles: len(files),
		Uploaded:   len(report.Uploaded),
		Rejected:   len(report.Rejected),
		Failed:     len(report.Failed),
	}

	u.logger.Info("upload batch complete",
		"folder_id", folderID,
		"total_files", report.Summary.TotalFiles,
		"uploaded", report.Summary.Uploaded,
		"rejected", report.Summary.Rejected,
		"failed", report.Summary.Failed,
	)

	return report, nil
}
