package portfolio

import (
	"context"
	"errors"
	"testing"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = int64(1 << 20)

func TestUploadValidator_ValidateBatch(t *testing.T) {
	v := NewUploadValidator([]string{"pdf", "docx"}, 50*mb)

	files := []models.UploadFile{
		{Name: "validPdf.pdf", Size: 1 * mb},
		{Name: "oversized.pdf", Size: 100 * mb},
		{Name: "wrongExt.exe", Size: 1024},
	}
	result := v.ValidateBatch(files)

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "validPdf.pdf", result.Accepted[0].Name)

	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "oversized.pdf", result.Rejected[0].File)
	assert.Equal(t, string(domain.FileTooLarge), result.Rejected[0].Reason)
	assert.Equal(t, "wrongExt.exe", result.Rejected[1].File)
	assert.Equal(t, string(domain.UnsupportedFormat), result.Rejected[1].Reason)
}

func TestValidateFile(t *testing.T) {
	allowed := []string{"pdf", ".DOCX"}

	tests := []struct {
		name   string
		file   models.UploadFile
		max    int64
		reason domain.RejectionReason
	}{
		{name: "accepted", file: models.UploadFile{Name: "cv.pdf", Size: 10}, max: 100},
		{name: "extension is case-insensitive", file: models.UploadFile{Name: "Plan.DocX", Size: 10}, max: 100},
		{name: "exactly at limit", file: models.UploadFile{Name: "a.pdf", Size: 100}, max: 100},
		{name: "zero max is unlimited", file: models.UploadFile{Name: "a.pdf", Size: 100 * mb}, max: 0},
		{name: "over limit", file: models.UploadFile{Name: "a.pdf", Size: 101}, max: 100, reason: domain.FileTooLarge},
		{name: "no extension", file: models.UploadFile{Name: "README", Size: 1}, max: 100, reason: domain.UnsupportedFormat},
		{name: "format wins over size", file: models.UploadFile{Name: "a.exe", Size: 500}, max: 100, reason: domain.UnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.file, allowed, tt.max)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var rejected *domain.UploadRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.reason, rejected.Reason)
			assert.Equal(t, tt.file.Name, rejected.File)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestValidateFile_EmptyAllowListRejectsEverything(t *testing.T) {
	err := ValidateFile(models.UploadFile{Name: "a.pdf", Size: 1}, nil, 0)
	var rejected *domain.UploadRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, domain.UnsupportedFormat, rejected.Reason)
}

func TestUploader_SerializesInOrderAndContinuesAfterFailure(t *testing.T) {
	dir := newFakeDirectory()
	dir.uploadErr["b.pdf"] = errors.New("502 bad gateway")
	u := NewUploader(dir, NewUploadValidator([]string{"pdf"}, 50*mb), 1, discardLogger())

	files := []models.UploadFile{
		{Name: "a.pdf", Size: 10},
		{Name: "b.pdf", Size: 20},
		{Name: "skip.exe", Size: 5},
		{Name: "c.pdf", Size: 30},
	}
	report, err := u.UploadBatch(context.Background(), "research", files)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, dir.uploaded)
	assert.Equal(t, 1, dir.maxFlight)

	assert.Equal(t, models.UploadSummary{TotalFiles: 4, Uploaded: 2, Rejected: 1, Failed: 1}, report.Summary)
	require.Len(t, report.Uploaded, 2)
	assert.Equal(t, "a.pdf", report.Uploaded[0].OriginalName)
	assert.Equal(t, "c.pdf", report.Uploaded[1].OriginalName)
	assert.Equal(t, "research", report.Uploaded[0].FolderID)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, "b.pdf", report.Failed[0].File)
	assert.True(t, report.Failed[0].Retryable)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "skip.exe", report.Rejected[0].File)
}

func TestUploader_BoundedPoolKeepsResultOrder(t *testing.T) {
	dir := newFakeDirectory()
	u := NewUploader(dir, NewUploadValidator([]string{"pdf"}, 0), 3, discardLogger())

	var files []models.UploadFile
	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf", "6.pdf"} {
		files = append(files, models.UploadFile{Name: name, Size: 1})
	}
	report, err := u.UploadBatch(context.Background(), "p1", files)
	require.NoError(t, err)

	require.Len(t, report.Uploaded, 6)
	for i, d := range report.Uploaded {
		assert.Equal(t, files[i].Name, d.OriginalName)
	}
	assert.LessOrEqual(t, dir.maxFlight, 3)
}

func TestUploader_ConflictIsNotRetryable(t *testing.T) {
	dir := newFakeDirectory()
	dir.uploadErr["dup.pdf"] = &domain.ConflictError{Message: "dup.pdf already exists", ResourceType: "document"}
	u := NewUploader(dir, NewUploadValidator([]string{"pdf"}, 0), 1, discardLogger())

	report, err := u.UploadBatch(context.Background(), "p1", []models.UploadFile{{Name: "dup.pdf", Size: 1}})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.False(t, report.Failed[0].Retryable)
}

func TestUploader_CancelledContextFailsRemaining(t *testing.T) {
	dir := newFakeDirectory()
	u := NewUploader(dir, NewUploadValidator([]string{"pdf"}, 0), 1, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := u.UploadBatch(ctx, "p1", []models.UploadFile{{Name: "a.pdf", Size: 1}, {Name: "b.pdf", Size: 1}})
	require.NoError(t, err)
	assert.Empty(t, dir.uploaded)
	assert.Equal(t, 2, report.Summary.Failed)
}

func TestUploader_RequiresFolder(t *testing.T) {
	u := NewUploader(newFakeDirectory(), NewUploadValidator([]string{"pdf"}, 0), 1, discardLogger())
	_, err := u.UploadBatch(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
