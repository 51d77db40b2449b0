package portfolio

import (
	"fmt"
	"slices"
	"strings"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateFile checks a single dropped file against the allowed extensions and the
// size ceiling. The format is checked first, so a file that is both oversized and of
// the wrong type is reported as UnsupportedFormat. A maxSizeBytes <= 0 disables the
// size check. Returns nil or an *domain.UploadRejectedError.
func ValidateFile(file models.UploadFile, allowedFormats []string, maxSizeBytes int64) error {
	format := file.Format()

	allowed := make([]interface{}, len(allowedFormats))
	for i, f := range allowedFormats {
		allowed[i] = strings.ToLower(strings.TrimPrefix(f, "."))
	}
	if err := validation.Validate(format, validation.Required, validation.In(allowed...)); err != nil {
		detail := fmt.Sprintf("format %q is not accepted", format)
		if format == "" {
			detail = "file has no extension"
		}
		return &domain.UploadRejectedError{
			File:   file.Name,
			Reason: domain.UnsupportedFormat,
			Detail: detail,
		}
	}

	if maxSizeBytes > 0 {
		if err := validation.Validate(file.Size, validation.Max(maxSizeBytes)); err != nil {
			return &domain.UploadRejectedError{
				File:   file.Name,
				Reason: domain.FileTooLarge,
				Detail: fmt.Sprintf("%d bytes exceeds the %d byte limit", file.Size, maxSizeBytes),
			}
		}
	}

	return nil
}

// UploadValidator gates files before they reach the directory service.
// It never touches the network.
type UploadValidator struct {
	allowed []string
	maxSize int64
}

// NewUploadValidator creates a validator for the given extensions and size ceiling.
func NewUploadValidator(allowedFormats []string, maxSizeBytes int64) *UploadValidator {
	allowed := make([]string, 0, len(allowedFormats))
	for _, f := range allowedFormats {
		f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
		if f != "" && !slices.Contains(allowed, f) {
			allowed = append(allowed, f)
		}
	}
	return &UploadValidator{allowed: allowed, maxSize: maxSizeBytes}
}

// AllowedFormats returns the accepted extensions.
func (v *UploadValidator) AllowedFormats() []string {
	return slices.Clone(v.allowed)
}

// MaxSizeBytes returns the size ceiling, or 0 when unlimited.
func (v *UploadValidator) MaxSizeBytes() int64 {
	return max(v.maxSize, 0)
}

// Validate checks one file.
func (v *UploadValidator) Validate(file models.UploadFile) error {
	return ValidateFile(file, v.allowed, v.maxSize)
}

// ValidateBatch splits files into accepted and rejected, keeping input order in both.
// One invalid file never blocks the others.
func (v *UploadValidator) ValidateBatch(files []models.UploadFile) models.BatchValidation {
	result := models.BatchValidation{
		Accepted: []models.UploadFile{},
		Rejected: []models.UploadRejection{},
	}
	for _, file := range files {
		if err := v.Validate(file); err != nil {
			result.Rejected = append(result.Rejected, rejectionFor(file, err))
			continue
		}
		result.Accepted = append(result.Accepted, file)
	}
	return result
}

func rejectionFor(file models.UploadFile, err error) models.UploadRejection {
	rejection := models.UploadRejection{
		File:      file.Name,
		SizeBytes: file.Size,
		Message:   err.Error(),
	}
	if rejected, ok := err.(*domain.UploadRejectedError); ok {
		rejection.Reason = string(rejected.Reason)
	}
	return rejection
}
