package config

import "time"

const (
	// DefaultMaxUploadBytes is the per-file upload ceiling when neither UPLOAD_MAX_BYTES
	// nor the explorer config sets one (50 MiB).
	DefaultMaxUploadBytes int64 = 50 << 20

	// DefaultMaxUploadBatchBytes bounds the whole multipart body of an explorer upload
	// batch when UPLOAD_MAX_BATCH_BYTES is not set (256 MiB).
	DefaultMaxUploadBatchBytes int64 = 256 << 20

	// DefaultUploadConcurrency uploads accepted files one at a time, in order.
	DefaultUploadConcurrency = 1

	// MaxUploadConcurrency caps the upload worker pool. Small on purpose:
	// the directory service is a single backend.
	MaxUploadConcurrency = 4

	// DefaultHistoryLimit bounds the back and forward stacks. Oldest entries drop first.
	DefaultHistoryLimit = 100

	// DefaultSessionIdleTimeout evicts explorer sessions nobody touched for this long.
	DefaultSessionIdleTimeout = 30 * time.Minute

	// DefaultLogMaxFiles is how many timestamped log files are kept in LOG_DIR.
	DefaultLogMaxFiles = 10

	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// MaxDocumentNameLength is the maximum length for an uploaded file's original name.
	MaxDocumentNameLength = 255

	// MaxSearchTermLength is the maximum length of a filter search term.
	MaxSearchTermLength = 200

	// MaxFormatFamilyLength is the maximum length of a format family name.
	MaxFormatFamilyLength = 64

	// MaxMultipartMemory is how much of an upload request is buffered in memory
	// before spilling to temporary files.
	MaxMultipartMemory = 32 << 20
)
