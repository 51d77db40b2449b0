package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// maxJSONBody bounds explorer request bodies; they carry ids and criteria only.
const maxJSONBody = 1 << 20

// ErrNoFiles is returned by FormFiles when the field carries no file.
var ErrNoFiles = errors.New("no files provided")

// ParseJSON decodes JSON from the request body into dest. Unknown fields are rejected.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// FormFiles parses a multipart request and returns the file headers of field.
// Parts beyond maxMemory are spooled to temporary files by the standard library;
// call r.MultipartForm.RemoveAll when done.
func FormFiles(r *http.Request, field string, maxMemory int64) ([]*multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}
