package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusBadGateway, "get_documents: timeout", map[string]interface{}{
		"retryable": true,
		"status":    999,
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bad Gateway", body["title"])
	assert.Equal(t, float64(http.StatusBadGateway), body["status"], "extras never shadow standard members")
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "get_documents: timeout", body["detail"])
}

func TestParseJSON(t *testing.T) {
	var dest struct {
		FolderID string `json:"folder_id"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"folder_id":"f1"}`))
	require.NoError(t, ParseJSON(httptest.NewRecorder(), req, &dest))
	assert.Equal(t, "f1", dest.FolderID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"folder":"f1"}`))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &dest))
}

func TestOptionalString(t *testing.T) {
	var patch struct {
		Search OptionalString `json:"search_term"`
		Family OptionalString `json:"format_family"`
		Status OptionalString `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"search_term":"cv","format_family":null}`), &patch))

	assert.Equal(t, "cv", patch.Search.Apply("old"))
	assert.Equal(t, "", patch.Family.Apply("image"))
	assert.Equal(t, "approved", patch.Status.Apply("approved"))
}

func TestRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req))
	assert.Equal(t, "r1", GetRequestID(WithRequestID(req, "r1")))
}
