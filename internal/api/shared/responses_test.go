package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	RespondWithJSON(rec, req, http.StatusOK, map[string]string{"message": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["message"])
}

func TestRespondWithRawJSON_PreservesBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	payload := []byte(`{"b":1,"a":2}`)
	RespondWithRawJSON(rec, req, http.StatusOK, payload)

	// Byte-identical, key order untouched.
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestRespondWithError_IncludesTraceID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(SetTraceID(req.Context()))

	RespondWithError(rec, req, http.StatusNotFound, "Task not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Task not found", body.Error)
	assert.NotEmpty(t, body.TraceID)
}

func TestRespondWithErrorAndLog_HidesRawError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError,
		"Failed to process upload", errors.New("pq: connection refused host=10.0.0.5"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to process upload", body.Error)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
