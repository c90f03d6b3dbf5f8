package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorHint(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorHint(rec, 403, "failed to update folder permissions",
		"The configured Grafana credential lacks admin permissions.")

	assert.Equal(t, 403, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to update folder permissions", body.Error)
	assert.Contains(t, body.Hint, "admin permissions")
}

func TestWriteErrorMessageOmitsHint(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorMessage(rec, 404, "folder not found")

	assert.JSONEq(t, `{"error":"folder not found"}`, rec.Body.String())
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]int{"count": 3}))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}
