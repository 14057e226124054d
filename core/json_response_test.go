package core_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/backend/core"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) core.JSONResponse {
	t.Helper()
	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	core.JSON(rec, http.StatusOK, map[string]string{"tier": "pro"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"tier": "pro"}, body.Data)
	assert.Nil(t, body.Error)
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	t.Run("http error renders its status and code", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		core.JSONError(rec, req, core.ErrForbidden)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeBody(t, rec)
		require.NotNil(t, body.Error)
		assert.Equal(t, "forbidden", body.Error.Code)
	})

	t.Run("wrapped http error still matches", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		core.JSONError(rec, req, errors.Join(core.ErrNotFound, errors.New("row missing")))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "not_found", body.Error.Code)
	})

	t.Run("validation error carries field details", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/test", nil)

		valErr := core.ValidationError{}
		valErr.Add("walletAddress", "invalid address format")

		core.JSONError(rec, req, valErr)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, []string{"invalid address format"}, body.Error.Details["walletAddress"])
	})

	t.Run("unknown error is an opaque 500", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		core.JSONError(rec, req, errors.New("pgx: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "internal_server_error", body.Error.Code)
		assert.NotContains(t, rec.Body.String(), "pgx")
	})
}
