package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/metagrid/directory/internal/errors"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var envelope Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, http.StatusCreated, gin.H{"id": "42"})

	assert.Equal(t, http.StatusCreated, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, "success", envelope.Status)
	assert.Empty(t, envelope.Error)
}

func TestFailure(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Failure(c, http.StatusBadRequest, "bad input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, "failure", envelope.Status)
	assert.Equal(t, "bad input", envelope.Error)
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: apperrors.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "expired", err: apperrors.ErrExpired, wantStatus: http.StatusNotFound},
		{name: "conflict", err: apperrors.ErrConflict, wantStatus: http.StatusConflict},
		{name: "invalid input", err: apperrors.ErrInvalidInput, wantStatus: http.StatusUnprocessableEntity},
		{name: "unauthorized", err: apperrors.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "forbidden", err: apperrors.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleErrorGin(c, tt.err, testLogger())

			assert.Equal(t, tt.wantStatus, w.Code)
			envelope := decodeEnvelope(t, w)
			assert.Equal(t, "failure", envelope.Status)
			assert.NotEmpty(t, envelope.Error)
		})
	}
}

// An expired credential must be indistinguishable from a missing one.
func TestHandleErrorGin_ExpiredMatchesNotFound(t *testing.T) {
	notFound := httptest.NewRecorder()
	c1, _ := gin.CreateTestContext(notFound)
	HandleErrorGin(c1, apperrors.ErrNotFound, testLogger())

	expired := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(expired)
	HandleErrorGin(c2, apperrors.ErrExpired, testLogger())

	assert.Equal(t, notFound.Code, expired.Code)
	assert.Equal(t, notFound.Body.String(), expired.Body.String())
}

func TestHandleErrorGin_UnknownErrorIsOpaque(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleErrorGin(c, errors.New("connection string leaked"), testLogger())

	envelope := decodeEnvelope(t, w)
	assert.NotContains(t, envelope.Error, "connection string")
}

func TestHandleErrorGin_NilErrorWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleErrorGin(c, nil, testLogger())

	assert.Empty(t, w.Body.String())
}

func TestHandleBadRequestGin(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleBadRequestGin(c, errors.New("unexpected EOF"), testLogger())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, "failure", envelope.Status)
	assert.Equal(t, "unexpected EOF", envelope.Error)
}
