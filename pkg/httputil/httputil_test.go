package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
	"github.com/Lnando2k21/projetofinal/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hello", decode(t, rec).Data)
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

// --- WriteError ---

func TestWriteError_AppErrorKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.NotFound("service request", "req-1"), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.RoleViolation("only customers can create requests"), http.StatusForbidden, "ROLE_VIOLATION"},
		{apperrors.OwnershipViolation("not the provider"), http.StatusForbidden, "OWNERSHIP_VIOLATION"},
		{apperrors.InvalidState("cannot complete a pending request"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{apperrors.Conflict("request already reviewed"), http.StatusConflict, "CONFLICT"},
		{apperrors.Validation("rating must be between 1 and 5"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperrors.Unauthenticated("missing token"), http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/api/v1/requests/req-1/accept", nil)

			WriteError(rec, req, fmt.Errorf("wrapped: %w", tt.err), testLogger())

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "resource not found", resp.Error.Message)
}

func TestWriteError_SentinelConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/test", nil)

	WriteError(rec, req, fmt.Errorf("update status: %w", apperrors.ErrConflict), testLogger())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestWriteError_UnknownErrorIsInternal(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, errors.New("connection reset by peer"), l)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
	assert.Contains(t, buf.String(), "connection reset by peer", "internal errors must be logged")
}

func TestWriteError_InternalAppErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.Internal(errors.New("secret detail")), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWriteError_IncludesCorrelationID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "corr-77"))

	WriteError(rec, req, apperrors.NotFound("review", "rev-1"), testLogger())

	assert.Equal(t, "corr-77", decode(t, rec).Error.RequestID)
}

// --- Pagination envelope ---

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 45, 2, 20)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.Len(t, resp.Data, 2)

	last := NewPaginatedResponse([]string{"x"}, 41, 3, 20)
	assert.False(t, last.HasNext)
}

func TestNewPaginatedResponse_NilDataBecomesEmpty(t *testing.T) {
	resp := NewPaginatedResponse[int](nil, 0, 1, 20)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 0, resp.TotalPages)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

// --- Validation / decoding ---

type createBody struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	Notes     string `json:"notes" validate:"max=500"`
}

func TestDecodeJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"service_id":"550e8400-e29b-41d4-a716-446655440000"}`))

	var body createBody
	ok := DecodeJSON(rec, req, &body)

	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", body.ServiceID)
}

func TestDecodeJSON_MalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))

	var body createBody
	ok := DecodeJSON(rec, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, rec).Error.Code)
}

func TestDecodeJSON_ValidationFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"service_id":"nope"}`))

	var body createBody
	ok := DecodeJSON(rec, req, &body)

	assert.False(t, ok)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "must be a valid UUID", resp.Error.Fields["service_id"])
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, errors.New("bad scheduled_date"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad scheduled_date", decode(t, rec).Error.Message)
}

// --- ParseUUID ---

func TestParseUUID_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
}

func TestParseUUID_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
}
