package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrycast/internal/types"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON_WritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(rec, req, http.StatusCreated, APIResponse{Data: map[string]string{"id": "abc"}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"abc"}}`, rec.Body.String())
}

func TestError_AppErrorDrivesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-1"))

	Error(rec, req, types.NewAppError(types.ErrCodeNotFoundCorridor, "corridor not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "not_found_corridor", body.Error.Code)
	assert.Equal(t, "corridor not found", body.Error.Message)
	assert.Equal(t, "req-1", body.Error.RequestID)
}

func TestError_WrappedAppErrorIsUnwrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	inner := types.NewAppError(types.ErrCodeValidationInvalidLimit, "limit out of range", nil)
	Error(rec, req, inner)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_invalid_limit", decodeErrorBody(t, rec).Error.Code)
}

func TestError_GenericErrorIsOpaque500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, req, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "internal_unexpected_error", body.Error.Code)
	assert.NotContains(t, body.Error.Message, assert.AnError.Error())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		RouteID string `json:"route_id"`
	}

	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantMessage string
	}{
		{
			name: "valid object",
			body: `{"route_id": "wh-vh-ssa"}`,
		},
		{
			name:        "empty body",
			body:        "",
			wantErr:     true,
			wantMessage: "empty",
		},
		{
			name:        "malformed json",
			body:        `{"route_id":`,
			wantErr:     true,
			wantMessage: "malformed",
		},
		{
			name:        "unknown field",
			body:        `{"route_id": "x", "bogus": 1}`,
			wantErr:     true,
			wantMessage: "unknown field",
		},
		{
			name:        "wrong type",
			body:        `{"route_id": 42}`,
			wantErr:     true,
			wantMessage: "invalid value",
		},
		{
			name:        "trailing garbage",
			body:        `{"route_id": "x"}{"route_id": "y"}`,
			wantErr:     true,
			wantMessage: "single JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst payload
			err := DecodeJSON(rec, req, &dst)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "wh-vh-ssa", dst.RouteID)
				return
			}

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errCodeValidationInvalidJSON, appErr.Code)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
			assert.Contains(t, appErr.Message, tt.wantMessage)
		})
	}
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	big := `{"route_id": "` + strings.Repeat("x", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	var dst struct {
		RouteID string `json:"route_id"`
	}
	err := DecodeJSON(rec, req, &dst)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "1MB")
}
