package core

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrycast/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type plainRequest struct {
	Name string `validate:"required,max=10"`
}

type codedRequest struct {
	RouteID string `validate:"required"`
	Status  string `validate:"outcome"`
}

func (r codedRequest) ValidationCode(field string) (types.ErrorCode, string) {
	switch field {
	case "RouteID":
		return types.ErrCodeValidationMissingRouteID, "route_id is required"
	case "Status":
		return types.ErrCodeValidationInvalidOutcome, "status is not recognized"
	}
	return "", ""
}

func TestValidateStruct_ValidInputPasses(t *testing.T) {
	v := NewValidator(testLogger())
	assert.NoError(t, v.ValidateStruct(plainRequest{Name: "wh-vh"}))
	assert.NoError(t, v.ValidateStruct(codedRequest{RouteID: "wh-vh-ssa", Status: "ran"}))
}

func TestValidateStruct_GenericCodeWithoutMapping(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(plainRequest{})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationMissingField, appErr.Code)
	assert.Contains(t, appErr.Message, "name")
}

func TestValidateStruct_CoderMapsFieldToCode(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(codedRequest{Status: "ran"})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationMissingRouteID, appErr.Code)
	assert.Equal(t, "route_id is required", appErr.Message)
}

func TestValidateStruct_OutcomeTagRejectsUnknownValues(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(codedRequest{RouteID: "wh-vh-ssa", Status: "sank"})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidOutcome, appErr.Code)
}
