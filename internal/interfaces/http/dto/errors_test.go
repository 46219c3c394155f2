package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnknownField, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeProjectNotFound, http.StatusNotFound},
		{ErrCodeCategoryNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidNumber, http.StatusBadRequest},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"UNKNOWN_FIELD", ErrCodeUnknownField},
		{"PROJECT_NOT_FOUND", ErrCodeProjectNotFound},
		{"CATEGORY_NOT_FOUND", ErrCodeCategoryNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_NUMBER", ErrCodeInvalidNumber},
		// already normalized codes pass through
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM", "CUSTOM"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorResponses(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeProjectNotFound, "Project not found", "req-9")
	assert.False(t, resp.Success)
	assert.Equal(t, "req-9", resp.Error.RequestID)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_PROJECT_NOT_FOUND","message":"Project not found","request_id":"req-9"}}`, string(data))

	validation := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "name", Message: "This field is required"}})
	assert.Equal(t, ErrCodeValidation, validation.Error.Code)
	assert.Len(t, validation.Error.Details, 1)
}

func TestAmountInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json number", `1234.5`, "1234.5"},
		{"integer", `100000`, "100000"},
		{"four decimals", `1500.1234`, "1500.1234"},
		{"exponent", `1e3`, "1000"},
		{"locale string", `"S/ 1.234,50"`, "1234.5"},
		{"plain string", `"20000"`, "20000"},
		{"garbage string", `"n/a"`, "0"},
		{"boolean", `true`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := valueobject.ParseAmount(AmountInput(json.RawMessage(tt.raw)))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}

	t.Run("null and absent are nil", func(t *testing.T) {
		assert.Nil(t, AmountInput(json.RawMessage(`null`)))
		assert.Nil(t, AmountInput(nil))
	})
}
