package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/obras/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleValidationError(t *testing.T) {
	type request struct {
		Name  string `json:"name" binding:"required,max=5"`
		Field string `json:"field" binding:"omitempty,oneof=budget disbursed"`
	}
	SetupValidator()

	engine := gin.New()
	engine.POST("/test", func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantDetails []dto.ValidationDetail
	}{
		{
			name:     "missing required field",
			body:     `{}`,
			wantCode: dto.ErrCodeValidation,
			wantDetails: []dto.ValidationDetail{
				{Field: "name", Message: "This field is required"},
			},
		},
		{
			name:     "too long and not one of",
			body:     `{"name":"abcdefgh","field":"price"}`,
			wantCode: dto.ErrCodeValidation,
			wantDetails: []dto.ValidationDetail{
				{Field: "name", Message: "Must be at most 5 characters"},
				{Field: "field", Message: "Must be one of: budget disbursed"},
			},
		},
		{
			name:     "malformed json",
			body:     `{"name":`,
			wantCode: dto.ErrCodeBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}
}
