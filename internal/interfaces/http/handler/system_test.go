package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type openCount int

func (n openCount) OpenCount() int { return int(n) }

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		wantCode int
		wantDB   string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", pingFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"database down", pingFunc(func(context.Context) error { return errors.New("down") }), http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("obras-ledger", "test", tt.db, nil)
			c, w := newTestContext()
			h.Health(c)

			assert.Equal(t, tt.wantCode, w.Code)
			var body struct {
				Data HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDB, body.Data.Database)
		})
	}
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("obras-ledger", "1.2.0", nil, openCount(3))
	c, w := newTestContext()
	h.Info(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "obras-ledger", body.Data.Name)
	assert.Equal(t, "1.2.0", body.Data.Version)
	assert.Equal(t, 3, body.Data.OpenProjects)
	assert.NotEmpty(t, body.Data.GoVersion)
}
