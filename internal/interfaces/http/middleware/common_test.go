package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/obras/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw...)
	engine.Any("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCORSWithConfig(t *testing.T) {
	whitelist := CORSConfig{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "PATCH"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}
	wildcard := whitelist
	wildcard.AllowOrigins = []string{"*"}

	tests := []struct {
		name            string
		cfg             CORSConfig
		method          string
		origin          string
		wantStatus      int
		wantOrigin      string
		wantCredentials string
	}{
		{"default config rejects cross origin", DefaultCORSConfig(), http.MethodGet, "http://evil.example", http.StatusOK, "", ""},
		{"whitelisted origin", whitelist, http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000", "true"},
		{"origin outside whitelist", whitelist, http.MethodGet, "http://evil.example", http.StatusOK, "", ""},
		{"wildcard never sends credentials", wildcard, http.MethodGet, "http://any.example", http.StatusOK, "*", ""},
		{"preflight allowed", whitelist, http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000", "true"},
		{"preflight rejected still 204", DefaultCORSConfig(), http.MethodOptions, "http://evil.example", http.StatusNoContent, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := serve(newEngine(CORSWithConfig(tt.cfg)), req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "GET, PATCH", w.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	t.Run("propagates the client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "client-id")
		w := serve(engine, req)
		assert.Equal(t, "client-id", w.Body.String())
		assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
	})

	t.Run("generates an id when missing", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Len(t, w.Body.String(), 36)
		assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces an oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", MaxRequestIDLength+1))
		w := serve(engine, req)
		assert.Len(t, w.Body.String(), 36)
	})
}

func TestSecure(t *testing.T) {
	w := serve(newEngine(Secure()), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestBodyLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), BodyLimit(16))
	engine.POST("/test", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.String(http.StatusBadRequest, "read failed")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	t.Run("small body passes", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":1}`)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over the limit", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"field":"0123456789"}`)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrCodeRequestTooLarge, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("undeclared length is capped while reading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"field":"0123456789"}`))
		req.ContentLength = -1
		w := serve(engine, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-positive limit disables the check", func(t *testing.T) {
		w := serve(newEngine(BodyLimit(0)), httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 1024))))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
