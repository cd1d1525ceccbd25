package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lllllllleong/aethercare/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if subject, ok := s[token]; ok {
		return subject, nil
	}
	return "", fmt.Errorf("%w: unknown token", auth.ErrInvalidToken)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": GetSubject(c), "request_id": GetRequestID(c)})
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", okHandler)

	w := serve(r, "GET", "/test", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(r, "GET", "/test", http.Header{"X-Request-Id": {"given-id"}})
	assert.Equal(t, "given-id", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"request_id":"given-id"`)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, "GET", "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestRequestLoggerRecordsRecoveredPanic(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, "GET", "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var completed map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "request completed" {
			completed = entry
		}
	}
	require.NotNil(t, completed)
	assert.Equal(t, "ERROR", completed["level"])
	assert.EqualValues(t, http.StatusInternalServerError, completed["status"])
	assert.Equal(t, "/panic", completed["path"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), completed["request_id"])
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/reports", okHandler)

	w := serve(r, "OPTIONS", "/reports", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, "POST", "/reports", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Auth(stubVerifier{"good": "uid-1"}))
	r.GET("/test", okHandler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, `"subject":"uid-1"`},
		{"missing header", "", http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"bad token", "Bearer bad", http.StatusUnauthorized, "Invalid authentication token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := serve(r, "GET", "/test", h)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRateLimitPerSubject(t *testing.T) {
	r := gin.New()
	r.Use(Auth(stubVerifier{"a": "uid-a", "b": "uid-b"}), NewRateLimiter(1, 2).Handler())
	r.GET("/test", okHandler)

	bearer := func(tok string) http.Header { return http.Header{"Authorization": {"Bearer " + tok}} }

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/test", bearer("a")).Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/test", bearer("a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/test", bearer("a")).Code)

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/test", bearer("b")).Code)
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/test", okHandler)

	w := serve(r, "GET", "/test?x=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
