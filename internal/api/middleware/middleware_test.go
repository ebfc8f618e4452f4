package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesAndReuses(t *testing.T) {
	logger.Init(true, &bytes.Buffer{})
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		_, ok := c.Get(loggerKey)
		assert.True(t, ok)
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid\n")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid\n", w.Header().Get(RequestIDHeader))
}

func TestActor_SetsContext(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Actor())
	var seen context.Context
	router.GET("/test", func(c *gin.Context) {
		seen = c.Request.Context()
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(ActorHeader, " analyst\n")
	router.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)

	assert.Equal(t, "analyst", services.ActorFrom(seen))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, "system", services.ActorFrom(seen))
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/bad", "/boom?secret=1"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"level":"warning"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"request_id"`)
	assert.NotContains(t, out, "secret=1")
}

func TestRecovery_ReturnsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(true, buf)

	router := gin.New()
	router.Use(RequestID(), Recovery(true))
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.Contains(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "PANIC: kaboom")
	assert.Contains(t, buf.String(), "Stacktrace")
	assert.NotContains(t, buf.String(), "Bearer secret")
}

func TestSanitizeHeaders(t *testing.T) {
	assert.Nil(t, SanitizeHeaders(nil))

	h := http.Header{}
	h.Set("Cookie", "sid=1")
	h.Set("User-Agent", "curl\r\n/8")
	h.Set("X-Long", strings.Repeat("a", 300))
	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Cookie"])
	assert.Equal(t, []string{"curl /8"}, out["User-Agent"])
	assert.Len(t, out["X-Long"][0], maxLoggedValue)
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/rules", SanitizePath("/api/v1/rules?x=1"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name    string
		dev     bool
		hsts    bool
		scriptJ string
	}{
		{name: "production", dev: false, hsts: true, scriptJ: "script-src 'self';"},
		{name: "development", dev: true, hsts: false, scriptJ: "'unsafe-eval'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SecurityHeaders(tt.dev))
			router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.hsts, w.Header().Get("Strict-Transport-Security") != "")
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Contains(t, w.Header().Get("Content-Security-Policy"), tt.scriptJ)
		})
	}
}
