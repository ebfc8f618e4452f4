package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/api/handlers"
)

func TestRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	db := handlers.OpenTestDB(t)

	require.NoError(t, Register(router, db, nil))

	registered := map[string]bool{}
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/health",
		"GET /metrics",
		"GET /api/v1/rules/active-keywords",
		"POST /api/v1/rules/active-keywords",
		"PUT /api/v1/rules/active-keywords/:id",
		"GET /api/v1/rules/sensitivity",
		"PUT /api/v1/rules/sensitivity",
		"GET /api/v1/rules/rubric",
		"GET /api/v1/dashboard/alerts",
		"POST /api/v1/crawler/jobs/:id/cancel",
		"POST /api/v1/notifications/providers/test",
		"GET /api/v1/notifications/unread-count",
		"POST /api/v1/crawler/workers",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestRegister_MetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, Register(router, handlers.OpenTestDB(t), nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
	assert.Contains(t, w.Body.String(), "darkwatch_sensitivity_gamma")
}
