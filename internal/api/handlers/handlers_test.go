package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/api/middleware"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
)

type testAPI struct {
	db            *gorm.DB
	router        *gin.Engine
	notifications *services.NotificationService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := OpenTestDB(t)
	require.NoError(t, db.AutoMigrate(
		&models.ActiveKeywordRule{},
		&models.SensitivityConfig{},
		&models.RuleAudit{},
		&models.Notification{},
		&models.NotificationProvider{},
		&models.DashboardAlert{},
		&models.CrawlerProfile{},
		&models.ScheduleJob{},
		&models.JobHistory{},
		&models.WorkerStatus{},
	))

	notifications := services.NewNotificationService(db).WithSender(func(string, string) error { return nil })
	audit := services.NewAuditService(db)
	rules := NewRuleHandler(services.NewRuleService(db, audit, notifications), audit)
	sensitivity := NewSensitivityHandler(services.NewSensitivityService(db, audit))
	dashboard := NewDashboardHandler(services.NewDashboardService(db))
	crawler := NewCrawlerHandler(services.NewCrawlerService(db, notifications))
	notif := NewNotificationHandler(notifications)
	providers := NewNotificationProviderHandler(notifications)

	r := gin.New()
	r.GET("/health", HealthHandler(db))
	api := r.Group("/api/v1", middleware.Actor())
	api.GET("/rules/active-keywords", rules.List)
	api.POST("/rules/active-keywords", rules.Create)
	api.GET("/rules/active-keywords/:id", rules.Get)
	api.PUT("/rules/active-keywords/:id", rules.Update)
	api.GET("/rules/sensitivity", sensitivity.Get)
	api.PUT("/rules/sensitivity", sensitivity.Update)
	api.GET("/rules/rubric", rules.Rubric)
	api.GET("/rules/audit", rules.Audit)
	api.GET("/dashboard/summary", dashboard.Summary)
	api.GET("/dashboard/alerts", dashboard.Alerts)
	api.GET("/dashboard/alerts/:id", dashboard.GetAlert)
	api.PUT("/dashboard/alerts/:id/status", dashboard.SetAlertStatus)
	api.GET("/crawler/profiles", crawler.ListProfiles)
	api.POST("/crawler/profiles", crawler.CreateProfile)
	api.PUT("/crawler/profiles/:id", crawler.UpdateProfile)
	api.GET("/crawler/schedules", crawler.ListSchedules)
	api.POST("/crawler/schedules", crawler.CreateSchedule)
	api.POST("/crawler/schedules/:id/run", crawler.RunSchedule)
	api.GET("/crawler/jobs", crawler.ListJobs)
	api.POST("/crawler/jobs/:id/cancel", crawler.CancelJob)
	api.POST("/crawler/jobs/:id/complete", crawler.CompleteJob)
	api.GET("/crawler/workers", crawler.ListWorkers)
	api.POST("/crawler/workers", crawler.ReportWorker)
	api.GET("/notifications", notif.List)
	api.GET("/notifications/unread-count", notif.UnreadCount)
	api.POST("/notifications/:id/read", notif.MarkAsRead)
	api.POST("/notifications/read-all", notif.MarkAllAsRead)
	api.GET("/notifications/providers", providers.List)
	api.POST("/notifications/providers", providers.Create)
	api.PUT("/notifications/providers/:id", providers.Update)
	api.DELETE("/notifications/providers/:id", providers.Delete)
	api.POST("/notifications/providers/test", providers.Test)

	return &testAPI{db: db, router: r, notifications: notifications}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Reader
	switch b := body.(type) {
	case nil:
		buf = bytes.NewReader(nil)
	case string:
		buf = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
