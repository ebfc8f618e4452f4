package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/api/handlers"
	"github.com/sp2025/darkwatch/internal/api/middleware"
	"github.com/sp2025/darkwatch/internal/metrics"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
)

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
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
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Register migrates the schema and wires every API route onto router.
// notifications may be nil, in which case a shoutrrr backed service is built.
func Register(router *gin.Engine, db *gorm.DB, notifications *services.NotificationService) error {
	if err := Migrate(db); err != nil {
		return err
	}
	if notifications == nil {
		notifications = services.NewNotificationService(db)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/api/v1/health", handlers.HealthHandler(db))

	audit := services.NewAuditService(db)
	ruleService := services.NewRuleService(db, audit, notifications)
	sensitivityService := services.NewSensitivityService(db, audit)
	dashboardService := services.NewDashboardService(db)
	crawlerService := services.NewCrawlerService(db, notifications)

	api := router.Group("/api/v1")
	api.Use(middleware.Actor())

	// Rule manager
	ruleHandler := handlers.NewRuleHandler(ruleService, audit)
	sensitivityHandler := handlers.NewSensitivityHandler(sensitivityService)
	rules := api.Group("/rules")
	{
		rules.GET("/active-keywords", ruleHandler.List)
		rules.POST("/active-keywords", ruleHandler.Create)
		rules.GET("/active-keywords/:id", ruleHandler.Get)
		rules.PUT("/active-keywords/:id", ruleHandler.Update)
		rules.GET("/sensitivity", sensitivityHandler.Get)
		rules.PUT("/sensitivity", sensitivityHandler.Update)
		rules.GET("/rubric", ruleHandler.Rubric)
		rules.GET("/audit", ruleHandler.Audit)
	}

	// Dashboard
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	api.GET("/dashboard/summary", dashboardHandler.Summary)
	api.GET("/dashboard/alerts", dashboardHandler.Alerts)
	api.GET("/dashboard/alerts/:id", dashboardHandler.GetAlert)
	api.PUT("/dashboard/alerts/:id/status", dashboardHandler.SetAlertStatus)

	// Crawler manager
	crawlerHandler := handlers.NewCrawlerHandler(crawlerService)
	crawler := api.Group("/crawler")
	{
		crawler.GET("/profiles", crawlerHandler.ListProfiles)
		crawler.POST("/profiles", crawlerHandler.CreateProfile)
		crawler.GET("/profiles/:id", crawlerHandler.GetProfile)
		crawler.PUT("/profiles/:id", crawlerHandler.UpdateProfile)
		crawler.GET("/schedules", crawlerHandler.ListSchedules)
		crawler.POST("/schedules", crawlerHandler.CreateSchedule)
		crawler.PUT("/schedules/:id", crawlerHandler.UpdateSchedule)
		crawler.POST("/schedules/:id/run", crawlerHandler.RunSchedule)
		crawler.GET("/jobs", crawlerHandler.ListJobs)
		crawler.POST("/jobs/:id/cancel", crawlerHandler.CancelJob)
		crawler.POST("/jobs/:id/complete", crawlerHandler.CompleteJob)
		crawler.GET("/workers", crawlerHandler.ListWorkers)
		crawler.POST("/workers", crawlerHandler.ReportWorker)
	}

	// Notifications
	notificationHandler := handlers.NewNotificationHandler(notifications)
	api.GET("/notifications", notificationHandler.List)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)

	providerHandler := handlers.NewNotificationProviderHandler(notifications)
	api.GET("/notifications/providers", providerHandler.List)
	api.POST("/notifications/providers", providerHandler.Create)
	api.PUT("/notifications/providers/:id", providerHandler.Update)
	api.DELETE("/notifications/providers/:id", providerHandler.Delete)
	api.POST("/notifications/providers/test", providerHandler.Test)

	return nil
}
