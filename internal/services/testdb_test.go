package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/models"
)

// openTestDB returns a migrated in-memory database private to t.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
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
	return db
}
