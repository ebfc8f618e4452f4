package fixtures

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/severity"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ActiveKeywordRule{},
		&models.SensitivityConfig{},
		&models.CrawlerProfile{},
		&models.ScheduleJob{},
		&models.JobHistory{},
		&models.WorkerStatus{},
		&models.DashboardAlert{},
	))
	return db
}

func TestDefaultParses(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	require.NotNil(t, set.Gamma)
	assert.Equal(t, 0.5, *set.Gamma)
	assert.Len(t, set.Rules, 2)
	assert.Len(t, set.Profiles, 2)
	assert.Len(t, set.Schedules, 2)
	assert.Len(t, set.Workers, 6)
	require.NotNil(t, set.Alerts)
	assert.Equal(t, 141, set.Alerts.Count)
	assert.Equal(t, [3]float64{0.92, 0.67, 0.4}, set.Workers[0].LoadAverage)
}

func TestLoad(t *testing.T) {
	set, err := Load("")
	require.NoError(t, err)
	assert.Len(t, set.Rules, 2)

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {title: only, dpc: 2, ei: 0.5, cb: 0}\n"), 0o644))
	set, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, set.Rules, 1)
	assert.Nil(t, set.Gamma)

	require.NoError(t, os.WriteFile(path, []byte("rulez: []\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse fixtures")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read fixtures")
}

func TestSeedDefault(t *testing.T) {
	db := openTestDB(t)
	set, err := Default()
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	report, err := seedAt(context.Background(), db, set, now)
	require.NoError(t, err)
	assert.Equal(t, Report{
		"rules":       2,
		"sensitivity": 1,
		"profiles":    2,
		"schedules":   2,
		"jobs":        6,
		"workers":     6,
		"alerts":      141,
	}, report)

	var rules []models.ActiveKeywordRule
	require.NoError(t, db.Order("seq asc").Find(&rules).Error)
	require.Len(t, rules, 2)
	assert.Equal(t, "paetongtarn shinawatra", rules[0].Title)
	assert.Equal(t, 3.75, rules[0].FinalSeverity)
	assert.Equal(t, severity.LevelMed, rules[0].SeverityLevel)
	assert.Equal(t, 5.0, rules[1].FinalSeverity)
	assert.Equal(t, severity.LevelHigh, rules[1].SeverityLevel)
	assert.Equal(t, models.RuleStatusActive, rules[1].Status)

	var cfg models.SensitivityConfig
	require.NoError(t, db.First(&cfg, models.SensitivityConfigID).Error)
	assert.Equal(t, 0.5, cfg.Gamma)

	var sched models.ScheduleJob
	require.NoError(t, db.Where("name = ?", "Daily crawl leakbase").First(&sched).Error)
	assert.Equal(t, "crawler-leakbase", sched.CrawlerID)
	assert.Equal(t, 128, sched.TotalRun)
	require.NotNil(t, sched.Crontab)
	assert.Equal(t, "20", sched.Crontab.Minute)

	var running models.JobHistory
	require.NoError(t, db.Where("status = ?", models.JobStatusRunning).First(&running).Error)
	assert.Nil(t, running.EndAt)
	assert.Equal(t, "LeakBase Crawler", running.CrawlerName)
	assert.True(t, now.Add(-time.Hour).Equal(running.StartAt))

	var critical int64
	require.NoError(t, db.Model(&models.DashboardAlert{}).Where("severity = ?", severity.LevelCritical).Count(&critical).Error)
	// positions 17, 34, ... 136
	assert.EqualValues(t, 8, critical)

	var reviewed int64
	require.NoError(t, db.Model(&models.DashboardAlert{}).Where("status = ?", models.AlertStatusReviewed).Count(&reviewed).Error)
	assert.EqualValues(t, 29, reviewed)
}

func TestSeedSkipsPopulatedTables(t *testing.T) {
	db := openTestDB(t)
	existing := &models.ActiveKeywordRule{Title: "mine", DPC: 1, CB: 0}
	require.NoError(t, db.Create(existing).Error)

	set, err := Default()
	require.NoError(t, err)
	report, err := Seed(context.Background(), db, set)
	require.NoError(t, err)
	assert.NotContains(t, report, "rules")
	assert.Equal(t, 2, report["profiles"])

	var count int64
	require.NoError(t, db.Model(&models.ActiveKeywordRule{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	report, err = Seed(context.Background(), db, set)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestSeedRecomputesScores(t *testing.T) {
	db := openTestDB(t)
	gamma := 3.0
	set := &Set{
		Gamma: &gamma,
		Rules: []RuleFixture{{Title: "  padded  ", DPC: 9, EI: 1.7, CB: -1, Status: "INACTIVE"}},
	}
	_, err := Seed(context.Background(), db, set)
	require.NoError(t, err)

	var rule models.ActiveKeywordRule
	require.NoError(t, db.First(&rule).Error)
	assert.Equal(t, "padded", rule.Title)
	assert.Equal(t, 4, rule.DPC)
	assert.Equal(t, 1.0, rule.EI)
	assert.Equal(t, 0, rule.CB)
	assert.Equal(t, 4.0, rule.FinalSeverity)
	assert.Equal(t, models.RuleStatusInactive, rule.Status)

	var cfg models.SensitivityConfig
	require.NoError(t, db.First(&cfg).Error)
	assert.Equal(t, 1.0, cfg.Gamma)
}

func TestSeedRejectsBadRows(t *testing.T) {
	db := openTestDB(t)
	_, err := Seed(context.Background(), db, &Set{Rules: []RuleFixture{{Title: "x", Status: "PAUSED"}}})
	assert.ErrorContains(t, err, "unknown status")

	db = openTestDB(t)
	_, err = Seed(context.Background(), db, &Set{
		Profiles:  []ProfileFixture{{Key: "a", Name: "A", AllowDomains: []string{"a.example"}, AlertTo: "x"}},
		Schedules: []ScheduleFixture{{Name: "broken", Crawler: "a", Mode: "CRONTAB"}},
	})
	assert.ErrorContains(t, err, "broken")
}

func TestAlertSeverity(t *testing.T) {
	assert.Equal(t, severity.LevelCritical, alertSeverity(17))
	assert.Equal(t, severity.LevelHigh, alertSeverity(14))
	assert.Equal(t, severity.LevelMed, alertSeverity(9))
	assert.Equal(t, severity.LevelLow, alertSeverity(1))
	assert.Equal(t, severity.LevelCritical, alertSeverity(119))
}
