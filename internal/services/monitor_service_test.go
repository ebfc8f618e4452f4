package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/models"
)

func newMonitor(t *testing.T, now time.Time) (*CrawlerMonitor, *recordingSender) {
	t.Helper()
	db := openTestDB(t)
	sender := &recordingSender{}
	notifications := NewNotificationService(db).WithSender(sender.send)
	crawlers := NewCrawlerService(db, notifications)
	crawlers.now = func() time.Time { return now }
	return NewCrawlerMonitor(crawlers, notifications), sender
}

func TestCrawlerMonitor_DispatchDue(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m, _ := newMonitor(t, now)
	ctx := context.Background()

	p := validProfile()
	require.NoError(t, m.crawlers.CreateProfile(ctx, p))

	lastHour := now.Add(-2 * time.Hour)
	due := &models.ScheduleJob{
		Name: "hourly", CrawlerID: p.ID, Enabled: true,
		ScheduleMode: models.ScheduleModeInterval,
		Interval:     &models.IntervalSpec{Every: 1, Period: "hours"},
	}
	require.NoError(t, m.crawlers.CreateSchedule(ctx, due))
	require.NoError(t, m.crawlers.db.Model(due).UpdateColumn("last_run", lastHour).Error)

	notYet := &models.ScheduleJob{
		Name: "daily", CrawlerID: p.ID, Enabled: true,
		ScheduleMode: models.ScheduleModeInterval,
		Interval:     &models.IntervalSpec{Every: 1, Period: "days"},
	}
	require.NoError(t, m.crawlers.CreateSchedule(ctx, notYet))
	require.NoError(t, m.crawlers.db.Model(notYet).UpdateColumn("last_run", lastHour).Error)

	disabled := &models.ScheduleJob{
		Name: "off", CrawlerID: p.ID, Enabled: false,
		ScheduleMode: models.ScheduleModeInterval,
		Interval:     &models.IntervalSpec{Every: 1, Period: "minutes"},
	}
	require.NoError(t, m.crawlers.CreateSchedule(ctx, disabled))

	started, err := m.DispatchDue(ctx)
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, models.JobStatusRunning, started[0].Status)
	assert.Equal(t, p.ID, started[0].CrawlerID)

	got, err := m.crawlers.GetSchedule(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRun)
	require.NotNil(t, got.LastRun)
	assert.True(t, now.Equal(*got.LastRun))

	// last_run moved to now, so nothing is due on the next tick
	started, err = m.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, started)
}

func TestCrawlerMonitor_DispatchClockedOnce(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m, _ := newMonitor(t, now)
	ctx := context.Background()

	p := validProfile()
	require.NoError(t, m.crawlers.CreateProfile(ctx, p))
	once := &models.ScheduleJob{
		Name: "once", CrawlerID: p.ID, Enabled: true,
		ScheduleMode: models.ScheduleModeClocked,
		Clocked:      &models.ClockedSpec{ClockedTime: now.Add(-time.Minute)},
	}
	require.NoError(t, m.crawlers.CreateSchedule(ctx, once))
	require.NoError(t, m.crawlers.db.Model(once).UpdateColumn("created_at", now.Add(-time.Hour)).Error)

	started, err := m.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Len(t, started, 1)

	started, err = m.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, started)
}

func TestCrawlerMonitor_CheckWorkers(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m, sender := newMonitor(t, now)
	ctx := context.Background()

	db := m.crawlers.db
	require.NoError(t, db.Create(&models.NotificationProvider{
		Name: "ops", Type: "generic", URL: "generic://example.com/hook", Enabled: true, NotifyCrawlers: true,
	}).Error)
	require.NoError(t, db.Create(&models.WorkerStatus{Worker: "fresh", Status: "Online", UpdatedAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.WorkerStatus{Worker: "stale", Status: "Online", UpdatedAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.WorkerStatus{Worker: "gone", Status: "Offline", UpdatedAt: now.Add(-time.Hour)}).Error)

	offline, err := m.CheckWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, offline)
	require.NoError(t, m.notifications.Wait(ctx))

	workers, _, err := m.crawlers.ListWorkers(ctx)
	require.NoError(t, err)
	status := map[string]string{}
	for _, w := range workers {
		status[w.Worker] = w.Status
	}
	assert.Equal(t, map[string]string{"fresh": "Online", "gone": "Offline", "stale": "Offline"}, status)

	list, err := m.notifications.List(false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Worker stale is offline", list[0].Title)
	assert.Equal(t, models.NotificationTypeWarning, list[0].Type)
	assert.Equal(t, 1, sender.count())

	offline, err = m.CheckWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, offline)
}

func TestCrawlerMonitor_StartStops(t *testing.T) {
	m, _ := newMonitor(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}

	// disabled interval returns immediately
	m.Start(context.Background(), 0)
}
