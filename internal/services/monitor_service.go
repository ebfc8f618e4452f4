package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/metrics"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/util"
)

// DefaultWorkerStaleAfter is how long a worker may go without a heartbeat
// before it is reported Offline.
const DefaultWorkerStaleAfter = 5 * time.Minute

// CrawlerMonitor is the background loop of the crawler manager: it fires
// schedules that are due and flags workers that stopped reporting.
type CrawlerMonitor struct {
	crawlers      *CrawlerService
	notifications *NotificationService
	StaleAfter    time.Duration
}

func NewCrawlerMonitor(crawlers *CrawlerService, notifications *NotificationService) *CrawlerMonitor {
	return &CrawlerMonitor{
		crawlers:      crawlers,
		notifications: notifications,
		StaleAfter:    DefaultWorkerStaleAfter,
	}
}

// Start runs Tick every interval until ctx is done. interval <= 0 disables it.
func (m *CrawlerMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick dispatches due schedules and checks worker heartbeats once.
func (m *CrawlerMonitor) Tick(ctx context.Context) {
	if _, err := m.DispatchDue(ctx); err != nil {
		logger.Log().WithError(err).Error("dispatch due schedules")
	}
	if _, err := m.CheckWorkers(ctx); err != nil {
		logger.Log().WithError(err).Error("check worker heartbeats")
	}
}

// DispatchDue starts a job for every enabled schedule whose next run, counted
// from its last run (or creation), is not in the future.
func (m *CrawlerMonitor) DispatchDue(ctx context.Context) ([]models.JobHistory, error) {
	var schedules []models.ScheduleJob
	if err := m.crawlers.db.WithContext(ctx).Where("enabled = ?", true).Order("seq asc").Find(&schedules).Error; err != nil {
		return nil, err
	}

	now := m.crawlers.now().UTC()
	var started []models.JobHistory
	for i := range schedules {
		job := &schedules[i]
		from := job.CreatedAt
		if job.LastRun != nil {
			from = *job.LastRun
		}
		next := NextRun(job, from)
		if next == nil || next.After(now) {
			continue
		}
		entry, err := m.crawlers.RunSchedule(ctx, job.ID)
		if err != nil {
			logger.Log().WithError(err).WithField("schedule_id", job.ID).Warn("failed to start scheduled crawl")
			continue
		}
		logger.Log().WithField("schedule", util.SanitizeForLog(job.Name)).WithField("job_id", entry.JobID).Info("scheduled crawl started")
		metrics.IncScheduledRun()
		started = append(started, *entry)
	}
	return started, nil
}

// CheckWorkers marks Online workers whose last heartbeat is older than
// StaleAfter as Offline and notifies once per transition.
func (m *CrawlerMonitor) CheckWorkers(ctx context.Context) ([]string, error) {
	cutoff := m.crawlers.now().UTC().Add(-m.StaleAfter)

	var stale []models.WorkerStatus
	if err := m.crawlers.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", workerOnline, cutoff).
		Order("worker asc").
		Find(&stale).Error; err != nil {
		return nil, err
	}

	var offline []string
	for _, w := range stale {
		res := m.crawlers.db.WithContext(ctx).Model(&models.WorkerStatus{}).
			Where("worker = ? AND status = ?", w.Worker, workerOnline).
			UpdateColumn("status", workerOffline)
		if res.Error != nil {
			return offline, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		offline = append(offline, w.Worker)
		metrics.IncWorkerOffline()

		if m.notifications == nil {
			continue
		}
		title := fmt.Sprintf("Worker %s is offline", w.Worker)
		msg := fmt.Sprintf("No heartbeat since %s.", w.UpdatedAt.UTC().Format(time.RFC3339))
		if _, err := m.notifications.Create(models.NotificationTypeWarning, models.NotificationCategoryCrawler, title, msg); err != nil {
			logger.Log().WithError(err).Warn("failed to record worker notification")
		}
		m.notifications.SendExternal(models.NotificationCategoryCrawler, title, msg, map[string]interface{}{
			"Worker":   w.Worker,
			"LastSeen": w.UpdatedAt,
		})
	}
	return offline, nil
}
