package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/metrics"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/util"
)

var validIntervalPeriods = map[string]time.Duration{
	"seconds": time.Second,
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
}

// WorkerTotals sums the counters of every worker.
type WorkerTotals struct {
	Active    int `json:"active"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Succeeded int `json:"succeeded"`
	Retried   int `json:"retried"`
}

// CrawlerService manages crawler profiles, their schedules, job history and
// worker heartbeats. It does not crawl anything itself.
type CrawlerService struct {
	db            *gorm.DB
	validate      *validator.Validate
	notifications *NotificationService
	now           func() time.Time
}

func NewCrawlerService(db *gorm.DB, notifications *NotificationService) *CrawlerService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CrawlerService{db: db, validate: v, notifications: notifications, now: time.Now}
}

// NormalizeDomains splits comma separated entries, trims, lower-cases and
// drops empty or duplicate domains while keeping order.
func NormalizeDomains(raw []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, d := range strings.Split(entry, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func normalizeCookies(in []models.SessionCookie) []models.SessionCookie {
	out := make([]models.SessionCookie, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.Value = strings.TrimSpace(c.Value)
		if c.Name == "" || c.Value == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *CrawlerService) validateProfile(p *models.CrawlerProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.StartURL = strings.TrimSpace(p.StartURL)
	p.AlertTo = strings.TrimSpace(p.AlertTo)
	p.AllowDomains = NormalizeDomains(p.AllowDomains)
	p.Cookies = normalizeCookies(p.Cookies)

	err := s.validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := NewValidationError()
	for _, fe := range fieldErrs {
		field := fe.Field()
		if i := strings.Index(field, "["); i > 0 {
			field = field[:i]
		}
		switch fe.Tag() {
		case "required":
			verr.Add(field, field+" is required")
		case "min":
			verr.Add(field, "at least one domain is required")
		case "hostname":
			verr.Add(field, fmt.Sprintf("%v is not a valid hostname", fe.Value()))
		case "url":
			verr.Add(field, field+" must be an absolute URL")
		default:
			verr.Add(field, "invalid value")
		}
	}
	metrics.IncValidationFailure("crawler_profile")
	return verr
}

// ListProfiles returns crawler profiles in insertion order.
func (s *CrawlerService) ListProfiles(ctx context.Context) ([]models.CrawlerProfile, error) {
	var profiles []models.CrawlerProfile
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile retrieves a profile by id.
func (s *CrawlerService) GetProfile(ctx context.Context, id string) (*models.CrawlerProfile, error) {
	var p models.CrawlerProfile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCrawlerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateProfile validates and stores a new crawler profile.
func (s *CrawlerService) CreateProfile(ctx context.Context, p *models.CrawlerProfile) error {
	p.ID = ""
	if err := s.validateProfile(p); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(p).Error
}

// UpdateProfile replaces the editable fields of an existing profile.
func (s *CrawlerService) UpdateProfile(ctx context.Context, id string, updates *models.CrawlerProfile) (*models.CrawlerProfile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = updates.Name
	p.Description = updates.Description
	p.AllowDomains = updates.AllowDomains
	p.StartURL = updates.StartURL
	p.AlertTo = updates.AlertTo
	p.BypassDDoS = updates.BypassDDoS
	p.Cookies = updates.Cookies

	if err := s.validateProfile(p); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ScheduleFor builds the cron schedule for a job. CLOCKED jobs return nil
// and are handled by NextRun.
func ScheduleFor(job *models.ScheduleJob) (cron.Schedule, error) {
	switch job.ScheduleMode {
	case models.ScheduleModeInterval:
		if job.Interval == nil || job.Interval.Every < 1 {
			return nil, fmt.Errorf("%w: interval must run at least every 1 period", ErrInvalidSchedule)
		}
		unit, ok := validIntervalPeriods[job.Interval.Period]
		if !ok {
			return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidSchedule, job.Interval.Period)
		}
		return cron.Every(time.Duration(job.Interval.Every) * unit), nil
	case models.ScheduleModeCrontab:
		if job.Crontab == nil {
			return nil, fmt.Errorf("%w: crontab is required", ErrInvalidSchedule)
		}
		sched, err := cron.ParseStandard("CRON_TZ=UTC " + CrontabExpr(*job.Crontab))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		return sched, nil
	case models.ScheduleModeClocked:
		if job.Clocked == nil || job.Clocked.ClockedTime.IsZero() {
			return nil, fmt.Errorf("%w: clocked_time is required", ErrInvalidSchedule)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSchedule, job.ScheduleMode)
	}
}

// CrontabExpr renders the five fields in standard cron order. Blank fields
// mean "*". Schedules are evaluated in UTC.
func CrontabExpr(c models.CrontabSpec) string {
	field := func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return "*"
		}
		return v
	}
	return strings.Join([]string{
		field(c.Minute),
		field(c.Hour),
		field(c.DayOfMonth),
		field(c.MonthOfYear),
		field(c.DayOfWeek),
	}, " ")
}

// NextRun returns when the job fires next after from, or nil when it never will.
func NextRun(job *models.ScheduleJob, from time.Time) *time.Time {
	if !job.Enabled {
		return nil
	}
	if job.ScheduleMode == models.ScheduleModeClocked {
		if job.Clocked == nil || !job.Clocked.ClockedTime.After(from) {
			return nil
		}
		t := job.Clocked.ClockedTime
		return &t
	}
	sched, err := ScheduleFor(job)
	if err != nil || sched == nil {
		return nil
	}
	next := sched.Next(from)
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *CrawlerService) validateSchedule(ctx context.Context, job *models.ScheduleJob) error {
	job.Name = strings.TrimSpace(job.Name)
	verr := NewValidationError()
	if job.Name == "" {
		verr.Add("name", "name is required")
	}
	if _, err := s.GetProfile(ctx, job.CrawlerID); err != nil {
		if !errors.Is(err, ErrCrawlerNotFound) {
			return err
		}
		verr.Add("crawler_id", "crawler profile does not exist")
	}
	if _, err := ScheduleFor(job); err != nil {
		verr.Add("schedule_mode", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		metrics.IncValidationFailure("schedule")
		return err
	}

	// keep only the payload of the selected mode
	switch job.ScheduleMode {
	case models.ScheduleModeInterval:
		job.Crontab, job.Clocked = nil, nil
	case models.ScheduleModeCrontab:
		job.Interval, job.Clocked = nil, nil
	case models.ScheduleModeClocked:
		job.Interval, job.Crontab = nil, nil
	}
	return nil
}

// ListSchedules returns schedules in insertion order with NextRun filled in.
func (s *CrawlerService) ListSchedules(ctx context.Context) ([]models.ScheduleJob, error) {
	var jobs []models.ScheduleJob
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	now := s.now()
	for i := range jobs {
		jobs[i].NextRun = NextRun(&jobs[i], now)
	}
	return jobs, nil
}

// GetSchedule retrieves a schedule by id.
func (s *CrawlerService) GetSchedule(ctx context.Context, id string) (*models.ScheduleJob, error) {
	var job models.ScheduleJob
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	job.NextRun = NextRun(&job, s.now())
	return &job, nil
}

// CreateSchedule validates and stores a new schedule with zero runs.
func (s *CrawlerService) CreateSchedule(ctx context.Context, job *models.ScheduleJob) error {
	job.ID = ""
	job.TotalRun = 0
	job.LastRun = nil
	if err := s.validateSchedule(ctx, job); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return err
	}
	job.NextRun = NextRun(job, s.now())
	return nil
}

// UpdateSchedule replaces name, crawler, enabled flag and mode payload.
// Run counters are preserved.
func (s *CrawlerService) UpdateSchedule(ctx context.Context, id string, updates *models.ScheduleJob) (*models.ScheduleJob, error) {
	job, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Name = updates.Name
	job.CrawlerID = updates.CrawlerID
	job.Enabled = updates.Enabled
	job.ScheduleMode = updates.ScheduleMode
	job.Interval = updates.Interval
	job.Crontab = updates.Crontab
	job.Clocked = updates.Clocked

	if err := s.validateSchedule(ctx, job); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return nil, err
	}
	job.NextRun = NextRun(job, s.now())
	return job, nil
}

// RunSchedule records a manual run: a RUNNING job entry and bumped counters.
func (s *CrawlerService) RunSchedule(ctx context.Context, id string) (*models.JobHistory, error) {
	job, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.GetProfile(ctx, job.CrawlerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &models.JobHistory{
		JobID:       "job-" + uuid.New().String()[:8],
		CrawlerName: profile.Name,
		CrawlerID:   profile.ID,
		StartAt:     now,
		Status:      models.JobStatusRunning,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(job).Updates(map[string]interface{}{
			"total_run": gorm.Expr("total_run + 1"),
			"last_run":  now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListJobs returns job history newest first. limit <= 0 means all.
func (s *CrawlerService) ListJobs(ctx context.Context, limit int) ([]models.JobHistory, error) {
	var jobs []models.JobHistory
	q := s.db.WithContext(ctx).Order("start_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *CrawlerService) getJob(ctx context.Context, id string) (*models.JobHistory, error) {
	var job models.JobHistory
	if err := s.db.WithContext(ctx).Where("job_id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// CancelJob stops a RUNNING job. Finished jobs cannot be canceled.
func (s *CrawlerService) CancelJob(ctx context.Context, id string) (*models.JobHistory, error) {
	return s.finishJob(ctx, id, models.JobStatusCanceled)
}

// CompleteJob is called by workers to report the outcome of a RUNNING job.
func (s *CrawlerService) CompleteJob(ctx context.Context, id string, success bool) (*models.JobHistory, error) {
	status := models.JobStatusSuccess
	if !success {
		status = models.JobStatusFailed
	}
	job, err := s.finishJob(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if status == models.JobStatusFailed && s.notifications != nil {
		title := "Crawler job failed"
		msg := fmt.Sprintf("%s (%s) failed", util.SanitizeForLog(job.CrawlerName), job.JobID)
		if _, err := s.notifications.Create(models.NotificationTypeError, models.NotificationCategoryCrawler, title, msg); err != nil {
			logger.Log().WithError(err).Warn("failed to create crawler notification")
		}
		s.notifications.SendExternal(models.NotificationCategoryCrawler, title, msg, nil)
	}
	return job, nil
}

func (s *CrawlerService) finishJob(ctx context.Context, id string, status models.JobStatus) (*models.JobHistory, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusRunning {
		return nil, ErrJobNotCancelable
	}
	end := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&models.JobHistory{}).
		Where("job_id = ? AND status = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{"status": status, "end_at": end})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrJobNotCancelable
	}
	job.Status = status
	job.EndAt = &end
	return job, nil
}

// ListWorkers returns worker snapshots and their summed counters.
func (s *CrawlerService) ListWorkers(ctx context.Context) ([]models.WorkerStatus, WorkerTotals, error) {
	var workers []models.WorkerStatus
	var totals WorkerTotals
	if err := s.db.WithContext(ctx).Order("worker asc").Find(&workers).Error; err != nil {
		return nil, totals, err
	}
	for _, w := range workers {
		totals.Active += w.Active
		totals.Processed += w.Processed
		totals.Failed += w.Failed
		totals.Succeeded += w.Succeeded
		totals.Retried += w.Retried
	}
	return workers, totals, nil
}

const (
	workerOnline  = "Online"
	workerOffline = "Offline"
)

// ReportWorker upserts a worker heartbeat.
func (s *CrawlerService) ReportWorker(ctx context.Context, w *models.WorkerStatus) error {
	w.Worker = strings.TrimSpace(w.Worker)
	if w.Worker == "" {
		verr := NewValidationError()
		verr.Add("worker", "worker is required")
		return verr
	}
	if w.Status != workerOnline && w.Status != workerOffline {
		w.Status = workerOnline
	}
	w.UpdatedAt = s.now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(w).Error
}
