package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionCookie is a name/value pair replayed by a crawler to stay logged in.
type SessionCookie struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// CrawlerProfile configures one crawler target.
type CrawlerProfile struct {
	Seq          uint            `json:"-" gorm:"primaryKey"`
	ID           string          `json:"id" gorm:"uniqueIndex"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	AllowDomains []string        `json:"allow_domains" gorm:"serializer:json" validate:"min=1,dive,hostname"`
	StartURL     string          `json:"start_url" validate:"omitempty,url"`
	AlertTo      string          `json:"alert_to" validate:"required"`
	BypassDDoS   bool            `json:"bypass_ddos"`
	Cookies      []SessionCookie `json:"cookies" gorm:"serializer:json" validate:"dive"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p *CrawlerProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// HasSessionCookie reports whether the profile carries any session cookie.
func (p CrawlerProfile) HasSessionCookie() bool {
	return len(p.Cookies) > 0
}

type ScheduleMode string

const (
	ScheduleModeInterval ScheduleMode = "INTERVAL"
	ScheduleModeCrontab  ScheduleMode = "CRONTAB"
	ScheduleModeClocked  ScheduleMode = "CLOCKED"
)

// IntervalSpec runs a job every N periods.
type IntervalSpec struct {
	Every  int    `json:"every"`
	Period string `json:"period"` // seconds, minutes, hours, days
}

// CrontabSpec holds the five standard cron fields.
type CrontabSpec struct {
	Minute      string `json:"minute"`
	Hour        string `json:"hour"`
	DayOfWeek   string `json:"day_of_week"`
	DayOfMonth  string `json:"day_of_month"`
	MonthOfYear string `json:"month_of_year"`
}

// ClockedSpec runs a job once at a fixed time.
type ClockedSpec struct {
	ClockedTime time.Time `json:"clocked_time"`
}

// ScheduleJob binds a crawler profile to a schedule.
type ScheduleJob struct {
	Seq          uint          `json:"-" gorm:"primaryKey"`
	ID           string        `json:"id" gorm:"uniqueIndex"`
	Name         string        `json:"name"`
	CrawlerID    string        `json:"crawler_id" gorm:"index"`
	Enabled      bool          `json:"enabled"`
	ScheduleMode ScheduleMode  `json:"schedule_mode"`
	Interval     *IntervalSpec `json:"interval,omitempty" gorm:"serializer:json"`
	Crontab      *CrontabSpec  `json:"crontab,omitempty" gorm:"serializer:json"`
	Clocked      *ClockedSpec  `json:"clocked,omitempty" gorm:"serializer:json"`
	TotalRun     int           `json:"total_run"`
	LastRun      *time.Time    `json:"last_run"`
	NextRun      *time.Time    `json:"next_run,omitempty" gorm:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (s *ScheduleJob) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = "sch-" + uuid.New().String()[:8]
	}
	return
}

type JobStatus string

const (
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusSuccess  JobStatus = "SUCCESS"
	JobStatusFailed   JobStatus = "FAILED"
	JobStatusCanceled JobStatus = "CANCELED"
)

// JobHistory is one execution of a crawler.
type JobHistory struct {
	JobID       string     `json:"job_id" gorm:"primaryKey"`
	CrawlerName string     `json:"crawler_name"`
	CrawlerID   string     `json:"crawler_id" gorm:"index"`
	StartAt     time.Time  `json:"start_at" gorm:"index"`
	EndAt       *time.Time `json:"end_at"`
	Status      JobStatus  `json:"status"`
}

// WorkerStatus is a snapshot of a crawl worker's counters.
type WorkerStatus struct {
	Worker      string     `json:"worker" gorm:"primaryKey"`
	Status      string     `json:"status"` // Online, Offline
	Active      int        `json:"active"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Succeeded   int        `json:"succeeded"`
	Retried     int        `json:"retried"`
	LoadAverage [3]float64 `json:"load_average" gorm:"serializer:json"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
