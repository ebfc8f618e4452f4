// Package fixtures loads demo data for a fresh installation.
package fixtures

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/severity"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Set is the decoded fixture file.
type Set struct {
	Gamma     *float64          `yaml:"gamma"`
	Rules     []RuleFixture     `yaml:"rules"`
	Profiles  []ProfileFixture  `yaml:"profiles"`
	Schedules []ScheduleFixture `yaml:"schedules"`
	Jobs      []JobFixture      `yaml:"jobs"`
	Workers   []WorkerFixture   `yaml:"workers"`
	Alerts    *AlertGenerator   `yaml:"alerts"`
}

// RuleFixture carries only the user-entered fields; scores are always
// recomputed.
type RuleFixture struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Status      string  `yaml:"status"`
	DPC         float64 `yaml:"dpc"`
	EI          float64 `yaml:"ei"`
	CB          float64 `yaml:"cb"`
}

type CookieFixture struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type ProfileFixture struct {
	Key          string          `yaml:"key"`
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description"`
	AllowDomains []string        `yaml:"allow_domains"`
	StartURL     string          `yaml:"start_url"`
	AlertTo      string          `yaml:"alert_to"`
	BypassDDoS   bool            `yaml:"bypass_ddos"`
	Cookies      []CookieFixture `yaml:"cookies"`
}

type ScheduleFixture struct {
	Name     string `yaml:"name"`
	Crawler  string `yaml:"crawler"`
	Enabled  bool   `yaml:"enabled"`
	Mode     string `yaml:"mode"`
	Interval *struct {
		Every  int    `yaml:"every"`
		Period string `yaml:"period"`
	} `yaml:"interval"`
	Crontab *struct {
		Minute      string `yaml:"minute"`
		Hour        string `yaml:"hour"`
		DayOfWeek   string `yaml:"day_of_week"`
		DayOfMonth  string `yaml:"day_of_month"`
		MonthOfYear string `yaml:"month_of_year"`
	} `yaml:"crontab"`
	Clocked  *time.Time `yaml:"clocked"`
	TotalRun int        `yaml:"total_run"`
	LastRun  *time.Time `yaml:"last_run"`
}

type JobFixture struct {
	Crawler         string `yaml:"crawler"`
	HoursAgo        int    `yaml:"hours_ago"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Status          string `yaml:"status"`
}

type WorkerFixture struct {
	Worker      string     `yaml:"worker"`
	Status      string     `yaml:"status"`
	Active      int        `yaml:"active"`
	Processed   int        `yaml:"processed"`
	Failed      int        `yaml:"failed"`
	Succeeded   int        `yaml:"succeeded"`
	Retried     int        `yaml:"retried"`
	LoadAverage [3]float64 `yaml:"load_average"`
}

// AlertGenerator describes a batch of synthetic dashboard alerts.
type AlertGenerator struct {
	Count             int       `yaml:"count"`
	Topic             string    `yaml:"topic"`
	PostAt            time.Time `yaml:"post_at"`
	FetchDelayMinutes int       `yaml:"fetch_delay_minutes"`
	Keywords          []string  `yaml:"keywords"`
	Tags              []string  `yaml:"tags"`
	Types             []string  `yaml:"types"`
	URLBase           string    `yaml:"url_base"`
	Crawlers          int       `yaml:"crawlers"`
	Content           string    `yaml:"content"`
}

// Default returns the embedded fixture set.
func Default() (*Set, error) {
	return parse(defaultFixtures)
}

// Load reads a fixture file, or the embedded set when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var set Set
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &set, nil
}

// Report counts the rows inserted per table.
type Report map[string]int

// Seed inserts the set into every table that is still empty.
func Seed(ctx context.Context, db *gorm.DB, set *Set) (Report, error) {
	return seedAt(ctx, db, set, time.Now().UTC())
}

func seedAt(ctx context.Context, db *gorm.DB, set *Set, now time.Time) (Report, error) {
	db = db.WithContext(ctx)
	report := Report{}

	steps := []struct {
		table string
		model interface{}
		fn    func(tx *gorm.DB) (int, error)
	}{
		{"rules", &models.ActiveKeywordRule{}, func(tx *gorm.DB) (int, error) { return seedRules(tx, set.Rules, now) }},
		{"sensitivity", &models.SensitivityConfig{}, func(tx *gorm.DB) (int, error) { return seedGamma(tx, set.Gamma, now) }},
		{"profiles", &models.CrawlerProfile{}, func(tx *gorm.DB) (int, error) { return seedProfiles(tx, set.Profiles) }},
		{"schedules", &models.ScheduleJob{}, func(tx *gorm.DB) (int, error) { return seedSchedules(tx, set.Schedules) }},
		{"jobs", &models.JobHistory{}, func(tx *gorm.DB) (int, error) { return seedJobs(tx, set.Jobs, now) }},
		{"workers", &models.WorkerStatus{}, func(tx *gorm.DB) (int, error) { return seedWorkers(tx, set.Workers, now) }},
		{"alerts", &models.DashboardAlert{}, func(tx *gorm.DB) (int, error) { return seedAlerts(tx, set.Alerts) }},
	}

	for _, step := range steps {
		var count int64
		if err := db.Model(step.model).Count(&count).Error; err != nil {
			return report, fmt.Errorf("count %s: %w", step.table, err)
		}
		if count > 0 {
			continue
		}
		var n int
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			n, err = step.fn(tx)
			return err
		})
		if err != nil {
			return report, fmt.Errorf("seed %s: %w", step.table, err)
		}
		if n > 0 {
			report[step.table] = n
		}
	}

	logger.WithFields(map[string]interface{}{"inserted": report}).Info("fixtures seeded")
	return report, nil
}

func seedRules(tx *gorm.DB, rules []RuleFixture, now time.Time) (int, error) {
	for _, f := range rules {
		status := models.RuleStatus(f.Status)
		if status == "" {
			status = models.RuleStatusActive
		}
		if !status.Valid() {
			return 0, fmt.Errorf("rule %q: unknown status %q", f.Title, f.Status)
		}
		rule := &models.ActiveKeywordRule{Status: status, CreatedAt: now, UpdatedAt: now}
		rule.ApplyInput(severity.Normalize(severity.Input{
			Title:       f.Title,
			Description: f.Description,
			DPC:         f.DPC,
			EI:          f.EI,
			CB:          f.CB,
		}))
		if rule.Title == "" {
			return 0, errors.New("rule without title")
		}
		if err := tx.Create(rule).Error; err != nil {
			return 0, err
		}
	}
	return len(rules), nil
}

func seedGamma(tx *gorm.DB, gamma *float64, now time.Time) (int, error) {
	if gamma == nil {
		return 0, nil
	}
	if math.IsNaN(*gamma) || math.IsInf(*gamma, 0) {
		return 0, errors.New("gamma must be finite")
	}
	cfg := &models.SensitivityConfig{
		ID:        models.SensitivityConfigID,
		Gamma:     severity.Clamp01(*gamma),
		UpdatedAt: now,
	}
	return 1, tx.Create(cfg).Error
}

func seedProfiles(tx *gorm.DB, profiles []ProfileFixture) (int, error) {
	for _, f := range profiles {
		cookies := make([]models.SessionCookie, 0, len(f.Cookies))
		for _, c := range f.Cookies {
			cookies = append(cookies, models.SessionCookie{Name: c.Name, Value: c.Value})
		}
		p := &models.CrawlerProfile{
			ID:           profileID(f.Key),
			Name:         f.Name,
			Description:  f.Description,
			AllowDomains: services.NormalizeDomains(f.AllowDomains),
			StartURL:     f.StartURL,
			AlertTo:      f.AlertTo,
			BypassDDoS:   f.BypassDDoS,
			Cookies:      cookies,
		}
		if err := tx.Create(p).Error; err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}

// profileID keeps fixture profiles addressable by key across restarts.
func profileID(key string) string {
	if key == "" {
		return ""
	}
	return "crawler-" + key
}

func seedSchedules(tx *gorm.DB, schedules []ScheduleFixture) (int, error) {
	n := 0
	for _, f := range schedules {
		job := &models.ScheduleJob{
			Name:         f.Name,
			CrawlerID:    profileID(f.Crawler),
			Enabled:      f.Enabled,
			ScheduleMode: models.ScheduleMode(f.Mode),
			TotalRun:     f.TotalRun,
			LastRun:      f.LastRun,
		}
		switch {
		case f.Interval != nil:
			job.Interval = &models.IntervalSpec{Every: f.Interval.Every, Period: f.Interval.Period}
		case f.Crontab != nil:
			job.Crontab = &models.CrontabSpec{
				Minute:      f.Crontab.Minute,
				Hour:        f.Crontab.Hour,
				DayOfWeek:   f.Crontab.DayOfWeek,
				DayOfMonth:  f.Crontab.DayOfMonth,
				MonthOfYear: f.Crontab.MonthOfYear,
			}
		case f.Clocked != nil:
			job.Clocked = &models.ClockedSpec{ClockedTime: *f.Clocked}
		}
		if _, err := services.ScheduleFor(job); err != nil {
			return 0, fmt.Errorf("schedule %q: %w", f.Name, err)
		}

		var exists int64
		if err := tx.Model(&models.CrawlerProfile{}).Where("id = ?", job.CrawlerID).Count(&exists).Error; err != nil {
			return 0, err
		}
		if exists == 0 {
			logger.Log().WithField("schedule", f.Name).Warn("skipping fixture schedule for unknown crawler")
			continue
		}
		if err := tx.Create(job).Error; err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func seedJobs(tx *gorm.DB, jobs []JobFixture, now time.Time) (int, error) {
	names := map[string]string{}
	var profiles []models.CrawlerProfile
	if err := tx.Find(&profiles).Error; err != nil {
		return 0, err
	}
	for _, p := range profiles {
		names[p.ID] = p.Name
	}

	n := 0
	for i, f := range jobs {
		crawlerID := profileID(f.Crawler)
		name, ok := names[crawlerID]
		if !ok {
			continue
		}
		start := now.Add(-time.Duration(f.HoursAgo) * time.Hour)
		entry := &models.JobHistory{
			JobID:       fmt.Sprintf("job-%04d", i+1),
			CrawlerName: name,
			CrawlerID:   crawlerID,
			StartAt:     start,
			Status:      models.JobStatus(f.Status),
		}
		if f.DurationMinutes > 0 {
			end := start.Add(time.Duration(f.DurationMinutes) * time.Minute)
			entry.EndAt = &end
		}
		if err := tx.Create(entry).Error; err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func seedWorkers(tx *gorm.DB, workers []WorkerFixture, now time.Time) (int, error) {
	for _, f := range workers {
		status := f.Status
		if status == "" {
			status = "Online"
		}
		w := &models.WorkerStatus{
			Worker:      f.Worker,
			Status:      status,
			Active:      f.Active,
			Processed:   f.Processed,
			Failed:      f.Failed,
			Succeeded:   f.Succeeded,
			Retried:     f.Retried,
			LoadAverage: f.LoadAverage,
			UpdatedAt:   now,
		}
		if err := tx.Create(w).Error; err != nil {
			return 0, err
		}
	}
	return len(workers), nil
}

// alertSeverity spreads generated alerts over all levels, most of them LOW.
func alertSeverity(i int) severity.Level {
	switch {
	case i%17 == 0:
		return severity.LevelCritical
	case i%7 == 0:
		return severity.LevelHigh
	case i%3 == 0:
		return severity.LevelMed
	default:
		return severity.LevelLow
	}
}

func pick(list []string, i int) string {
	if len(list) == 0 {
		return ""
	}
	return list[i%len(list)]
}

func seedAlerts(tx *gorm.DB, gen *AlertGenerator) (int, error) {
	if gen == nil || gen.Count <= 0 {
		return 0, nil
	}
	alerts := make([]models.DashboardAlert, 0, gen.Count)
	fetched := gen.PostAt.Add(time.Duration(gen.FetchDelayMinutes) * time.Minute)
	for i := 0; i < gen.Count; i++ {
		a := models.DashboardAlert{
			TopicName:  fmt.Sprintf("%s %d", gen.Topic, i+1),
			Keyword:    pick(gen.Keywords, i),
			AlertType:  pick(gen.Types, i),
			PostAt:     gen.PostAt,
			Date:       gen.PostAt.Format("2006-01-02"),
			Severity:   alertSeverity(i + 1),
			FinalScore: severity.Round2(0.55 + float64(i%40)/100),
			FetchedAt:  &fetched,
			Content:    gen.Content,
		}
		if tag := pick(gen.Tags, i); tag != "" {
			a.AITags = []string{tag}
		}
		if gen.URLBase != "" {
			a.FullURL = fmt.Sprintf("%s%d", gen.URLBase, i+1)
		}
		if gen.Crawlers > 0 {
			a.CrawlerID = fmt.Sprintf("crawler-%d", i%gen.Crawlers+1)
		}
		if i%5 == 0 {
			a.Status = models.AlertStatusReviewed
		}
		alerts = append(alerts, a)
	}
	if err := tx.CreateInBatches(alerts, 50).Error; err != nil {
		return 0, err
	}
	return len(alerts), nil
}
