package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/severity"
)

const (
	DefaultAlertPageSize = 50
	MaxAlertPageSize     = 200
	topKeywordLimit      = 5
)

// KeywordCount is one row of the top keywords panel.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// DashboardSummary feeds the severity cards and top keyword list.
type DashboardSummary struct {
	SeverityCounts map[severity.Level]int64 `json:"severity_counts"`
	TopKeywords    []KeywordCount           `json:"top_keywords"`
}

// AlertQuery filters and pages the alert table. Empty fields do not filter.
type AlertQuery struct {
	Q        string `form:"q"`
	Severity string `form:"severity"`
	Status   string `form:"status"`
	Tag      string `form:"tag"`
	Keyword  string `form:"keyword"`
	Sort     string `form:"sort"` // newest (default) or severity
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// AlertPage is a single page of alerts plus the total match count.
type AlertPage struct {
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	Items    []models.DashboardAlert `json:"items"`
}

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Summary counts alerts per severity and returns the most frequent keywords.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	var sevRows []struct {
		Severity severity.Level
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&models.DashboardAlert{}).
		Select("severity, count(*) as count").
		Group("severity").
		Scan(&sevRows).Error; err != nil {
		return nil, err
	}

	summary := &DashboardSummary{SeverityCounts: make(map[severity.Level]int64, len(severity.Levels))}
	for _, l := range severity.Levels {
		summary.SeverityCounts[l] = 0
	}
	for _, r := range sevRows {
		if r.Severity.Valid() {
			summary.SeverityCounts[r.Severity] = r.Count
		}
	}

	var top []KeywordCount
	if err := s.db.WithContext(ctx).Model(&models.DashboardAlert{}).
		Select("keyword, count(*) as count").
		Where("keyword <> ''").
		Group("keyword").
		Order("count desc, keyword asc").
		Limit(topKeywordLimit).
		Scan(&top).Error; err != nil {
		return nil, err
	}
	summary.TopKeywords = top
	if summary.TopKeywords == nil {
		summary.TopKeywords = []KeywordCount{}
	}
	return summary, nil
}

// Alerts applies the query's filters in memory and returns the requested
// page. Out-of-range pages are clamped to the last page.
func (s *DashboardService) Alerts(ctx context.Context, q AlertQuery) (*AlertPage, error) {
	var all []models.DashboardAlert
	if err := s.db.WithContext(ctx).Order("post_at desc, seq asc").Find(&all).Error; err != nil {
		return nil, err
	}

	filtered := FilterAlerts(all, q)
	if strings.EqualFold(q.Sort, "severity") {
		SortAlertsBySeverity(filtered)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultAlertPageSize
	}
	if pageSize > MaxAlertPageSize {
		pageSize = MaxAlertPageSize
	}
	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	items := filtered[start:end]
	if items == nil {
		items = []models.DashboardAlert{}
	}

	return &AlertPage{Total: len(filtered), Page: page, PageSize: pageSize, Items: items}, nil
}

// FilterAlerts keeps alerts matching every non-empty field of q. Q is a
// case-insensitive substring match over the visible columns.
func FilterAlerts(alerts []models.DashboardAlert, q AlertQuery) []models.DashboardAlert {
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	sev, sevOK := severity.ParseLevel(q.Severity)
	status := strings.ToLower(strings.TrimSpace(q.Status))
	tag := strings.ToLower(strings.TrimSpace(q.Tag))
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := make([]models.DashboardAlert, 0, len(alerts))
	for _, a := range alerts {
		if q.Severity != "" && (!sevOK || a.Severity != sev) {
			continue
		}
		if status != "" && strings.ToLower(a.Status) != status {
			continue
		}
		if keyword != "" && strings.ToLower(a.Keyword) != keyword {
			continue
		}
		if tag != "" && !hasTag(a.AITags, tag) {
			continue
		}
		if needle != "" && !strings.Contains(alertHaystack(a), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

func alertHaystack(a models.DashboardAlert) string {
	fields := []string{
		a.TopicName,
		a.Keyword,
		a.AlertType,
		a.Status,
		a.PostAt.UTC().Format(time.RFC3339),
		a.Date,
		string(a.Severity),
	}
	fields = append(fields, a.AITags...)
	return strings.ToLower(strings.Join(fields, " "))
}

// GetAlert returns one alert with its detail fields.
func (s *DashboardService) GetAlert(ctx context.Context, id string) (*models.DashboardAlert, error) {
	var a models.DashboardAlert
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SetAlertStatus marks an alert reviewed or unreviewed.
func (s *DashboardService) SetAlertStatus(ctx context.Context, id, status string) (*models.DashboardAlert, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.AlertStatusReviewed && status != models.AlertStatusUnreviewed {
		return nil, ErrInvalidAlertStatus
	}
	a, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(a).Update("status", status).Error; err != nil {
		return nil, err
	}
	a.Status = status
	return a, nil
}

// SortAlertsBySeverity orders alerts most severe first, then newest first.
func SortAlertsBySeverity(alerts []models.DashboardAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		wi, wj := alerts[i].Severity.Weight(), alerts[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		return alerts[i].PostAt.After(alerts[j].PostAt)
	})
}
