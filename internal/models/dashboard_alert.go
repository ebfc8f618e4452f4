package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/severity"
)

const (
	AlertStatusReviewed   = "reviewed"
	AlertStatusUnreviewed = "unreviewed"
)

// DashboardAlert is a piece of flagged content surfaced on the dashboard.
type DashboardAlert struct {
	Seq        uint           `json:"-" gorm:"primaryKey"`
	ID         string         `json:"id" gorm:"uniqueIndex"`
	TopicName  string         `json:"topic_name"`
	Keyword    string         `json:"keyword" gorm:"index"`
	AITags     []string       `json:"ai_tags" gorm:"serializer:json"`
	AlertType  string         `json:"alert_type"`
	PostAt     time.Time      `json:"post_at" gorm:"index"`
	Date       string         `json:"date"`
	Status     string         `json:"status" gorm:"index"`
	Severity   severity.Level `json:"severity,omitempty" gorm:"index"`
	FinalScore float64        `json:"final_score,omitempty"`
	FetchedAt  *time.Time     `json:"fetched_at,omitempty"`
	FullURL    string         `json:"full_url,omitempty"`
	Content    string         `json:"content,omitempty" gorm:"type:text"`
	CrawlerID  string         `json:"crawler_id,omitempty"`
}

func (a *DashboardAlert) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AlertStatusUnreviewed
	}
	return
}
