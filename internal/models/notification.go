package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification categories double as the event names providers subscribe to.
const (
	NotificationCategoryRule    = "rule"
	NotificationCategoryCrawler = "crawler"
	NotificationCategorySystem  = "system"
)

// Notification is an in-app message shown in the admin topbar.
type Notification struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	Type      NotificationType `json:"type"`
	Category  string           `json:"category" gorm:"index"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read" gorm:"index"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Category == "" {
		n.Category = NotificationCategorySystem
	}
	return
}
