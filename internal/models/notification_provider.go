package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationProvider is an external destination reached through a shoutrrr URL
// (slack://, discord://, telegram://, generic+https:// ...).
type NotificationProvider struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type"` // discord, slack, gotify, telegram, generic
	URL     string `json:"url" binding:"required"`
	Enabled bool   `json:"enabled"`

	NotifyRules    bool `json:"notify_rules" gorm:"default:true"`
	NotifyCrawlers bool `json:"notify_crawlers" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *NotificationProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
