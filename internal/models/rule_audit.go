package models

import (
	"time"
)

// RuleAudit records a change made through the rule manager.
type RuleAudit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action" gorm:"index"` // rule.create, rule.update, sensitivity.save
	TargetID  string    `json:"target_id" gorm:"index"`
	Details   string    `json:"details" gorm:"type:text"` // JSON snapshot of the written values
	CreatedAt time.Time `json:"created_at"`
}
