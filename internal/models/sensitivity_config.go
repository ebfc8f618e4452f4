package models

import (
	"time"
)

// SensitivityConfigID is the fixed primary key of the singleton row.
const SensitivityConfigID uint = 1

// SensitivityConfig is the process-wide gamma tuning knob. It is stored and
// displayed only; the severity formula does not read it.
type SensitivityConfig struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Gamma     float64   `json:"gamma"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}
