package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/severity"
)

type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "ACTIVE"
	RuleStatusInactive RuleStatus = "INACTIVE"
)

// Valid reports whether s is ACTIVE or INACTIVE.
func (s RuleStatus) Valid() bool {
	return s == RuleStatusActive || s == RuleStatusInactive
}

// ActiveKeywordRule is a persisted keyword rule with its computed severity.
// FinalSeverity and SeverityLevel are derived and only written by ApplyInput.
// Timestamps are UTC and set by the writer.
type ActiveKeywordRule struct {
	Seq           uint           `json:"-" gorm:"primaryKey"` // insertion order
	ID            string         `json:"id" gorm:"uniqueIndex"`
	Title         string         `json:"title" gorm:"index"`
	Description   string         `json:"description" gorm:"type:text"`
	Status        RuleStatus     `json:"status" gorm:"index"`
	DPC           int            `json:"dpc"`
	EI            float64        `json:"ei"`
	CB            int            `json:"cb"`
	FinalSeverity float64        `json:"final_severity"`
	SeverityLevel severity.Level `json:"severity_level" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (r *ActiveKeywordRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RuleStatusActive
	}
	return
}

// ApplyInput copies normalized fields onto the rule and recomputes the score.
func (r *ActiveKeywordRule) ApplyInput(n severity.Normalized) {
	r.Title = n.Title
	r.Description = n.Description
	r.DPC = n.DPC
	r.EI = n.EI
	r.CB = n.CB
	r.FinalSeverity, r.SeverityLevel = severity.Score(n)
}

// RuleInput is the five-field rule submission. A nil DPC, EI or CB means
// the user has not selected a value yet, which is not the same as zero.
type RuleInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DPC         *float64    `json:"dpc"`
	EI          *float64    `json:"ei"`
	CB          *float64    `json:"cb"`
	Status      *RuleStatus `json:"status,omitempty"`
}

// Scoring converts a fully selected input for normalization. Unset values
// become NaN so the clamps fall back to their lower bounds.
func (in RuleInput) Scoring() severity.Input {
	return severity.Input{
		Title:       in.Title,
		Description: in.Description,
		DPC:         deref(in.DPC),
		EI:          deref(in.EI),
		CB:          deref(in.CB),
	}
}

// Float returns a pointer to v, for building RuleInput literals.
func Float(v float64) *float64 { return &v }

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
