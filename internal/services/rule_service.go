package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/metrics"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/severity"
	"github.com/sp2025/darkwatch/internal/util"
)

// RuleRepository is the create/update/list contract shared by the local
// store and the remote API client.
type RuleRepository interface {
	List(ctx context.Context) ([]models.ActiveKeywordRule, error)
	Create(ctx context.Context, in models.RuleInput) (*models.ActiveKeywordRule, error)
	Update(ctx context.Context, id string, in models.RuleInput) (*models.ActiveKeywordRule, error)
}

// RuleService owns the persisted keyword rules.
type RuleService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	now           func() time.Time
}

var _ RuleRepository = (*RuleService)(nil)

func NewRuleService(db *gorm.DB, audit *AuditService, notifications *NotificationService) *RuleService {
	return &RuleService{db: db, audit: audit, notifications: notifications, now: time.Now}
}

// ValidateRuleInput rejects an empty title and any unselected scored field.
func ValidateRuleInput(in models.RuleInput) error {
	verr := NewValidationError()
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "title is required")
	}
	if in.DPC == nil {
		verr.Add("dpc", "dpc must be selected")
	}
	if in.EI == nil {
		verr.Add("ei", "ei must be selected")
	}
	if in.CB == nil {
		verr.Add("cb", "cb must be selected")
	}
	if in.Status != nil && !in.Status.Valid() {
		verr.Add("status", "status must be ACTIVE or INACTIVE")
	}
	return verr.OrNil()
}

// List returns every rule in insertion order, newest last.
func (s *RuleService) List(ctx context.Context) ([]models.ActiveKeywordRule, error) {
	var rules []models.ActiveKeywordRule
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Get retrieves a rule by its public id.
func (s *RuleService) Get(ctx context.Context, id string) (*models.ActiveKeywordRule, error) {
	var rule models.ActiveKeywordRule
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// Create validates, normalizes and scores the input, then appends a new ACTIVE rule.
func (s *RuleService) Create(ctx context.Context, in models.RuleInput) (*models.ActiveKeywordRule, error) {
	if err := ValidateRuleInput(in); err != nil {
		metrics.IncValidationFailure("rule")
		return nil, err
	}

	now := s.now().UTC()
	rule := &models.ActiveKeywordRule{Status: models.RuleStatusActive, CreatedAt: now, UpdatedAt: now}
	rule.ApplyInput(severity.Normalize(in.Scoring()))

	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.afterWrite(ctx, "create", rule)
	return rule, nil
}

// Update rescores an existing rule. ID and CreatedAt are never touched and
// Status only changes when the input sets it.
func (s *RuleService) Update(ctx context.Context, id string, in models.RuleInput) (*models.ActiveKeywordRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateRuleInput(in); err != nil {
		metrics.IncValidationFailure("rule")
		return nil, err
	}

	rule.ApplyInput(severity.Normalize(in.Scoring()))
	if in.Status != nil {
		rule.Status = *in.Status
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = s.now().UTC()

	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}

	s.afterWrite(ctx, "update", rule)
	return rule, nil
}

// CountByLevel returns how many rules sit in each severity level.
func (s *RuleService) CountByLevel(ctx context.Context) (map[severity.Level]int64, error) {
	var rows []struct {
		SeverityLevel severity.Level
		Count         int64
	}
	if err := s.db.WithContext(ctx).Model(&models.ActiveKeywordRule{}).
		Select("severity_level, count(*) as count").
		Group("severity_level").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[severity.Level]int64, len(severity.Levels))
	for _, l := range severity.Levels {
		counts[l] = 0
	}
	for _, r := range rows {
		counts[r.SeverityLevel] = r.Count
	}
	return counts, nil
}

func (s *RuleService) afterWrite(ctx context.Context, op string, rule *models.ActiveKeywordRule) {
	metrics.ObserveRuleWrite(op, rule.SeverityLevel.String(), rule.FinalSeverity)

	logger.WithFields(map[string]interface{}{
		"rule_id":        rule.ID,
		"op":             op,
		"final_severity": rule.FinalSeverity,
		"severity_level": rule.SeverityLevel,
	}).Info("keyword rule written")

	if s.audit != nil {
		if err := s.audit.Record(ctx, ActorFrom(ctx), "rule."+op, rule.ID, rule); err != nil {
			logger.Log().WithError(err).Warn("failed to record rule audit")
		}
	}

	if s.notifications != nil && rule.SeverityLevel == severity.LevelCritical {
		title := "Critical keyword rule " + op + "d"
		msg := fmt.Sprintf("%q scored %.2f (%s)", util.SanitizeForLog(rule.Title), rule.FinalSeverity, rule.SeverityLevel)
		if _, err := s.notifications.Create(models.NotificationTypeWarning, models.NotificationCategoryRule, title, msg); err != nil {
			logger.Log().WithError(err).Warn("failed to create rule notification")
		}
		s.notifications.SendExternal(models.NotificationCategoryRule, title, msg, map[string]interface{}{
			"RuleID":        rule.ID,
			"FinalSeverity": rule.FinalSeverity,
		})
	}
}
