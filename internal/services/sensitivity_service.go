package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/metrics"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/severity"
)

// DefaultGamma is used until an operator saves a value.
const DefaultGamma = 0.5

// SensitivityService owns the single SensitivityConfig row.
type SensitivityService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewSensitivityService(db *gorm.DB, audit *AuditService) *SensitivityService {
	return &SensitivityService{db: db, audit: audit, now: time.Now}
}

// Get returns the current value, persisting the default on first use.
func (s *SensitivityService) Get(ctx context.Context) (*models.SensitivityConfig, error) {
	var cfg models.SensitivityConfig
	err := s.db.WithContext(ctx).First(&cfg, models.SensitivityConfigID).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg = models.SensitivityConfig{
		ID:        models.SensitivityConfigID,
		Gamma:     DefaultGamma,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&cfg).Error; err != nil {
		return nil, fmt.Errorf("init sensitivity: %w", err)
	}
	metrics.SetGamma(cfg.Gamma)
	return &cfg, nil
}

// Save clamps gamma into [0,1] and overwrites the singleton in one statement.
func (s *SensitivityService) Save(ctx context.Context, gamma float64) (*models.SensitivityConfig, error) {
	if math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		metrics.IncValidationFailure("sensitivity")
		verr := NewValidationError()
		verr.Add("gamma", "gamma must be a finite number")
		return nil, verr
	}

	cfg := models.SensitivityConfig{
		ID:        models.SensitivityConfigID,
		Gamma:     severity.Clamp01(gamma),
		UpdatedAt: s.now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gamma", "updated_at"}),
		}).Create(&cfg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save sensitivity: %w", err)
	}

	metrics.SetGamma(cfg.Gamma)
	if s.audit != nil {
		if err := s.audit.Record(ctx, ActorFrom(ctx), "sensitivity.save", "gamma", cfg); err != nil {
			logger.Log().WithError(err).Warn("failed to record sensitivity audit")
		}
	}
	return &cfg, nil
}

// CoerceGamma turns a decoded JSON value into a float. Numbers and numeric
// strings are accepted; everything else is a ValidationError.
func CoerceGamma(raw interface{}) (float64, error) {
	verr := NewValidationError()
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			verr.Add("gamma", "gamma must be a number")
			return 0, verr
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			verr.Add("gamma", "gamma must be a number")
			return 0, verr
		}
		v = f
	case nil:
		verr.Add("gamma", "gamma is required")
		return 0, verr
	default:
		verr.Add("gamma", "gamma must be a number")
		return 0, verr
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		verr.Add("gamma", "gamma must be a finite number")
		return 0, verr
	}
	return v, nil
}
