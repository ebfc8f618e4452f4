package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/models"
)

type actorKey struct{}

// WithActor attaches the acting user or client to ctx for audit records.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}

// AuditService stores who changed which rule or setting.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record stores an audit entry with a JSON snapshot of details.
func (s *AuditService) Record(ctx context.Context, actor, action, targetID string, details interface{}) error {
	payload := ""
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	entry := &models.RuleAudit{
		UUID:      uuid.NewString(),
		Actor:     actor,
		Action:    action,
		TargetID:  targetID,
		Details:   payload,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// List returns recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]models.RuleAudit, error) {
	var res []models.RuleAudit
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
