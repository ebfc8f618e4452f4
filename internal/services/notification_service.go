package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/util"
)

// Sender delivers a message to a shoutrrr URL.
type Sender func(url, message string) error

type NotificationService struct {
	DB   *gorm.DB
	send Sender
	wg   sync.WaitGroup
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, send: func(url, msg string) error { return shoutrrr.Send(url, msg) }}
}

// WithSender swaps the delivery function, mainly for tests.
func (s *NotificationService) WithSender(send Sender) *NotificationService {
	s.send = send
	return s
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

func normalizeURL(serviceType, rawURL string) string {
	if serviceType == "discord" {
		matches := discordWebhookRegex.FindStringSubmatch(rawURL)
		if len(matches) == 3 {
			return fmt.Sprintf("discord://%s@%s", matches[2], matches[1])
		}
	}
	return strings.TrimSpace(rawURL)
}

// ValidateProviderURL checks that shoutrrr can route the provider URL.
func ValidateProviderURL(p models.NotificationProvider) error {
	url := normalizeURL(p.Type, p.URL)
	if url == "" {
		return ErrInvalidNotifyAddress
	}
	if _, err := shoutrrr.CreateSender(url); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotifyAddress, err)
	}
	return nil
}

// Internal Notifications (DB)

func (s *NotificationService) Create(nType models.NotificationType, category, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		Type:     nType,
		Category: category,
		Title:    title,
		Message:  message,
		Read:     false,
	}
	result := s.DB.Create(notification)
	return notification, result.Error
}

func (s *NotificationService) List(unreadOnly bool) ([]models.Notification, error) {
	return s.ListCategory(unreadOnly, "")
}

// ListCategory lists newest first, optionally restricted to one category.
func (s *NotificationService) ListCategory(unreadOnly bool, category string) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

// UnreadCount backs the topbar badge.
func (s *NotificationService) UnreadCount() (int64, error) {
	var n int64
	err := s.DB.Model(&models.Notification{}).Where("read = ?", false).Count(&n).Error
	return n, err
}

func (s *NotificationService) MarkAsRead(id string) error {
	var existing models.Notification
	if err := s.DB.Where("id = ?", id).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if existing.Read {
		return nil
	}
	return s.DB.Model(&existing).Updates(map[string]interface{}{"read": true, "read_at": time.Now().UTC()}).Error
}

func (s *NotificationService) MarkAllAsRead() error {
	return s.DB.Model(&models.Notification{}).Where("read = ?", false).
		Updates(map[string]interface{}{"read": true, "read_at": time.Now().UTC()}).Error
}

// External Notifications (Shoutrrr)

// SendExternal fans the message out to every enabled provider subscribed to
// eventType. Delivery runs in the background; use Wait to drain it.
func (s *NotificationService) SendExternal(eventType, title, message string, data map[string]interface{}) {
	var providers []models.NotificationProvider
	if err := s.DB.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		logger.Log().WithError(err).Error("failed to fetch notification providers")
		return
	}

	msg := fmt.Sprintf("%s\n\n%s", title, message)
	if len(data) > 0 {
		msg += "\n"
		for k, v := range data {
			msg += fmt.Sprintf("\n%s: %v", k, v)
		}
	}

	for _, provider := range providers {
		shouldSend := false
		switch eventType {
		case models.NotificationCategoryRule:
			shouldSend = provider.NotifyRules
		case models.NotificationCategoryCrawler:
			shouldSend = provider.NotifyCrawlers
		default:
			shouldSend = true
		}
		if !shouldSend {
			continue
		}

		s.wg.Add(1)
		go func(p models.NotificationProvider) {
			defer s.wg.Done()
			url := normalizeURL(p.Type, p.URL)
			if err := s.send(url, msg); err != nil {
				logger.WithFields(map[string]interface{}{
					"provider": util.SanitizeForLog(p.Name),
					"event":    eventType,
				}).WithError(err).Warn("failed to send notification")
			}
		}(provider)
	}
}

// Wait blocks until background deliveries finish or ctx is done.
func (s *NotificationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *NotificationService) TestProvider(provider models.NotificationProvider) error {
	if err := ValidateProviderURL(provider); err != nil {
		return err
	}
	url := normalizeURL(provider.Type, provider.URL)
	return s.send(url, "Test notification from Darkwatch at "+time.Now().UTC().Format(time.RFC3339))
}

// Providers

func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	result := s.DB.Order("created_at asc").Find(&providers)
	return providers, result.Error
}

func (s *NotificationService) CreateProvider(provider *models.NotificationProvider) error {
	if err := ValidateProviderURL(*provider); err != nil {
		return err
	}
	return s.DB.Create(provider).Error
}

func (s *NotificationService) UpdateProvider(provider *models.NotificationProvider) error {
	if err := ValidateProviderURL(*provider); err != nil {
		return err
	}
	var existing models.NotificationProvider
	if err := s.DB.First(&existing, "id = ?", provider.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProviderNotFound
		}
		return err
	}
	provider.CreatedAt = existing.CreatedAt
	return s.DB.Save(provider).Error
}

func (s *NotificationService) DeleteProvider(id string) error {
	result := s.DB.Delete(&models.NotificationProvider{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}
