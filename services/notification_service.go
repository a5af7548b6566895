package services

import (
	"context"
	"time"

	"legal_matter_engine/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Notify implements NotificationSink by storing an in-app notification
func (s *NotificationService) Notify(ctx context.Context, userID, notificationType, title, message string, metadata map[string]string) error {
	n := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Metadata: metadata,
	}
	if caseID, ok := metadata["case_id"]; ok && caseID != "" {
		n.CaseID = &caseID
	}
	return s.DB.WithContext(ctx).Create(n).Error
}

func (s *NotificationService) GetUnreadNotifications(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 5
	}
	var notifications []models.Notification
	err := s.DB.Where("user_id = ? AND read_at IS NULL", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID string) error {
	now := time.Now().UTC()
	return s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", now).Error
}

func (s *NotificationService) MarkAllAsRead(userID string) error {
	now := time.Now().UTC()
	return s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now).Error
}

func (s *NotificationService) GetNotificationCount(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}
