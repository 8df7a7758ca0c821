package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/model"
)

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	return translate(s.db.WithContext(ctx).Create(n).Error, "create notification")
}

func (s *gormStore) Notifications(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	var out []model.Notification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead marks one of userID's notifications read.
func (s *gormStore) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark notification read: %w", ErrNotFound)
	}
	return nil
}

func (s *gormStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
