package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"estate-marketplace-backend/internal/model"
)

// UpsertSubscription creates or replaces a subscription, rebinding the
// endpoint to sub.UserID.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	return translate(err, "upsert subscription")
}

func (s *gormStore) Subscription(ctx context.Context, endpoint string, userID uuid.UUID) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ? AND user_id = ?", endpoint, userID).Error
	if err != nil {
		return nil, translate(err, "get subscription")
	}
	return &sub, nil
}

func (s *gormStore) Subscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	return translate(err, "delete subscription")
}
