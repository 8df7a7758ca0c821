package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/model"
)

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "create user")
}

func (s *gormStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, translate(err, "get user by username")
	}
	return &u, nil
}

// ListUsers returns every account, oldest first.
func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// UpdateUser writes the given columns of a user.
func (s *gormStore) UpdateUser(ctx context.Context, id uuid.UUID, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update user: %w", ErrNotFound)
	}
	return nil
}

// DeleteUser removes an account that owns no posts, along with its saves,
// chats, visits, ratings, notifications and push subscriptions. Posts the
// user rated get their rating totals recomputed.
func (s *gormStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var owned int64
	if err := db.Model(&model.Post{}).Where("user_id = ?", id).Count(&owned).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if owned > 0 {
		return fmt.Errorf("delete user: still owns %d posts", owned)
	}

	var rated []uuid.UUID
	if err := db.Model(&model.Rating{}).Distinct("post_id").Where("user_id = ?", id).Pluck("post_id", &rated).Error; err != nil {
		return fmt.Errorf("delete user: rated posts: %w", err)
	}

	visitIDs := db.Model(&model.Visit{}).Select("id").Where("visitor_id = ? OR owner_id = ?", id, id)
	chatIDs := db.Model(&model.Chat{}).Select("id").Where("user_a_id = ? OR user_b_id = ?", id, id)

	steps := []struct {
		what string
		run  func() error
	}{
		{"notifications", func() error {
			return db.Where("user_id = ? OR visit_id IN (?)", id, visitIDs).Delete(&model.Notification{}).Error
		}},
		{"ratings", func() error {
			return db.Where("user_id = ? OR visit_id IN (?)", id, visitIDs).Delete(&model.Rating{}).Error
		}},
		{"visits", func() error {
			return db.Where("visitor_id = ? OR owner_id = ?", id, id).Delete(&model.Visit{}).Error
		}},
		{"saved posts", func() error { return db.Where("user_id = ?", id).Delete(&model.SavedPost{}).Error }},
		{"messages", func() error { return db.Where("chat_id IN (?)", chatIDs).Delete(&model.Message{}).Error }},
		{"chats", func() error {
			return db.Where("user_a_id = ? OR user_b_id = ?", id, id).Delete(&model.Chat{}).Error
		}},
		{"push subscriptions", func() error {
			return db.Where("user_id = ?", id).Delete(&model.PushSubscription{}).Error
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("delete user %s: %w", step.what, err)
		}
	}

	res := db.Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete user: %w", ErrNotFound)
	}

	for _, postID := range rated {
		avg, total, err := s.RatingStats(ctx, postID)
		if err != nil {
			return err
		}
		if err := s.SetPostRating(ctx, postID, avg, total); err != nil {
			return err
		}
	}
	return nil
}
