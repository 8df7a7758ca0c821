package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"estate-marketplace-backend/internal/model"
)

// FindChat returns the chat between a and b in either order.
func (s *gormStore) FindChat(ctx context.Context, a, b uuid.UUID) (*model.Chat, error) {
	x, y := model.ChatPair(a, b)
	var c model.Chat
	if err := s.db.WithContext(ctx).First(&c, "user_a_id = ? AND user_b_id = ?", x, y).Error; err != nil {
		return nil, translate(err, "find chat")
	}
	return &c, nil
}

// CreateChat stores c with its participants ordered.
func (s *gormStore) CreateChat(ctx context.Context, c *model.Chat) error {
	c.UserAID, c.UserBID = model.ChatPair(c.UserAID, c.UserBID)
	return translate(s.db.WithContext(ctx).Create(c).Error, "create chat")
}

func (s *gormStore) GetChat(ctx context.Context, id uuid.UUID) (*model.Chat, error) {
	var c model.Chat
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get chat")
	}
	return &c, nil
}

func (s *gormStore) Chats(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	var chats []model.Chat
	err := s.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("chats: %w", err)
	}
	return chats, nil
}

func (s *gormStore) MarkChatSeen(ctx context.Context, c *model.Chat, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", c.ID).
		UpdateColumn(c.SeenColumn(userID), true).Error
	if err != nil {
		return fmt.Errorf("mark chat seen: %w", err)
	}
	if c.UserAID == userID {
		c.SeenByA = true
	} else {
		c.SeenByB = true
	}
	return nil
}

// AddMessage stores m and makes it the chat's latest message, seen only by
// its sender.
func (s *gormStore) AddMessage(ctx context.Context, c *model.Chat, m *model.Message) error {
	db := s.db.WithContext(ctx)
	m.ChatID = c.ID
	if err := db.Create(m).Error; err != nil {
		return translate(err, "create message")
	}
	c.SeenByA = c.UserAID == m.UserID
	c.SeenByB = c.UserBID == m.UserID
	c.LastMessage = m.Text
	err := db.Model(&model.Chat{ID: c.ID}).Updates(map[string]any{
		"seen_by_a":    c.SeenByA,
		"seen_by_b":    c.SeenByB,
		"last_message": m.Text,
		"updated_at":   m.CreatedAt,
	}).Error
	return translate(err, "update chat")
}

func (s *gormStore) CountUnseenChats(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Chat{}).
		Where("(user_a_id = ? AND seen_by_a = ?) OR (user_b_id = ? AND seen_by_b = ?)", userID, false, userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unseen chats: %w", err)
	}
	return n, nil
}
