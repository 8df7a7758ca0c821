package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estate-marketplace-backend/internal/model"
)

// PostFilter narrows ListPosts. Zero fields are ignored.
type PostFilter struct {
	City     string
	Type     model.ListingType
	Property model.PropertyKind
	Bedroom  int
	MinPrice int64
	MaxPrice int64
}

// editableColumns are the post columns an owner edit may change.
var editableColumns = []string{
	"title", "price", "images", "address", "city", "bedroom", "bathroom",
	"latitude", "longitude", "property", "updated_at",
}

func (s *gormStore) ListPosts(ctx context.Context, f PostFilter) ([]model.Post, error) {
	q := s.db.WithContext(ctx).Model(&model.Post{})
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Property != "" {
		q = q.Where("property = ?", f.Property)
	}
	if f.Bedroom > 0 {
		q = q.Where("bedroom = ?", f.Bedroom)
	}
	if f.MinPrice > 0 {
		q = q.Where("price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price <= ?", f.MaxPrice)
	}

	var posts []model.Post
	if err := q.Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *gormStore) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var p model.Post
	err := s.db.WithContext(ctx).
		Preload("Detail").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar")
		}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get post")
	}
	return &p, nil
}

// LockPost reads a post and locks its row until the transaction ends.
// Concurrent visit writes for the same post serialise on this lock.
func (s *gormStore) LockPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var p model.Post
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "lock post")
	}
	return &p, nil
}

func (s *gormStore) CreatePost(ctx context.Context, p *model.Post) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "create post")
}

// UpdatePost writes the editable columns of p and upserts its detail.
func (s *gormStore) UpdatePost(ctx context.Context, p *model.Post) error {
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Post{ID: p.ID}).Select(editableColumns).Updates(p).Error; err != nil {
		return translate(err, "update post")
	}
	if p.Detail == nil {
		return nil
	}
	p.Detail.PostID = p.ID
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		UpdateAll: true,
	}).Create(p.Detail).Error
	return translate(err, "upsert post detail")
}

func (s *gormStore) SetPostStatus(ctx context.Context, id uuid.UUID, isSold, isRented bool) error {
	res := s.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		Updates(map[string]any{"is_sold": isSold, "is_rented": isRented})
	if res.Error != nil {
		return fmt.Errorf("set post status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set post status: %w", ErrNotFound)
	}
	return nil
}

func (s *gormStore) SetPostRating(ctx context.Context, id uuid.UUID, average float64, total int) error {
	err := s.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		Updates(map[string]any{"average_rating": average, "total_ratings": total}).Error
	return translate(err, "set post rating")
}

// DeletePost removes a post with everything hanging off it. Chats about the
// post survive and lose their post reference.
func (s *gormStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	visitIDs := db.Model(&model.Visit{}).Select("id").Where("post_id = ?", id)

	steps := []struct {
		what string
		run  func() error
	}{
		{"notifications", func() error {
			return db.Where("visit_id IN (?)", visitIDs).Delete(&model.Notification{}).Error
		}},
		{"ratings", func() error { return db.Where("post_id = ?", id).Delete(&model.Rating{}).Error }},
		{"visits", func() error { return db.Where("post_id = ?", id).Delete(&model.Visit{}).Error }},
		{"saved posts", func() error { return db.Where("post_id = ?", id).Delete(&model.SavedPost{}).Error }},
		{"post detail", func() error { return db.Where("post_id = ?", id).Delete(&model.PostDetail{}).Error }},
		{"chat references", func() error {
			return db.Model(&model.Chat{}).Where("post_id = ?", id).Update("post_id", nil).Error
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("delete post %s: %w", step.what, err)
		}
	}

	res := db.Delete(&model.Post{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete post: %w", ErrNotFound)
	}
	return nil
}

func (s *gormStore) PostsByOwner(ctx context.Context, userID uuid.UUID) ([]model.Post, error) {
	var posts []model.Post
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("posts by owner: %w", err)
	}
	return posts, nil
}

func (s *gormStore) SavedPosts(ctx context.Context, userID uuid.UUID) ([]model.Post, error) {
	var posts []model.Post
	err := s.db.WithContext(ctx).
		Joins("JOIN saved_posts sp ON sp.post_id = posts.id").
		Where("sp.user_id = ?", userID).
		Order("sp.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("saved posts: %w", err)
	}
	for i := range posts {
		posts[i].IsSaved = true
	}
	return posts, nil
}

// SavedPostIDs reports which of postIDs userID has saved. A nil postIDs
// checks every saved post.
func (s *gormStore) SavedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	q := s.db.WithContext(ctx).Model(&model.SavedPost{}).Where("user_id = ?", userID)
	if postIDs != nil {
		if len(postIDs) == 0 {
			return map[uuid.UUID]bool{}, nil
		}
		q = q.Where("post_id IN ?", postIDs)
	}
	var ids []uuid.UUID
	if err := q.Pluck("post_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("saved post ids: %w", err)
	}
	saved := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		saved[id] = true
	}
	return saved, nil
}

func (s *gormStore) SavePost(ctx context.Context, userID, postID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SavedPost{UserID: userID, PostID: postID}).Error
	return translate(err, "save post")
}

// UnsavePost reports whether a saved entry was removed.
func (s *gormStore) UnsavePost(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.SavedPost{})
	if res.Error != nil {
		return false, fmt.Errorf("unsave post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
