package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/model"
)

func (s *gormStore) CreateRating(ctx context.Context, r *model.Rating) error {
	return translate(s.db.WithContext(ctx).Create(r).Error, "create rating")
}

// RatingForVisit returns the rating left for a visit, or nil.
func (s *gormStore) RatingForVisit(ctx context.Context, visitID uuid.UUID) (*model.Rating, error) {
	return first[model.Rating](s.db.WithContext(ctx).Where("visit_id = ?", visitID), "rating for visit")
}

func (s *gormStore) Ratings(ctx context.Context, postID uuid.UUID) ([]model.Rating, error) {
	var out []model.Rating
	err := s.db.WithContext(ctx).
		Preload("User", publicUser).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}
	return out, nil
}

// RatingStats returns the average and number of ratings of a post.
func (s *gormStore) RatingStats(ctx context.Context, postID uuid.UUID) (float64, int, error) {
	var row struct {
		Average float64
		Total   int
	}
	err := s.db.WithContext(ctx).Model(&model.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("post_id = ?", postID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("rating stats: %w", err)
	}
	return row.Average, row.Total, nil
}
