// Package rating lets visitors score a property after an accepted visit.
package rating

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/store"
)

// Service implements rating operations.
type Service struct {
	store store.Store
}

// NewService creates a rating service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Summary is a post's ratings with their aggregate.
type Summary struct {
	Ratings       []model.Rating `json:"ratings"`
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
}

// Created is a new rating with the post's updated aggregate.
type Created struct {
	Rating        *model.Rating `json:"rating"`
	AverageRating float64       `json:"averageRating"`
	TotalRatings  int           `json:"totalRatings"`
}

// Eligibility tells a user whether they may rate a post.
type Eligibility struct {
	IsEligible bool       `json:"isEligible"`
	VisitID    *uuid.UUID `json:"visitId,omitempty"`
}

// Create rates the property of an accepted visit. Only the visitor may rate,
// once per visit, while the property is neither sold nor rented.
func (s *Service) Create(ctx context.Context, userID, visitID uuid.UUID, score float64, comment string) (*Created, error) {
	if score < 1 || score > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	var out Created
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		v, err := tx.GetVisit(ctx, visitID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("visit not found")
		}
		if err != nil {
			return err
		}
		if v.VisitorID != userID {
			return apperr.Forbidden("only the visitor can rate this visit")
		}
		post, err := tx.LockPost(ctx, v.PostID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("post not found")
		}
		if err != nil {
			return err
		}
		if v.Status != model.VisitAccepted || post.IsSold || post.IsRented {
			return apperr.Conflict("cannot rate this property")
		}

		existing, err := tx.RatingForVisit(ctx, visitID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("you have already rated this property")
		}

		r := &model.Rating{PostID: v.PostID, UserID: userID, VisitID: visitID, Rating: score, Comment: comment}
		if err := tx.CreateRating(ctx, r); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("you have already rated this property")
			}
			return err
		}
		avg, total, err := tx.RatingStats(ctx, v.PostID)
		if err != nil {
			return err
		}
		if err := tx.SetPostRating(ctx, v.PostID, avg, total); err != nil {
			return err
		}
		out = Created{Rating: r, AverageRating: avg, TotalRatings: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ForPost lists a post's ratings, newest first.
func (s *Service) ForPost(ctx context.Context, postID uuid.UUID) (*Summary, error) {
	ratings, err := s.store.Ratings(ctx, postID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Ratings: ratings, TotalRatings: len(ratings)}
	if len(ratings) > 0 {
		var total float64
		for _, r := range ratings {
			total += r.Rating
		}
		sum.AverageRating = total / float64(len(ratings))
	}
	return sum, nil
}

// Eligibility reports whether userID holds an accepted, unrated visit to postID.
func (s *Service) Eligibility(ctx context.Context, userID, postID uuid.UUID) (*Eligibility, error) {
	v, err := s.store.AcceptedVisit(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &Eligibility{}, nil
	}
	existing, err := s.store.RatingForVisit(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	return &Eligibility{IsEligible: existing == nil, VisitID: &v.ID}, nil
}
