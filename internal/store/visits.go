package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"estate-marketplace-backend/internal/model"
)

// VisitQuery narrows VisitsForOwner.
type VisitQuery struct {
	Status         model.VisitStatus // empty means any
	PendingFirst   bool              // order by status before recency
	IncludeVisitor bool
}

const statusRank = "CASE status WHEN 'PENDING' THEN 0 WHEN 'ACCEPTED' THEN 1 ELSE 2 END"

var liveStatuses = []model.VisitStatus{model.VisitPending, model.VisitAccepted}

func (s *gormStore) CreateVisit(ctx context.Context, v *model.Visit) error {
	return translate(s.db.WithContext(ctx).Create(v).Error, "create visit")
}

func (s *gormStore) GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var v model.Visit
	if err := s.db.WithContext(ctx).Preload("Post").First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get visit")
	}
	return &v, nil
}

// FindConflicting returns a live visit of visitorID for postID dated on or
// after fromDay, or nil.
func (s *gormStore) FindConflicting(ctx context.Context, postID, visitorID uuid.UUID, fromDay string) (*model.Visit, error) {
	q := s.db.WithContext(ctx).
		Where("post_id = ? AND visitor_id = ? AND status IN ? AND date >= ?", postID, visitorID, liveStatuses, fromDay)
	return first[model.Visit](q, "find conflicting visit")
}

// FindAcceptedAt returns the accepted visit holding a slot, or nil.
// A non-nil excludeID skips that visit.
func (s *gormStore) FindAcceptedAt(ctx context.Context, postID uuid.UUID, day, slot string, excludeID uuid.UUID) (*model.Visit, error) {
	q := s.db.WithContext(ctx).
		Where("post_id = ? AND date = ? AND time_slot = ? AND status = ?", postID, day, slot, model.VisitAccepted)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	return first[model.Visit](q, "find accepted visit")
}

// RespondToVisit moves a PENDING visit to status. It reports false when the
// visit was no longer pending, so two responders cannot both win.
func (s *gormStore) RespondToVisit(ctx context.Context, id uuid.UUID, status model.VisitStatus, responseMessage *string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Visit{}).
		Where("id = ? AND status = ?", id, model.VisitPending).
		Updates(map[string]any{"status": status, "response_message": responseMessage})
	if res.Error != nil {
		return false, translate(res.Error, "respond to visit")
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) AcceptedSlots(ctx context.Context, postID uuid.UUID) ([]model.Slot, error) {
	var slots []model.Slot
	err := s.db.WithContext(ctx).Model(&model.Visit{}).
		Select("date", "time_slot", "status").
		Where("post_id = ? AND status = ?", postID, model.VisitAccepted).
		Order("date, time_slot").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("accepted slots: %w", err)
	}
	return slots, nil
}

// AcceptedVisit returns visitorID's most recent accepted visit to postID, or nil.
func (s *gormStore) AcceptedVisit(ctx context.Context, postID, visitorID uuid.UUID) (*model.Visit, error) {
	q := s.db.WithContext(ctx).
		Where("post_id = ? AND visitor_id = ? AND status = ?", postID, visitorID, model.VisitAccepted).
		Order("date DESC")
	return first[model.Visit](q, "find accepted visit")
}

func (s *gormStore) VisitsForUser(ctx context.Context, userID uuid.UUID) ([]model.Visit, error) {
	var visits []model.Visit
	err := s.db.WithContext(ctx).
		Preload("Post").
		Preload("Visitor", publicUser).
		Preload("Owner", publicUser).
		Where("visitor_id = ? OR owner_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("visits for user: %w", err)
	}
	return visits, nil
}

func (s *gormStore) VisitsForOwner(ctx context.Context, ownerID uuid.UUID, q VisitQuery) ([]model.Visit, error) {
	db := s.db.WithContext(ctx).Preload("Post").Where("owner_id = ?", ownerID)
	if q.IncludeVisitor {
		db = db.Preload("Visitor", publicUser)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.PendingFirst {
		db = db.Order(statusRank)
	}
	var visits []model.Visit
	if err := db.Order("created_at DESC").Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("visits for owner: %w", err)
	}
	return visits, nil
}

func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar", "email")
}
