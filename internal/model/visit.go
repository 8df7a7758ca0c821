package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisitStatus is the state of a visit request.
type VisitStatus string

const (
	VisitPending  VisitStatus = "PENDING"
	VisitAccepted VisitStatus = "ACCEPTED"
	VisitRejected VisitStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s VisitStatus) Terminal() bool {
	return s == VisitAccepted || s == VisitRejected
}

// Visit is a buyer's request to see a property at a slot.
type Visit struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	PostID          uuid.UUID   `gorm:"type:uuid;not null;index:idx_visits_post_slot,priority:1" json:"postId"`
	VisitorID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"visitorId"`
	OwnerID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"ownerId"`
	Date            string      `gorm:"size:10;not null;index:idx_visits_post_slot,priority:2" json:"date"`      // YYYY-MM-DD
	TimeSlot        string      `gorm:"size:5;not null;index:idx_visits_post_slot,priority:3" json:"timeSlot"` // HH:MM
	Message         string      `gorm:"type:text" json:"message"`
	Status          VisitStatus `gorm:"size:16;not null;index" json:"status"`
	ResponseMessage *string     `gorm:"type:text" json:"responseMessage,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	// Associations
	Post    *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	Visitor *User `gorm:"foreignKey:VisitorID" json:"visitor,omitempty"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (v *Visit) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Slot is the public view of an accepted visit.
type Slot struct {
	Date     string      `json:"date"`
	TimeSlot string      `json:"timeSlot"`
	Status   VisitStatus `json:"status"`
}
