package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType names the event a notification describes.
type NotificationType string

const (
	NotificationVisitRequest  NotificationType = "VISIT_REQUEST"
	NotificationVisitAccepted NotificationType = "VISIT_ACCEPTED"
	NotificationVisitRejected NotificationType = "VISIT_REJECTED"
)

// Notification is a persisted message addressed to a user.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"userId"`
	VisitID   *uuid.UUID       `gorm:"type:uuid;index" json:"visitId,omitempty"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Read      bool             `gorm:"not null" json:"read"`
	CreatedAt time.Time        `gorm:"not null" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
