package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription binds a browser push endpoint to the user who registered it.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
