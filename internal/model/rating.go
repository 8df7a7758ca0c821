package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating is a visitor's score for a property after an accepted visit.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index" json:"postId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	VisitID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"visitId"`
	Rating    float64   `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *Rating) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
