package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType separates buyers from sellers.
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
)

// User is a marketplace account.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Avatar    string    `gorm:"size:512" json:"avatar,omitempty"`
	UserType  UserType  `gorm:"size:16;not null" json:"userType"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// PublicUser is the part of a User other users may see.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}

// Public strips private fields.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
