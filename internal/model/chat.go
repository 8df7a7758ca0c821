package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-party conversation. UserAID sorts before UserBID.
type Chat struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chats_pair,priority:1" json:"userAId"`
	UserBID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chats_pair,priority:2;index" json:"userBId"`
	PostID      *uuid.UUID `gorm:"type:uuid;index" json:"postId,omitempty"`
	SeenByA     bool       `gorm:"not null" json:"-"`
	SeenByB     bool       `gorm:"not null" json:"-"`
	LastMessage string     `gorm:"type:text" json:"lastMessage"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (c *Chat) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ChatPair orders two user ids the way chats store them.
func ChatPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if x.String() > y.String() {
		return y, x
	}
	return x, y
}

// Includes reports whether userID is a participant.
func (c *Chat) Includes(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// SeenBy reports whether userID has read the latest message.
func (c *Chat) SeenBy(userID uuid.UUID) bool {
	if c.UserAID == userID {
		return c.SeenByA
	}
	return c.SeenByB
}

// SeenColumn returns the column recording userID's read state.
func (c *Chat) SeenColumn(userID uuid.UUID) string {
	if c.UserAID == userID {
		return "seen_by_a"
	}
	return "seen_by_b"
}

// Message is one chat line.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index" json:"chatId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"userId"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
