package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingType is the listing category of a post.
type ListingType string

const (
	ListingSale   ListingType = "sale"
	ListingRental ListingType = "rental"
)

// Valid reports whether t is a known listing category.
func (t ListingType) Valid() bool {
	return t == ListingSale || t == ListingRental
}

// PropertyKind describes the kind of building.
type PropertyKind string

const (
	PropertyApartment PropertyKind = "apartment"
	PropertyHouse     PropertyKind = "house"
	PropertyCondo     PropertyKind = "condo"
	PropertyLand      PropertyKind = "land"
)

// Post is a property listing.
type Post struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"size:256;not null" json:"title"`
	Price         int64          `gorm:"not null;index" json:"price"`
	Images        datatypes.JSON `json:"images"`
	Address       string         `gorm:"size:512" json:"address"`
	City          string         `gorm:"size:128;index" json:"city"`
	Bedroom       int            `json:"bedroom"`
	Bathroom      int            `json:"bathroom"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	Type          ListingType    `gorm:"size:16;not null;index" json:"type"`
	Property      PropertyKind   `gorm:"size:16" json:"property"`
	IsSold        bool           `gorm:"not null" json:"isSold"`
	IsRented      bool           `gorm:"not null" json:"isRented"`
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// Associations
	User   *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Detail *PostDetail `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"postDetail,omitempty"`

	IsSaved bool `gorm:"-" json:"isSaved"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// OwnedBy reports whether userID is the listing owner.
func (p *Post) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}

// PostDetail holds the long-form description of a listing.
type PostDetail struct {
	PostID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"postId"`
	Desc       string    `gorm:"type:text" json:"desc"`
	Utilities  string    `gorm:"size:128" json:"utilities,omitempty"`
	Pet        string    `gorm:"size:128" json:"pet,omitempty"`
	Income     string    `gorm:"size:128" json:"income,omitempty"`
	Size       int       `json:"size,omitempty"`
	School     int       `json:"school,omitempty"`
	Bus        int       `json:"bus,omitempty"`
	Restaurant int       `json:"restaurant,omitempty"`
}

// SavedPost marks a post as saved by a user.
type SavedPost struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}
