package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"estate-marketplace-backend/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Store defines the interface for all database operations.
type Store interface {
	// Transaction runs fn against a Store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, changes map[string]any) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Property store
	ListPosts(ctx context.Context, f PostFilter) ([]model.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	LockPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	CreatePost(ctx context.Context, p *model.Post) error
	UpdatePost(ctx context.Context, p *model.Post) error
	SetPostStatus(ctx context.Context, id uuid.UUID, isSold, isRented bool) error
	SetPostRating(ctx context.Context, id uuid.UUID, average float64, total int) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	PostsByOwner(ctx context.Context, userID uuid.UUID) ([]model.Post, error)

	// Saved posts
	SavedPosts(ctx context.Context, userID uuid.UUID) ([]model.Post, error)
	SavedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	SavePost(ctx context.Context, userID, postID uuid.UUID) error
	UnsavePost(ctx context.Context, userID, postID uuid.UUID) (bool, error)

	// Visit ledger
	CreateVisit(ctx context.Context, v *model.Visit) error
	GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	FindConflicting(ctx context.Context, postID, visitorID uuid.UUID, fromDay string) (*model.Visit, error)
	FindAcceptedAt(ctx context.Context, postID uuid.UUID, day, slot string, excludeID uuid.UUID) (*model.Visit, error)
	RespondToVisit(ctx context.Context, id uuid.UUID, status model.VisitStatus, responseMessage *string) (bool, error)
	AcceptedSlots(ctx context.Context, postID uuid.UUID) ([]model.Slot, error)
	AcceptedVisit(ctx context.Context, postID, visitorID uuid.UUID) (*model.Visit, error)
	VisitsForUser(ctx context.Context, userID uuid.UUID) ([]model.Visit, error)
	VisitsForOwner(ctx context.Context, ownerID uuid.UUID, q VisitQuery) ([]model.Visit, error)

	// Notifications
	CreateNotification(ctx context.Context, n *model.Notification) error
	Notifications(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)

	// Chats
	FindChat(ctx context.Context, a, b uuid.UUID) (*model.Chat, error)
	CreateChat(ctx context.Context, c *model.Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (*model.Chat, error)
	Chats(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	MarkChatSeen(ctx context.Context, c *model.Chat, userID uuid.UUID) error
	AddMessage(ctx context.Context, c *model.Chat, m *model.Message) error
	CountUnseenChats(ctx context.Context, userID uuid.UUID) (int64, error)

	// Ratings
	CreateRating(ctx context.Context, r *model.Rating) error
	RatingForVisit(ctx context.Context, visitID uuid.UUID) (*model.Rating, error)
	Ratings(ctx context.Context, postID uuid.UUID) ([]model.Rating, error)
	RatingStats(ctx context.Context, postID uuid.UUID) (float64, int, error)

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	Subscription(ctx context.Context, endpoint string, userID uuid.UUID) (*model.PushSubscription, error)
	Subscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Transaction runs fn in a database transaction. fn's error rolls it back.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// Ping checks the database connection.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto the store's sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// first returns nil, nil when no row matches.
func first[T any](q *gorm.DB, what string) (*T, error) {
	var out T
	res := q.Limit(1).Find(&out)
	if res.Error != nil {
		return nil, fmt.Errorf("%s: %w", what, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &out, nil
}
