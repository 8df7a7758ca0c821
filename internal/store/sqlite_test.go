package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/db"
	"estate-marketplace-backend/internal/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "store.db")
	gdb, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger.Silent)
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(gdb)
}

func seedUser(t *testing.T, s Store, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x", UserType: model.UserTypeBuyer}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, s Store, owner uuid.UUID, typ model.ListingType) *model.Post {
	t.Helper()
	p := &model.Post{Title: "Flat", Price: 1000, City: "Pune", Type: typ, UserID: owner,
		Detail: &model.PostDetail{Desc: "two rooms"}}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func TestSQLite_VisitLedger(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	owner := seedUser(t, s, "owner")
	buyer := seedUser(t, s, "buyer")
	post := seedPost(t, s, owner.ID, model.ListingSale)

	v := &model.Visit{PostID: post.ID, VisitorID: buyer.ID, OwnerID: owner.ID,
		Date: "2030-03-10", TimeSlot: "10:00", Status: model.VisitPending}
	require.NoError(t, s.CreateVisit(ctx, v))

	got, err := s.FindConflicting(ctx, post.ID, buyer.ID, "2030-03-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, v.ID, got.ID)

	got, err = s.FindConflicting(ctx, post.ID, buyer.ID, "2030-03-11")
	require.NoError(t, err)
	assert.Nil(t, got, "past visits do not conflict")

	updated, err := s.RespondToVisit(ctx, v.ID, model.VisitAccepted, nil)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = s.RespondToVisit(ctx, v.ID, model.VisitRejected, nil)
	require.NoError(t, err)
	assert.False(t, updated, "terminal visits are never rewritten")

	taken, err := s.FindAcceptedAt(ctx, post.ID, "2030-03-10", "10:00", uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, taken)

	taken, err = s.FindAcceptedAt(ctx, post.ID, "2030-03-10", "10:00", v.ID)
	require.NoError(t, err)
	assert.Nil(t, taken)

	slots, err := s.AcceptedSlots(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{{Date: "2030-03-10", TimeSlot: "10:00", Status: model.VisitAccepted}}, slots)

	visits, err := s.VisitsForOwner(ctx, owner.ID, VisitQuery{Status: model.VisitPending})
	require.NoError(t, err)
	assert.Empty(t, visits)

	visits, err = s.VisitsForUser(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "owner", visits[0].Owner.Username)
}

func TestSQLite_DeletePostCascades(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	owner := seedUser(t, s, "owner")
	buyer := seedUser(t, s, "buyer")
	post := seedPost(t, s, owner.ID, model.ListingRental)

	v := &model.Visit{PostID: post.ID, VisitorID: buyer.ID, OwnerID: owner.ID,
		Date: "2030-03-10", TimeSlot: "10:00", Status: model.VisitPending}
	require.NoError(t, s.CreateVisit(ctx, v))
	require.NoError(t, s.CreateNotification(ctx, &model.Notification{UserID: owner.ID, VisitID: &v.ID,
		Type: model.NotificationVisitRequest, Message: "hi"}))
	require.NoError(t, s.SavePost(ctx, buyer.ID, post.ID))

	require.NoError(t, s.Transaction(ctx, func(tx Store) error {
		return tx.DeletePost(ctx, post.ID)
	}))

	_, err := s.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetVisit(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.CountUnreadNotifications(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	saved, err := s.SavedPosts(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)

	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), ErrNotFound)
}

func TestSQLite_PostsAndSaves(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	owner := seedUser(t, s, "owner")
	buyer := seedUser(t, s, "buyer")
	sale := seedPost(t, s, owner.ID, model.ListingSale)
	rental := seedPost(t, s, owner.ID, model.ListingRental)

	posts, err := s.ListPosts(ctx, PostFilter{Type: model.ListingRental})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, rental.ID, posts[0].ID)

	posts, err = s.ListPosts(ctx, PostFilter{City: "Pune", MinPrice: 500, MaxPrice: 1500})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	require.NoError(t, s.SavePost(ctx, buyer.ID, sale.ID))
	require.NoError(t, s.SavePost(ctx, buyer.ID, sale.ID), "saving twice is idempotent")

	ids, err := s.SavedPostIDs(ctx, buyer.ID, []uuid.UUID{sale.ID, rental.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{sale.ID: true}, ids)

	removed, err := s.UnsavePost(ctx, buyer.ID, sale.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, s.SetPostStatus(ctx, sale.ID, true, false))
	got, err := s.GetPost(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSold)
	assert.Equal(t, "two rooms", got.Detail.Desc)
	assert.Equal(t, "owner", got.User.Username)

	got.Title = "Renovated flat"
	got.Detail.Desc = "three rooms"
	require.NoError(t, s.UpdatePost(ctx, got))
	got, err = s.GetPost(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renovated flat", got.Title)
	assert.Equal(t, "three rooms", got.Detail.Desc)
	assert.True(t, got.IsSold, "edits never touch the status flags")
}

func TestSQLite_ChatsAndRatings(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	post := seedPost(t, s, bob.ID, model.ListingSale)

	c := &model.Chat{UserAID: bob.ID, UserBID: alice.ID, SeenByA: true, SeenByB: true}
	require.NoError(t, s.CreateChat(ctx, c))

	found, err := s.FindChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	require.NoError(t, s.AddMessage(ctx, found, &model.Message{UserID: alice.ID, Text: "hello"}))
	n, err := s.CountUnseenChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.CountUnseenChats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.MarkChatSeen(ctx, found, bob.ID))
	n, err = s.CountUnseenChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	full, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 1)
	assert.Equal(t, "hello", full.LastMessage)

	visitID := uuid.New()
	require.NoError(t, s.CreateRating(ctx, &model.Rating{PostID: post.ID, UserID: alice.ID, VisitID: visitID, Rating: 4}))
	err = s.CreateRating(ctx, &model.Rating{PostID: post.ID, UserID: alice.ID, VisitID: visitID, Rating: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, s.CreateRating(ctx, &model.Rating{PostID: post.ID, UserID: bob.ID, VisitID: uuid.New(), Rating: 5}))

	avg, total, err := s.RatingStats(ctx, post.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, avg, 0.001)
	assert.Equal(t, 2, total)
}

func TestSQLite_Subscriptions(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", UserID: alice.ID, P256DH: "k", Auth: "a"}
	require.NoError(t, s.UpsertSubscription(ctx, sub))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/1", UserID: bob.ID, P256DH: "k2", Auth: "a2"}))

	subs, err := s.Subscriptions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, subs, "the endpoint moved to the last user that registered it")

	got, err := s.Subscription(ctx, "https://push.example/1", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "k2", got.P256DH)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push.example/1"))
	_, err = s.Subscription(ctx, "https://push.example/1", bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateAndListUsers(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	alice := seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	require.NoError(t, s.UpdateUser(ctx, alice.ID, map[string]any{"username": "alicia", "avatar": "a.png"}))
	got, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "a.png", got.Avatar)

	err = s.UpdateUser(ctx, alice.ID, map[string]any{"email": "bob@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, s.UpdateUser(ctx, uuid.New(), map[string]any{"avatar": "x"}), ErrNotFound)
	assert.NoError(t, s.UpdateUser(ctx, uuid.New(), nil), "no changes is a no-op")

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"alicia", "bob"}, []string{users[0].Username, users[1].Username})
}

func TestSQLite_DeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	owner := seedUser(t, s, "owner")
	buyer := seedUser(t, s, "buyer")
	post := seedPost(t, s, owner.ID, model.ListingSale)

	v := &model.Visit{PostID: post.ID, VisitorID: buyer.ID, OwnerID: owner.ID,
		Date: "2030-03-10", TimeSlot: "10:00", Status: model.VisitAccepted}
	require.NoError(t, s.CreateVisit(ctx, v))
	require.NoError(t, s.CreateNotification(ctx, &model.Notification{UserID: owner.ID, VisitID: &v.ID,
		Type: model.NotificationVisitRequest, Message: "hi"}))
	require.NoError(t, s.CreateRating(ctx, &model.Rating{PostID: post.ID, UserID: buyer.ID, VisitID: v.ID, Rating: 4}))
	require.NoError(t, s.SetPostRating(ctx, post.ID, 4, 1))
	require.NoError(t, s.SavePost(ctx, buyer.ID, post.ID))
	c := &model.Chat{UserAID: owner.ID, UserBID: buyer.ID}
	require.NoError(t, s.CreateChat(ctx, c))
	require.NoError(t, s.AddMessage(ctx, c, &model.Message{UserID: buyer.ID, Text: "hello"}))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push.example/b", UserID: buyer.ID, P256DH: "k", Auth: "a"}))

	err := s.Transaction(ctx, func(tx Store) error { return tx.DeleteUser(ctx, owner.ID) })
	assert.ErrorContains(t, err, "still owns 1 posts")

	require.NoError(t, s.Transaction(ctx, func(tx Store) error { return tx.DeleteUser(ctx, buyer.ID) }))

	_, err = s.GetUser(ctx, buyer.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetVisit(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.CountUnreadNotifications(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "notifications about the removed visits go too")
	chats, err := s.Chats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
	subs, err := s.Subscriptions(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalRatings)
	assert.Zero(t, got.AverageRating)

	assert.ErrorIs(t, s.DeleteUser(ctx, buyer.ID), ErrNotFound)
}
