package visit

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/db"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/notification"
	"estate-marketplace-backend/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recordingSink) Notify(ev notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

type fixture struct {
	store  store.Store
	svc    *Service
	sink   *recordingSink
	owner  *model.User
	buyerA *model.User
	buyerB *model.User
	post   *model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "visit.db")}, logger.Silent)
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{store: store.NewGormStore(gdb), sink: &recordingSink{}}
	f.svc = NewService(f.store, f.sink, time.UTC)
	f.svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	mk := func(name string, typ model.UserType) *model.User {
		u := &model.User{Username: name, Email: name + "@example.com", Password: "x", UserType: typ}
		require.NoError(t, f.store.CreateUser(ctx, u))
		return u
	}
	f.owner = mk("owner", model.UserTypeSeller)
	f.buyerA = mk("buyer-a", model.UserTypeBuyer)
	f.buyerB = mk("buyer-b", model.UserTypeBuyer)
	f.post = &model.Post{Title: "Sea view flat", Price: 100, Type: model.ListingSale, UserID: f.owner.ID}
	require.NoError(t, f.store.CreatePost(ctx, f.post))
	return f
}

func (f *fixture) request(t *testing.T, visitor *model.User, date, slot string) (*Result, error) {
	t.Helper()
	return f.svc.Create(context.Background(), CreateInput{
		PostID: f.post.ID, VisitorID: visitor.ID, Date: date, TimeSlot: slot, Message: "hello",
	})
}

func (f *fixture) respond(visitID, responder uuid.UUID, decision model.VisitStatus) (*Result, error) {
	return f.svc.Respond(context.Background(), RespondInput{VisitID: visitID, ResponderID: responder, Decision: decision})
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	res, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	require.NoError(t, err)
	assert.Equal(t, model.VisitPending, res.Visit.Status)
	assert.Equal(t, f.owner.ID, res.Visit.OwnerID, "owner is denormalised from the property")
	assert.Equal(t, f.owner.ID, res.Notification.UserID)
	assert.Equal(t, model.NotificationVisitRequest, res.Notification.Type)
	assert.Equal(t, "New visit request for Sea view flat", res.Notification.Message)
	assert.Equal(t, []string{notification.EventVisitRequest}, f.sink.names())

	t.Run("Second live request for the same property", func(t *testing.T) {
		_, err := f.request(t, f.buyerA, "2025-04-05", "11:00")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.EqualError(t, err, ReasonAlreadyRequested)
	})

	t.Run("Another buyer may request the same pending slot", func(t *testing.T) {
		_, err := f.request(t, f.buyerB, "2025-03-10", "10:00")
		assert.NoError(t, err)
	})

	t.Run("Unknown property", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), CreateInput{PostID: uuid.New(), VisitorID: f.buyerA.ID, Date: "2025-03-10", TimeSlot: "10:00"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Malformed slot", func(t *testing.T) {
		_, err := f.request(t, f.buyerA, "2025-03-10", "10:30")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Owner cannot visit own property", func(t *testing.T) {
		_, err := f.request(t, f.owner, "2025-03-12", "10:00")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestCreate_PastVisitDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	_, err := f.request(t, f.buyerA, "2025-02-20", "10:00")
	require.NoError(t, err)

	_, err = f.request(t, f.buyerA, "2025-03-10", "10:00")
	assert.NoError(t, err, "a request dated before today is no longer live")
}

func TestCreate_SlotAlreadyAccepted(t *testing.T) {
	f := newFixture(t)
	a, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	require.NoError(t, err)
	_, err = f.respond(a.Visit.ID, f.owner.ID, model.VisitAccepted)
	require.NoError(t, err)

	_, err = f.request(t, f.buyerB, "2025-03-10", "10:00")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, ReasonSlotBooked)

	_, err = f.request(t, f.buyerB, "2025-03-10", "11:00")
	assert.NoError(t, err)
}

func TestCreate_SoldPropertyIsGated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetPostStatus(context.Background(), f.post.ID, true, false))

	_, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, "property sold")
	assert.Empty(t, f.sink.names())
}

func TestRespond(t *testing.T) {
	f := newFixture(t)
	a, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	require.NoError(t, err)
	b, err := f.request(t, f.buyerB, "2025-03-10", "10:00")
	require.NoError(t, err)

	t.Run("Only the owner responds", func(t *testing.T) {
		_, err := f.respond(a.Visit.ID, f.buyerB.ID, model.VisitAccepted)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Unknown visit", func(t *testing.T) {
		_, err := f.respond(uuid.New(), f.owner.ID, model.VisitAccepted)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Decision must be terminal", func(t *testing.T) {
		_, err := f.respond(a.Visit.ID, f.owner.ID, model.VisitPending)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	res, err := f.respond(a.Visit.ID, f.owner.ID, model.VisitAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.VisitAccepted, res.Visit.Status)
	assert.Equal(t, f.buyerA.ID, res.Notification.UserID)
	assert.Equal(t, model.NotificationVisitAccepted, res.Notification.Type)

	t.Run("Second response always conflicts", func(t *testing.T) {
		_, err := f.respond(a.Visit.ID, f.owner.ID, model.VisitRejected)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.EqualError(t, err, ReasonAlreadyResponded)
	})

	t.Run("Accepting a competing request for the booked slot", func(t *testing.T) {
		_, err := f.respond(b.Visit.ID, f.owner.ID, model.VisitAccepted)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.EqualError(t, err, ReasonSlotBooked)

		v, err := f.store.GetVisit(context.Background(), b.Visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitPending, v.Status, "a failed acceptance leaves the visit untouched")
	})

	t.Run("Rejecting the competing request", func(t *testing.T) {
		reply := "slot taken"
		res, err := f.svc.Respond(context.Background(), RespondInput{
			VisitID: b.Visit.ID, ResponderID: f.owner.ID, Decision: model.VisitRejected, ResponseMessage: &reply,
		})
		require.NoError(t, err)
		assert.Equal(t, "Your visit request for Sea view flat has been rejected. slot taken", res.Notification.Message)
	})

	slots, err := f.svc.AcceptedSlots(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	assert.Equal(t, []string{
		notification.EventVisitRequest, notification.EventVisitRequest,
		notification.EventVisitResponse, notification.EventVisitResponse,
	}, f.sink.names())
}

// staleStore misses accepted visits, as a concurrent acceptance would.
type staleStore struct {
	store.Store
}

func (s staleStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.Transaction(ctx, func(tx store.Store) error { return fn(staleStore{tx}) })
}

func (staleStore) FindAcceptedAt(context.Context, uuid.UUID, string, string, uuid.UUID) (*model.Visit, error) {
	return nil, nil
}

func TestRespond_IndexBacksSlotExclusivity(t *testing.T) {
	f := newFixture(t)
	a, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	require.NoError(t, err)
	b, err := f.request(t, f.buyerB, "2025-03-10", "10:00")
	require.NoError(t, err)

	f.svc.store = staleStore{f.store}
	_, err = f.respond(a.Visit.ID, f.owner.ID, model.VisitAccepted)
	require.NoError(t, err)
	_, err = f.respond(b.Visit.ID, f.owner.ID, model.VisitAccepted)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestReadModels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.request(t, f.buyerA, "2025-03-10", "10:00")
	require.NoError(t, err)
	_, err = f.request(t, f.buyerB, "2025-03-11", "10:00")
	require.NoError(t, err)
	_, err = f.respond(a.Visit.ID, f.owner.ID, model.VisitAccepted)
	require.NoError(t, err)

	pending, err := f.svc.PendingRequests(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.buyerB.ID, pending[0].VisitorID)
	assert.Equal(t, "buyer-b", pending[0].Visitor.Username)

	all, err := f.svc.AllRequests(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.VisitPending, all[0].Status, "pending requests come first")

	history, err := f.svc.History(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	mine, err := f.svc.ForUser(ctx, f.buyerA.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.VisitAccepted, mine[0].Status)
}
