// Package visit implements the visit request state machine. A visit starts
// PENDING and moves once, by the property owner, to ACCEPTED or REJECTED.
package visit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/gate"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/notification"
	"estate-marketplace-backend/internal/parse"
	"estate-marketplace-backend/internal/store"
)

// Reasons reported by conflicts.
const (
	ReasonAlreadyRequested = "you already have a pending or accepted visit for this property"
	ReasonSlotBooked       = "this time slot is already booked"
	ReasonAlreadyResponded = "visit already responded"
	ReasonOwnProperty      = "you cannot schedule a visit to your own property"
	ReasonNotOwner         = "only the property owner can respond to this visit"
)

// Service runs the visit state machine.
type Service struct {
	store store.Store
	sink  notification.Sink
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a visit service. "Today" is evaluated in loc.
func NewService(s store.Store, sink notification.Sink, loc *time.Location) *Service {
	if sink == nil {
		sink = notification.Discard{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: s, sink: sink, loc: loc, now: time.Now}
}

// Result is a visit with the notification its transition produced.
type Result struct {
	Visit        *model.Visit        `json:"visit"`
	Notification *model.Notification `json:"notification"`
}

// CreateInput is a visit request.
type CreateInput struct {
	PostID    uuid.UUID
	VisitorID uuid.UUID
	Date      string
	TimeSlot  string
	Message   string
}

// Create records a PENDING visit and notifies the property owner.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	day, err := parse.Day(in.Date)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	slot, err := parse.Slot(in.TimeSlot)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	today := parse.Today(s.now(), s.loc)

	var res Result
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		post, err := tx.LockPost(ctx, in.PostID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("post not found")
		}
		if err != nil {
			return err
		}
		if post.OwnedBy(in.VisitorID) {
			return apperr.Forbidden(ReasonOwnProperty)
		}
		if err := gate.Decide(gate.Request{Property: gate.Of(post), Action: gate.ScheduleVisit}); err != nil {
			return err
		}

		existing, err := tx.FindConflicting(ctx, post.ID, in.VisitorID, today)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict(ReasonAlreadyRequested)
		}
		taken, err := tx.FindAcceptedAt(ctx, post.ID, day, slot, uuid.Nil)
		if err != nil {
			return err
		}
		if taken != nil {
			return apperr.Conflict(ReasonSlotBooked)
		}

		v := &model.Visit{
			PostID:    post.ID,
			VisitorID: in.VisitorID,
			OwnerID:   post.UserID,
			Date:      day,
			TimeSlot:  slot,
			Message:   in.Message,
			Status:    model.VisitPending,
		}
		if err := tx.CreateVisit(ctx, v); err != nil {
			return err
		}
		n := &model.Notification{
			UserID:  post.UserID,
			VisitID: &v.ID,
			Type:    model.NotificationVisitRequest,
			Message: fmt.Sprintf("New visit request for %s", post.Title),
		}
		if err := tx.CreateNotification(ctx, n); err != nil {
			return err
		}

		res = Result{Visit: v, Notification: n}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("visit requested", "visit", res.Visit.ID, "post", res.Visit.PostID, "date", day, "slot", slot)
	s.sink.Notify(notification.Event{
		UserID: res.Visit.OwnerID,
		Name:   notification.EventVisitRequest,
		Data:   res,
		Push:   &notification.Push{Title: "New visit request", Body: res.Notification.Message + " on " + day + " at " + slot},
	})
	return &res, nil
}

// RespondInput is an owner's decision on a visit.
type RespondInput struct {
	VisitID         uuid.UUID
	ResponderID     uuid.UUID
	Decision        model.VisitStatus
	ResponseMessage *string
}

// Respond accepts or rejects a PENDING visit and notifies the visitor.
func (s *Service) Respond(ctx context.Context, in RespondInput) (*Result, error) {
	if !in.Decision.Terminal() {
		return nil, apperr.Validation("status must be ACCEPTED or REJECTED")
	}

	v, err := s.store.GetVisit(ctx, in.VisitID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("visit not found")
	}
	if err != nil {
		return nil, err
	}
	if v.OwnerID != in.ResponderID {
		return nil, apperr.Forbidden(ReasonNotOwner)
	}

	var res Result
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		// Responses for one property serialise on its row.
		post, err := tx.LockPost(ctx, v.PostID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("post not found")
		}
		if err != nil {
			return err
		}

		current, err := tx.GetVisit(ctx, v.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("visit not found")
		}
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return apperr.Conflict(ReasonAlreadyResponded)
		}

		if in.Decision == model.VisitAccepted {
			taken, err := tx.FindAcceptedAt(ctx, current.PostID, current.Date, current.TimeSlot, current.ID)
			if err != nil {
				return err
			}
			if taken != nil {
				return apperr.Conflict(ReasonSlotBooked)
			}
		}

		updated, err := tx.RespondToVisit(ctx, current.ID, in.Decision, in.ResponseMessage)
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict(ReasonSlotBooked)
		}
		if err != nil {
			return err
		}
		if !updated {
			return apperr.Conflict(ReasonAlreadyResponded)
		}
		current.Status = in.Decision
		current.ResponseMessage = in.ResponseMessage
		current.Post = post

		n := &model.Notification{
			UserID:  current.VisitorID,
			VisitID: &current.ID,
			Type:    responseType(in.Decision),
			Message: responseText(post.Title, in.Decision, in.ResponseMessage),
		}
		if err := tx.CreateNotification(ctx, n); err != nil {
			return err
		}
		res = Result{Visit: current, Notification: n}
		return nil
	})
	if err != nil {
		// The partial unique index can also reject the commit itself.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict(ReasonSlotBooked)
		}
		return nil, err
	}

	slog.Info("visit answered", "visit", res.Visit.ID, "status", res.Visit.Status)
	s.sink.Notify(notification.Event{
		UserID: res.Visit.VisitorID,
		Name:   notification.EventVisitResponse,
		Data:   res,
		Push:   &notification.Push{Title: "Visit " + statusWord(in.Decision), Body: res.Notification.Message},
	})
	return &res, nil
}

func responseType(s model.VisitStatus) model.NotificationType {
	if s == model.VisitAccepted {
		return model.NotificationVisitAccepted
	}
	return model.NotificationVisitRejected
}

func statusWord(s model.VisitStatus) string {
	if s == model.VisitAccepted {
		return "accepted"
	}
	return "rejected"
}

func responseText(title string, s model.VisitStatus, reply *string) string {
	if s == model.VisitAccepted {
		return fmt.Sprintf("Your visit request for %s has been accepted!", title)
	}
	msg := fmt.Sprintf("Your visit request for %s has been rejected.", title)
	if reply != nil && *reply != "" {
		msg += " " + *reply
	}
	return msg
}

// AcceptedSlots lists the booked slots of a property.
func (s *Service) AcceptedSlots(ctx context.Context, postID uuid.UUID) ([]model.Slot, error) {
	return s.store.AcceptedSlots(ctx, postID)
}

// ForUser lists visits where userID is the visitor or the owner.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) ([]model.Visit, error) {
	return s.store.VisitsForUser(ctx, userID)
}

// PendingRequests lists PENDING visits addressed to ownerID.
func (s *Service) PendingRequests(ctx context.Context, ownerID uuid.UUID) ([]model.Visit, error) {
	return s.store.VisitsForOwner(ctx, ownerID, store.VisitQuery{Status: model.VisitPending, IncludeVisitor: true})
}

// AllRequests lists every visit addressed to ownerID, pending first.
func (s *Service) AllRequests(ctx context.Context, ownerID uuid.UUID) ([]model.Visit, error) {
	return s.store.VisitsForOwner(ctx, ownerID, store.VisitQuery{PendingFirst: true, IncludeVisitor: true})
}

// History lists every visit addressed to ownerID, newest first.
func (s *Service) History(ctx context.Context, ownerID uuid.UUID) ([]model.Visit, error) {
	return s.store.VisitsForOwner(ctx, ownerID, store.VisitQuery{IncludeVisitor: true})
}
