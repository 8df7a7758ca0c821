// Package chat implements two-party conversations between users.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/gate"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/notification"
	"estate-marketplace-backend/internal/store"
)

const reasonChatNotFound = "chat not found"

// Presence reports whether a user is connected.
type Presence interface {
	IsOnline(userID uuid.UUID) bool
}

// Service implements chat operations.
type Service struct {
	store    store.Store
	sink     notification.Sink
	presence Presence
}

// NewService creates a chat service.
func NewService(s store.Store, sink notification.Sink, presence Presence) *Service {
	if sink == nil {
		sink = notification.Discard{}
	}
	return &Service{store: s, sink: sink, presence: presence}
}

// View is a chat as one participant sees it.
type View struct {
	model.Chat
	Receiver *model.PublicUser `json:"receiver"`
	Seen     bool              `json:"seen"`
}

// SentMessage is a stored message and whether the receiver was connected.
type SentMessage struct {
	*model.Message
	Delivered bool `json:"delivered"`
}

// List returns userID's chats, most recently active first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]View, error) {
	chats, err := s.store.Chats(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(chats))
	for _, c := range chats {
		v := View{Chat: c, Seen: c.SeenBy(userID)}
		other, err := s.store.GetUser(ctx, c.Other(userID))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if other != nil {
			pub := other.Public()
			v.Receiver = &pub
		}
		views = append(views, v)
	}
	return views, nil
}

// Open returns the chat between userID and receiverID, creating it when
// needed. A chat about a post is subject to the post's status.
func (s *Service) Open(ctx context.Context, userID, receiverID uuid.UUID, postID *uuid.UUID) (*model.Chat, bool, error) {
	if receiverID == userID {
		return nil, false, apperr.Validation("cannot start a chat with yourself")
	}
	if _, err := s.store.GetUser(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, apperr.NotFound("receiver not found")
		}
		return nil, false, err
	}
	if postID != nil {
		if err := s.checkPost(ctx, userID, *postID); err != nil {
			return nil, false, err
		}
	}

	existing, err := s.store.FindChat(ctx, userID, receiverID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	c := &model.Chat{PostID: postID}
	c.UserAID, c.UserBID = model.ChatPair(userID, receiverID)
	c.SeenByA = c.UserAID == userID
	c.SeenByB = !c.SeenByA
	if err := s.store.CreateChat(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, err := s.store.FindChat(ctx, userID, receiverID)
			return existing, false, err
		}
		return nil, false, err
	}
	return c, true, nil
}

// Get returns a chat with its messages and marks it seen by userID.
func (s *Service) Get(ctx context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	c, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if !c.SeenBy(userID) {
		if err := s.store.MarkChatSeen(ctx, c, userID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Read marks a chat seen by userID.
func (s *Service) Read(ctx context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	c, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkChatSeen(ctx, c, userID); err != nil {
		return nil, err
	}
	return c, nil
}

// Send stores a message and relays it to the other participant.
func (s *Service) Send(ctx context.Context, userID, chatID uuid.UUID, text string) (*SentMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("message cannot be empty")
	}
	c, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if c.PostID != nil {
		if err := s.checkPost(ctx, userID, *c.PostID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	m := &model.Message{UserID: userID, Text: text}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.AddMessage(ctx, c, m)
	})
	if err != nil {
		return nil, err
	}

	receiver := c.Other(userID)
	delivered := s.presence != nil && s.presence.IsOnline(receiver)
	s.sink.Notify(notification.Event{UserID: receiver, Name: notification.EventMessage, Data: m})
	return &SentMessage{Message: m, Delivered: delivered}, nil
}

func (s *Service) participantChat(ctx context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	c, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(reasonChatNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !c.Includes(userID) {
		return nil, apperr.NotFound(reasonChatNotFound)
	}
	return c, nil
}

func (s *Service) checkPost(ctx context.Context, userID, postID uuid.UUID) error {
	p, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("post not found")
	}
	if err != nil {
		return err
	}
	return gate.Decide(gate.Request{Property: gate.Of(p), IsOwner: p.OwnedBy(userID), Action: gate.Chat})
}
