package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/gate"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/store"
)

// ReasonClosedListings refuses deleting an account that still has a sold
// or rented listing.
const ReasonClosedListings = "mark sold or rented properties available before deleting the account"

const reasonNotYourAccount = "you can only change your own account"

var errBadCredentials = apperr.Validation("invalid credentials")

// Service registers and logs in users.
type Service struct {
	store  store.Store
	tokens *Tokens
	cost   int
}

// NewService creates an auth service.
func NewService(s store.Store, tokens *Tokens) *Service {
	return &Service{store: s, tokens: tokens, cost: bcrypt.DefaultCost}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	UserType model.UserType
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.UserType == "" {
		in.UserType = model.UserTypeBuyer
	}
	if in.UserType != model.UserTypeBuyer && in.UserType != model.UserTypeSeller {
		return nil, apperr.Validation("userType must be buyer or seller")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: string(hash),
		UserType: in.UserType,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validation("username or email already exists")
		}
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", errBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, "", errBadCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Users lists every account's public profile.
func (s *Service) Users(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// ProfileInput is a profile change. Empty fields are left as they are.
type ProfileInput struct {
	Username        string
	Email           string
	Avatar          string
	Password        string
	CurrentPassword string
}

func (in ProfileInput) empty() bool {
	return in.Username == "" && in.Email == "" && in.Avatar == "" && in.Password == ""
}

// UpdateProfile applies a profile change to the actor's own account. Any
// change needs the current password.
func (s *Service) UpdateProfile(ctx context.Context, actor, id uuid.UUID, in ProfileInput) (*model.User, error) {
	if actor != id {
		return nil, apperr.Forbidden(reasonNotYourAccount)
	}
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.empty() {
		return u, nil
	}
	if in.CurrentPassword == "" {
		return nil, apperr.Validation("current password is required to make changes")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.CurrentPassword)); err != nil {
		return nil, apperr.Forbidden("current password is incorrect")
	}

	changes := map[string]any{}
	if name := strings.TrimSpace(in.Username); name != "" && name != u.Username {
		changes["username"] = name
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" && email != u.Email {
		changes["email"] = email
	}
	if in.Avatar != "" {
		changes["avatar"] = in.Avatar
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return nil, err
		}
		changes["password"] = string(hash)
	}

	if err := s.store.UpdateUser(ctx, id, changes); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validation("username or email already exists")
		}
		return nil, err
	}
	slog.Info("profile updated", "user", id, "fields", len(changes))
	return s.user(ctx, id)
}

// PostDeleter removes a listing on behalf of its owner, cascading to
// everything attached to it.
type PostDeleter interface {
	Delete(ctx context.Context, id, actor uuid.UUID) error
}

// DeleteAccount removes the actor's own account. Every owned listing goes
// through posts first. A sold or rented listing cannot be deleted, so an
// account holding one is refused before anything is removed.
func (s *Service) DeleteAccount(ctx context.Context, actor, id uuid.UUID, posts PostDeleter) error {
	if actor != id {
		return apperr.Forbidden(reasonNotYourAccount)
	}
	if _, err := s.user(ctx, id); err != nil {
		return err
	}

	owned, err := s.store.PostsByOwner(ctx, id)
	if err != nil {
		return err
	}
	for i := range owned {
		req := gate.Request{Property: gate.Of(&owned[i]), IsOwner: true, Action: gate.Delete}
		if gate.Decide(req) != nil {
			return apperr.Conflict(ReasonClosedListings)
		}
	}
	for i := range owned {
		if err := posts.Delete(ctx, owned[i].ID, id); err != nil {
			return err
		}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.Info("account deleted", "user", id, "posts", len(owned))
	return nil
}

func (s *Service) user(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	return u, err
}
