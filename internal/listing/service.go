// Package listing manages property listings and their sale or rental status.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/gate"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/store"
)

const (
	reasonNotFound    = "post not found"
	reasonSellerSave  = "login with a buyer account to interact with this post"
	reasonSaleOnly    = "only sale properties can be marked as sold"
	reasonRentalOnly  = "only rental properties can be marked as rented"
	reasonInvalidType = "type must be sale or rental"
)

// Service implements listing operations.
type Service struct {
	store store.Store
}

// NewService creates a listing service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// PostInput carries the owner-editable fields of a listing.
type PostInput struct {
	Title     string
	Price     int64
	Images    []string
	Address   string
	City      string
	Bedroom   int
	Bathroom  int
	Latitude  float64
	Longitude float64
	Type      model.ListingType
	Property  model.PropertyKind
	Detail    *model.PostDetail
}

func (in PostInput) apply(p *model.Post) error {
	images, err := json.Marshal(in.Images)
	if err != nil {
		return err
	}
	if in.Images == nil {
		images = []byte("[]")
	}
	p.Title = in.Title
	p.Price = in.Price
	p.Images = datatypes.JSON(images)
	p.Address = in.Address
	p.City = in.City
	p.Bedroom = in.Bedroom
	p.Bathroom = in.Bathroom
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.Property = in.Property
	p.Detail = in.Detail
	return nil
}

// List returns the posts matching f, flagged with viewer's saves.
func (s *Service) List(ctx context.Context, f store.PostFilter, viewer uuid.UUID) ([]model.Post, error) {
	posts, err := s.store.ListPosts(ctx, f)
	if err != nil {
		return nil, err
	}
	if viewer == uuid.Nil || len(posts) == 0 {
		return posts, nil
	}
	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	saved, err := s.store.SavedPostIDs(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].IsSaved = saved[posts[i].ID]
	}
	return posts, nil
}

// Get returns one post with its detail, flagged with viewer's save.
func (s *Service) Get(ctx context.Context, id, viewer uuid.UUID) (*model.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(reasonNotFound)
	}
	if err != nil {
		return nil, err
	}
	if viewer != uuid.Nil {
		saved, err := s.store.SavedPostIDs(ctx, viewer, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		p.IsSaved = saved[id]
	}
	return p, nil
}

// Create stores a new listing owned by owner.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in PostInput) (*model.Post, error) {
	if !in.Type.Valid() {
		return nil, apperr.Validation(reasonInvalidType)
	}
	p := &model.Post{UserID: owner, Type: in.Type}
	if err := in.apply(p); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("post created", "post", p.ID, "owner", owner, "type", p.Type)
	return p, nil
}

// Update edits a listing. The listing type and status flags are not editable.
func (s *Service) Update(ctx context.Context, id, actor uuid.UUID, in PostInput) (*model.Post, error) {
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		p, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := gate.Decide(gate.Request{Property: gate.Of(p), IsOwner: p.OwnedBy(actor), Action: gate.Edit}); err != nil {
			return err
		}
		if err := in.apply(p); err != nil {
			return apperr.Validation(err.Error())
		}
		return tx.UpdatePost(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

// Delete removes a listing and everything attached to it.
func (s *Service) Delete(ctx context.Context, id, actor uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		p, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := gate.Decide(gate.Request{Property: gate.Of(p), IsOwner: p.OwnedBy(actor), Action: gate.Delete}); err != nil {
			return err
		}
		return tx.DeletePost(ctx, id)
	})
	if err == nil {
		slog.Info("post deleted", "post", id)
	}
	return err
}

// ToggleSold marks an available sale property sold, or with confirmed set,
// reverses a sale. Either way the property ends up not rented.
func (s *Service) ToggleSold(ctx context.Context, id, actor uuid.UUID, confirmed bool) (*model.Post, error) {
	return s.toggle(ctx, id, actor, confirmed, model.ListingSale, func(p *model.Post) {
		p.IsSold = !p.IsSold
		p.IsRented = false
	})
}

// ToggleRented flips the rented flag of a rental property. Renting forces
// the sold flag off.
func (s *Service) ToggleRented(ctx context.Context, id, actor uuid.UUID) (*model.Post, error) {
	return s.toggle(ctx, id, actor, false, model.ListingRental, func(p *model.Post) {
		p.IsRented = !p.IsRented
		if p.IsRented {
			p.IsSold = false
		}
	})
}

// toggle applies flip to a post of the given type. The type check runs
// before the gate so a wrong-type request never asks for confirmation.
func (s *Service) toggle(ctx context.Context, id, actor uuid.UUID, confirmed bool, kind model.ListingType, flip func(p *model.Post)) (*model.Post, error) {
	var out *model.Post
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		p, err := s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Type != kind {
			if kind == model.ListingSale {
				return apperr.Validation(reasonSaleOnly)
			}
			return apperr.Validation(reasonRentalOnly)
		}
		req := gate.Request{Property: gate.Of(p), IsOwner: p.OwnedBy(actor), Action: gate.ToggleStatus, Confirmed: confirmed}
		if err := gate.Decide(req); err != nil {
			return err
		}
		flip(p)
		if err := tx.SetPostStatus(ctx, p.ID, p.IsSold, p.IsRented); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("post status changed", "post", id, "sold", out.IsSold, "rented", out.IsRented)
	return out, nil
}

// ToggleSave saves a post for userID, or removes an existing save. It
// reports whether the post is saved afterwards.
func (s *Service) ToggleSave(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	p, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.NotFound(reasonNotFound)
	}
	if err != nil {
		return false, err
	}

	removed, err := s.store.UnsavePost(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.Forbidden("unknown user")
	}
	if err != nil {
		return false, err
	}
	if user.UserType == model.UserTypeSeller {
		owner, err := s.store.GetUser(ctx, p.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if owner != nil && owner.UserType == model.UserTypeSeller {
			return false, apperr.Forbidden(reasonSellerSave)
		}
	}
	if err := gate.Decide(gate.Request{Property: gate.Of(p), IsOwner: p.OwnedBy(userID), Action: gate.Save}); err != nil {
		return false, err
	}
	if err := s.store.SavePost(ctx, userID, postID); err != nil {
		return false, err
	}
	return true, nil
}

// ProfilePosts returns the posts userID owns and the posts userID saved.
func (s *Service) ProfilePosts(ctx context.Context, userID uuid.UUID) (owned, saved []model.Post, err error) {
	owned, err = s.store.PostsByOwner(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	saved, err = s.store.SavedPosts(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return owned, saved, nil
}

func (s *Service) lock(ctx context.Context, tx store.Store, id uuid.UUID) (*model.Post, error) {
	p, err := tx.LockPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(reasonNotFound)
	}
	return p, err
}
