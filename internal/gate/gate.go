// Package gate decides which interactions a property's sale or rental status
// permits. Decide has no side effects.
package gate

import (
	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/model"
)

// Action is an interaction a user attempts on a property.
type Action string

const (
	Save          Action = "save"
	Chat          Action = "chat"
	ScheduleVisit Action = "scheduleVisit"
	Edit          Action = "edit"
	Delete        Action = "delete"
	ToggleStatus  Action = "toggleStatus"
)

// Reasons reported by denials.
const (
	ReasonNotOwner      = "only the owner can modify this property"
	ReasonSold          = "property sold"
	ReasonRented        = "property rented"
	ReasonConfirmUnsell = "property is sold; confirm to mark it as available again"
)

// Property is the status view of a listing the policy needs.
type Property struct {
	Type     model.ListingType
	IsSold   bool
	IsRented bool
}

// Of extracts the status view of a post.
func Of(p *model.Post) Property {
	return Property{Type: p.Type, IsSold: p.IsSold, IsRented: p.IsRented}
}

// Request is one decision input.
type Request struct {
	Property  Property
	IsOwner   bool
	Action    Action
	Confirmed bool
}

func (r Request) interaction() bool {
	return r.Action == Save || r.Action == Chat || r.Action == ScheduleVisit
}

// Decide returns nil when the action is allowed, or an *apperr.Error.
// Rules are evaluated in order and the first match wins.
func Decide(r Request) error {
	p := r.Property

	if (r.Action == Edit || r.Action == Delete) && !r.IsOwner {
		return apperr.Forbidden(ReasonNotOwner)
	}

	if p.Type == model.ListingSale && p.IsSold {
		switch {
		case r.Action == Edit || r.Action == Delete:
			return apperr.Conflict(ReasonSold)
		case r.interaction() && !r.IsOwner:
			return apperr.Conflict(ReasonSold)
		}
	}

	if p.Type == model.ListingRental && p.IsRented {
		switch {
		case r.interaction() && !r.IsOwner:
			return apperr.Conflict(ReasonRented)
		case r.Action == Delete:
			return apperr.Conflict(ReasonRented)
		}
	}

	if r.Action == ToggleStatus {
		if !r.IsOwner {
			return apperr.Forbidden(ReasonNotOwner)
		}
		if p.Type == model.ListingSale && p.IsSold && !r.Confirmed {
			return apperr.ConfirmationRequired(ReasonConfirmUnsell)
		}
	}

	return nil
}
