// README: Location service: contractor position updates and nearby lookups.
package location

import (
	"context"
	"errors"

	"kurier/internal/types"
)

var (
	ErrValidation   = errors.New("invalid location input")
	ErrUnauthorized = errors.New("actor not allowed")
)

const (
	defaultRadiusKm = 50.0
	defaultLimit    = 20
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Update records a contractor's current position. Contractors report only
// their own.
func (s *Service) Update(ctx context.Context, actor types.Actor, contractorID types.ID, pos types.Point) error {
	if !actor.IsStaff() && (actor.Role != types.RoleContractor || actor.ID != contractorID) {
		return ErrUnauthorized
	}
	if !validPoint(pos) {
		return ErrValidation
	}
	return s.store.SetPosition(ctx, contractorID, pos)
}

func (s *Service) Remove(ctx context.Context, actor types.Actor, contractorID types.ID) error {
	if !actor.IsStaff() && (actor.Role != types.RoleContractor || actor.ID != contractorID) {
		return ErrUnauthorized
	}
	return s.store.RemovePosition(ctx, contractorID)
}

// Nearby lists contractors around a pickup point, closest first. Used by the
// back office when nudging contractors towards an open order.
func (s *Service) Nearby(ctx context.Context, actor types.Actor, center types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}
	if !validPoint(center) {
		return nil, ErrValidation
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.store.Nearby(ctx, center, radiusKm, limit)
}

func validPoint(p types.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 && (p.Lat != 0 || p.Lng != 0)
}
