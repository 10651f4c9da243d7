// README: Penalty service: records cancellation penalties and settles them.
package penalty

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"kurier/internal/notify"
	"kurier/internal/types"
)

var (
	ErrValidation   = errors.New("invalid penalty input")
	ErrNotFound     = errors.New("penalty not found")
	ErrSettled      = errors.New("penalty already settled")
	ErrUnauthorized = errors.New("actor not allowed")
)

type Notifier interface {
	Publish(ctx context.Context, name string, orderID types.ID, payload any)
}

type Service struct {
	store  *Store
	events Notifier
	logger *logrus.Entry
}

func NewService(store *Store, logger *logrus.Entry) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) WithNotifier(n Notifier) *Service { s.events = n; return s }

// RecordCancellation persists the penalty for a contractor cancellation. The
// order service calls this through its PenaltyRecorder port.
func (s *Service) RecordCancellation(ctx context.Context, contractorID, orderID types.ID, amount types.Money, cancellationType string) error {
	if contractorID == "" || orderID == "" || amount.Amount <= 0 {
		return ErrValidation
	}
	p := &Penalty{
		ID:               types.NewID(),
		ContractorID:     contractorID,
		OrderID:          orderID,
		Amount:           amount,
		Status:           StatusPending,
		CancellationType: cancellationType,
		CreatedAt:        time.Now(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(ctx, notify.EventPenaltyCreated, orderID, map[string]any{
			"penalty_id":     p.ID,
			"contractor_id":  contractorID,
			"order_id":       orderID,
			"penalty_amount": amount.Amount,
		})
	}
	return nil
}

// Settle marks a pending penalty paid, waived or deducted from a payout.
func (s *Service) Settle(ctx context.Context, actor types.Actor, id types.ID, to Status) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	if to != StatusPaid && to != StatusWaived && to != StatusDeducted {
		return ErrValidation
	}
	return s.store.Settle(ctx, id, to)
}

func (s *Service) ListByContractor(ctx context.Context, actor types.Actor, contractorID types.ID) ([]Penalty, error) {
	if !actor.IsStaff() && actor.ID != contractorID {
		return nil, ErrUnauthorized
	}
	return s.store.ListByContractor(ctx, contractorID)
}

// OutstandingTotal sums the contractor's pending penalties, for offsetting
// against payouts.
func (s *Service) OutstandingTotal(ctx context.Context, actor types.Actor, contractorID types.ID) (types.Money, error) {
	if !actor.IsStaff() && actor.ID != contractorID {
		return types.Money{}, ErrUnauthorized
	}
	return s.store.SumPending(ctx, contractorID)
}
