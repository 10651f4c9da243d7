// README: Invoice service: generation over completed orders, send/payment flags.
package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"kurier/internal/modules/order"
	"kurier/internal/types"
)

var (
	ErrValidation   = errors.New("invalid invoice input")
	ErrNotFound     = errors.New("invoice not found")
	ErrUnauthorized = errors.New("actor not allowed")
	ErrSent         = errors.New("invoice already sent")
)

// OrderSource is the read slice of the order service invoicing needs.
type OrderSource interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*order.Order, error)
}

type Service struct {
	store  *Store
	orders OrderSource
	logger *logrus.Entry
}

func NewService(store *Store, orders OrderSource, logger *logrus.Entry) *Service {
	return &Service{store: store, orders: orders, logger: logger}
}

type GenerateCommand struct {
	CustomerID   types.ID
	OrderIDs     []types.ID
	Presentation Presentation
}

// Generate builds and persists an invoice over the customer's completed
// orders. An empty order list means every completed order not yet on an
// invoice. Only approved waiting fees reach the invoice.
func (s *Service) Generate(ctx context.Context, actor types.Actor, cmd GenerateCommand) (*Invoice, error) {
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}
	if cmd.CustomerID == "" {
		return nil, ErrValidation
	}
	if len(cmd.OrderIDs) == 0 {
		ids, err := s.store.BillableOrderIDs(ctx, cmd.CustomerID)
		if err != nil {
			return nil, err
		}
		cmd.OrderIDs = ids
	}
	if len(cmd.OrderIDs) == 0 {
		return nil, ErrValidation
	}

	lines := make([]Line, 0, len(cmd.OrderIDs))
	for _, id := range cmd.OrderIDs {
		o, err := s.orders.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if o.CustomerID != cmd.CustomerID {
			return nil, ErrValidation
		}
		if o.Status != order.StatusCompleted {
			return nil, ErrValidation
		}
		lines = append(lines, Line{
			OrderID:        o.ID,
			BasePrice:      o.CustomerPrice,
			PriceIncrease:  o.PriceIncrease,
			WaitingTimeFee: o.PayableWaitingFee(),
		})
	}

	totals, err := Build(lines, cmd.Presentation)
	if err != nil {
		return nil, ErrValidation
	}

	inv := &Invoice{
		ID:              types.NewID(),
		CustomerID:      cmd.CustomerID,
		OrderIDs:        cmd.OrderIDs,
		Subtotal:        totals.Subtotal,
		WaitingTimeFees: totals.WaitingTimeFees,
		Total:           totals.Total,
		PaymentStatus:   PaymentOpen,
		CreatedAt:       time.Now(),
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Invoice, error) {
	inv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !(actor.Role == types.RoleCustomer && actor.ID == inv.CustomerID) {
		return nil, ErrUnauthorized
	}
	return inv, nil
}

// MarkEmailSent freezes the invoice. A sent invoice only allows the payment
// status to move.
func (s *Service) MarkEmailSent(ctx context.Context, actor types.Actor, id types.ID) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	return s.store.MarkEmailSent(ctx, id)
}

func (s *Service) SetPaymentStatus(ctx context.Context, actor types.Actor, id types.ID, to PaymentStatus) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	if to != PaymentOpen && to != PaymentPaid {
		return ErrValidation
	}
	return s.store.SetPaymentStatus(ctx, id, to)
}

func (s *Service) ListByCustomer(ctx context.Context, actor types.Actor, customerID types.ID) ([]Invoice, error) {
	if !actor.IsStaff() && actor.ID != customerID {
		return nil, ErrUnauthorized
	}
	return s.store.ListByCustomer(ctx, customerID)
}
