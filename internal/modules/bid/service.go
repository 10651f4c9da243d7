// README: Bid service: placing, withdrawing, and accepting contractor bids.
package bid

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"kurier/internal/modules/order"
	"kurier/internal/types"
)

var (
	ErrValidation   = errors.New("invalid bid input")
	ErrNotFound     = errors.New("bid not found")
	ErrDuplicate    = errors.New("contractor already has an active bid on this order")
	ErrNotOpen      = errors.New("order is not open for bids")
	ErrUnauthorized = errors.New("actor not allowed")
	ErrDecided      = errors.New("bid already decided")
)

// OrderAccepter is the slice of the order service the bid flow needs: read an
// order to validate it is still open, and fix the winning contractor on it.
type OrderAccepter interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*order.Order, error)
	Accept(ctx context.Context, actor types.Actor, cmd order.AcceptCommand) error
}

type Service struct {
	store  *Store
	orders OrderAccepter
	logger *logrus.Entry
}

func NewService(store *Store, orders OrderAccepter, logger *logrus.Entry) *Service {
	return &Service{store: store, orders: orders, logger: logger}
}

type PlaceCommand struct {
	OrderID types.ID
	Amount  types.Money
	Message string
}

type WithdrawCommand struct {
	BidID types.ID
}

type RejectCommand struct {
	BidID types.ID
}

type AcceptCommand struct {
	BidID types.ID
}

// Place records a contractor bid on an open order. One active bid per
// contractor per order.
func (s *Service) Place(ctx context.Context, actor types.Actor, cmd PlaceCommand) (types.ID, error) {
	if actor.Role != types.RoleContractor {
		return "", ErrUnauthorized
	}
	if cmd.Amount.Amount <= 0 {
		return "", ErrValidation
	}

	o, err := s.orders.Get(ctx, actor, cmd.OrderID)
	if err != nil {
		return "", err
	}
	if o.Status != order.StatusPending {
		return "", ErrNotOpen
	}

	existing, err := s.store.ActiveByOrderAndContractor(ctx, cmd.OrderID, actor.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrDuplicate
	}

	b := &Bid{
		ID:           types.NewID(),
		OrderID:      cmd.OrderID,
		ContractorID: actor.ID,
		Amount:       cmd.Amount,
		Message:      cmd.Message,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, b); err != nil {
		return "", err
	}
	return b.ID, nil
}

// Withdraw retracts the contractor's own pending bid.
func (s *Service) Withdraw(ctx context.Context, actor types.Actor, cmd WithdrawCommand) error {
	b, err := s.store.Get(ctx, cmd.BidID)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && (actor.Role != types.RoleContractor || actor.ID != b.ContractorID) {
		return ErrUnauthorized
	}
	if !b.Active() {
		return ErrDecided
	}
	return s.store.Decide(ctx, b.ID, StatusWithdrawn)
}

// Accept picks the winning bid: the order is fixed on the bidder, the bid is
// marked accepted, and every other pending bid on the order is rejected.
func (s *Service) Accept(ctx context.Context, actor types.Actor, cmd AcceptCommand) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	b, err := s.store.Get(ctx, cmd.BidID)
	if err != nil {
		return err
	}
	if !b.Active() {
		return ErrDecided
	}

	// The bid is decided first, so two staff accepting at once race here
	// instead of at the order, and a failed order update never leaves the
	// winner stuck in pending.
	if err := s.store.Decide(ctx, b.ID, StatusAccepted); err != nil {
		return err
	}
	err = s.orders.Accept(ctx, actor, order.AcceptCommand{
		OrderID:      b.OrderID,
		ContractorID: b.ContractorID,
		BidAmount:    b.Amount,
	})
	if err != nil {
		if rerr := s.store.Reopen(ctx, b.ID); rerr != nil {
			s.logger.WithError(rerr).WithField("bid_id", b.ID).Error("reopen bid after failed order accept")
		}
		return err
	}
	if err := s.store.RejectOthers(ctx, b.OrderID, b.ID); err != nil {
		// the winner is already fixed on the order; losers are cleanup
		s.logger.WithError(err).WithField("order_id", b.OrderID).Error("reject competing bids")
	}
	return nil
}

// Reject turns down a single pending bid without touching the order.
func (s *Service) Reject(ctx context.Context, actor types.Actor, cmd RejectCommand) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	b, err := s.store.Get(ctx, cmd.BidID)
	if err != nil {
		return err
	}
	if !b.Active() {
		return ErrDecided
	}
	return s.store.Decide(ctx, b.ID, StatusRejected)
}

// ListByOrder returns the bids on an order. Staff and the order's customer see
// all of them; a contractor sees only their own.
func (s *Service) ListByOrder(ctx context.Context, actor types.Actor, orderID types.ID) ([]Bid, error) {
	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() || (actor.Role == types.RoleCustomer && actor.ID == o.CustomerID) {
		return bids, nil
	}
	own := bids[:0]
	for _, b := range bids {
		if b.ContractorID == actor.ID {
			own = append(own, b)
		}
	}
	return own, nil
}

func (s *Service) ListByContractor(ctx context.Context, actor types.Actor, contractorID types.ID) ([]Bid, error) {
	if !actor.IsStaff() && actor.ID != contractorID {
		return nil, ErrUnauthorized
	}
	return s.store.ListByContractor(ctx, contractorID)
}
