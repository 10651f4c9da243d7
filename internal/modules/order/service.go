// README: Order service: state transitions, financial resolution, and persistence.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"kurier/internal/modules/location"
	"kurier/internal/modules/pricing"
	"kurier/internal/notify"
	"kurier/internal/types"
)

var (
	ErrValidation    = errors.New("invalid input")
	ErrNotFound      = errors.New("order not found")
	ErrStateConflict = errors.New("illegal state transition")
	ErrUnauthorized  = errors.New("actor not allowed")
	ErrConflict      = errors.New("concurrent update detected")
)

type Pricer interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (pricing.Quote, error)
}

// PenaltyRecorder persists a contractor cancellation penalty. Implemented by
// the penalty module.
type PenaltyRecorder interface {
	RecordCancellation(ctx context.Context, contractorID, orderID types.ID, amount types.Money, cancellationType string) error
}

type Notifier interface {
	Publish(ctx context.Context, name string, orderID types.ID, payload any)
}

type Service struct {
	store     *Store
	pricer    Pricer
	waiting   WaitingParams
	fees      FeeSchedule
	penalties PenaltyRecorder
	events    Notifier
	cache     *Cache
	logger    *logrus.Entry
}

func NewService(store *Store, pricer Pricer, waiting WaitingParams, fees FeeSchedule, logger *logrus.Entry) *Service {
	return &Service{store: store, pricer: pricer, waiting: waiting, fees: fees, logger: logger}
}

func (s *Service) WithPenalties(p PenaltyRecorder) *Service { s.penalties = p; return s }
func (s *Service) WithNotifier(n Notifier) *Service         { s.events = n; return s }
func (s *Service) WithCache(c *Cache) *Service              { s.cache = c; return s }

type CreateCommand struct {
	CustomerID      types.ID
	PickupAddress   string
	PickupCity      string
	PickupPostal    string
	PickupPoint     types.Point
	PickupAt        time.Time
	DeliveryAddress string
	DeliveryCity    string
	DeliveryPostal  string
	DeliveryPoint   types.Point
	DistanceKm      float64
	DurationMin     float64
	VehicleType     string
	LoadingHelp     bool
	UnloadingHelp   bool
	LegalDelivery   bool
}

type AcceptCommand struct {
	OrderID      types.ID
	ContractorID types.ID
	BidAmount    types.Money
}

type PickupCommand struct {
	OrderID types.ID
}

type TransitCommand struct {
	OrderID types.ID
}

type DeliverCommand struct {
	OrderID            types.ID
	PickupWaitingMin   int
	DeliveryWaitingMin int
}

type ApproveWaitingCommand struct {
	OrderID  types.ID
	Approved bool
}

type CompleteCommand struct {
	OrderID types.ID
}

type CancelCommand struct {
	OrderID        types.ID
	By             CancelledBy
	Driver         DriverStatus
	FundedIncrease types.Money
	Reason         string
	Now            time.Time
}

type IncreasePriceCommand struct {
	OrderID types.ID
	Amount  types.Money
}

// Create prices the shipment and persists the order in pending state. The
// floor price is frozen into minimum_price_at_creation and never re-derived.
func (s *Service) Create(ctx context.Context, actor types.Actor, cmd CreateCommand) (types.ID, error) {
	if !actor.IsStaff() && (actor.Role != types.RoleCustomer || actor.ID != cmd.CustomerID) {
		return "", ErrUnauthorized
	}
	if cmd.CustomerID == "" || cmd.VehicleType == "" || cmd.PickupAt.IsZero() {
		return "", ErrValidation
	}
	// A claimed route distance below the straight line between the points
	// cannot be driven.
	if cmd.DistanceKm > 0 && !cmd.PickupPoint.IsZero() && !cmd.DeliveryPoint.IsZero() {
		if cmd.DistanceKm < location.HaversineKm(cmd.PickupPoint, cmd.DeliveryPoint) {
			return "", ErrValidation
		}
	}

	quote, err := s.pricer.Quote(ctx, pricing.QuoteRequest{
		DistanceKm:    cmd.DistanceKm,
		DurationMin:   cmd.DurationMin,
		VehicleType:   cmd.VehicleType,
		LoadingHelp:   cmd.LoadingHelp,
		UnloadingHelp: cmd.UnloadingHelp,
		LegalDelivery: cmd.LegalDelivery,
	})
	if err != nil {
		return "", ErrValidation
	}
	if quote.CustomerPrice.Amount < quote.MinimumPrice.Amount {
		return "", ErrValidation
	}

	now := time.Now()
	o := &Order{
		ID:                     types.NewID(),
		CustomerID:             cmd.CustomerID,
		Status:                 StatusPending,
		StatusVersion:          0,
		PickupAddress:          cmd.PickupAddress,
		PickupCity:             cmd.PickupCity,
		PickupPostal:           cmd.PickupPostal,
		PickupPoint:            cmd.PickupPoint,
		PickupAt:               cmd.PickupAt,
		DeliveryAddress:        cmd.DeliveryAddress,
		DeliveryCity:           cmd.DeliveryCity,
		DeliveryPostal:         cmd.DeliveryPostal,
		DeliveryPoint:          cmd.DeliveryPoint,
		DistanceKm:             cmd.DistanceKm,
		DurationMin:            cmd.DurationMin,
		VehicleType:            cmd.VehicleType,
		CustomerPrice:          quote.CustomerPrice,
		MinimumPriceAtCreation: quote.MinimumPrice,
		PriceIncrease:          types.EUR(0),
		WaitingTimeFee:         types.EUR(0),
		CancellationStatus:     CancellationNone,
		CancellationFee:        types.EUR(0),
		CreatedAt:              now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  string(actor.Role),
		ActorID:    &actor.ID,
		CreatedAt:  now,
	})
	return o.ID, nil
}

// Accept fixes the contractor and the contractor price from the commission
// resolver. Triggered by an admin accepting a bid.
func (s *Service) Accept(ctx context.Context, actor types.Actor, cmd AcceptCommand) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	if cmd.ContractorID == "" || cmd.BidAmount.Amount <= 0 {
		return ErrValidation
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusAccepted) {
		return ErrStateConflict
	}

	payout := ResolvePayout(o.CustomerPrice, o.PriceIncrease, types.EUR(0))
	ok, err := s.store.AcceptOrder(ctx, o.ID, o.StatusVersion, cmd.ContractorID, payout.ContractorPrice)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendTransition(ctx, o.ID, o.Status, StatusAccepted, actor)
	s.invalidate(ctx, o.ID)
	s.publish(ctx, notify.EventOrderAccepted, o.ID, map[string]any{
		"order_id":         o.ID,
		"contractor_id":    cmd.ContractorID,
		"contractor_price": payout.ContractorPrice.Amount,
	})
	return nil
}

func (s *Service) Pickup(ctx context.Context, actor types.Actor, cmd PickupCommand) error {
	return s.contractorTransition(ctx, actor, cmd.OrderID, StatusPickedUp)
}

func (s *Service) StartTransit(ctx context.Context, actor types.Actor, cmd TransitCommand) error {
	return s.contractorTransition(ctx, actor, cmd.OrderID, StatusInTransit)
}

func (s *Service) contractorTransition(ctx context.Context, actor types.Actor, orderID types.ID, to Status) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.requireAssignedContractor(actor, o, to); err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return ErrStateConflict
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, o.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendTransition(ctx, o.ID, o.Status, to, actor)
	s.invalidate(ctx, o.ID)
	return nil
}

// Deliver records driver-reported waiting minutes, computes the waiting fee,
// and marks the order delivered. When an unapproved fee exists the order
// moves straight on into pending_approval.
func (s *Service) Deliver(ctx context.Context, actor types.Actor, cmd DeliverCommand) error {
	fee, err := s.waiting.Fee(cmd.PickupWaitingMin, cmd.DeliveryWaitingMin)
	if err != nil {
		return err
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := s.requireAssignedContractor(actor, o, StatusDelivered); err != nil {
		return err
	}
	return s.deliver(ctx, actor, o, cmd.PickupWaitingMin, cmd.DeliveryWaitingMin, fee)
}

// DeliverWithFee marks a multi-stop order delivered with a waiting fee
// already summed per stop by the CMR sequencer.
func (s *Service) DeliverWithFee(ctx context.Context, actor types.Actor, orderID types.ID, pickupMin, deliveryMin int, fee types.Money) error {
	if fee.Amount < 0 || pickupMin < 0 || deliveryMin < 0 {
		return ErrValidation
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.requireAssignedContractor(actor, o, StatusDelivered); err != nil {
		return err
	}
	return s.deliver(ctx, actor, o, pickupMin, deliveryMin, fee)
}

func (s *Service) deliver(ctx context.Context, actor types.Actor, o *Order, pickupMin, deliveryMin int, fee types.Money) error {
	if !CanTransition(o.Status, StatusDelivered) {
		return ErrStateConflict
	}
	ok, err := s.store.MarkDelivered(ctx, o.ID, o.Status, o.StatusVersion, pickupMin, deliveryMin, fee)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendTransition(ctx, o.ID, o.Status, StatusDelivered, actor)

	if fee.Amount > 0 {
		// Unapproved waiting fees gate completion behind admin review.
		ok, err = s.store.UpdateStatus(ctx, o.ID, StatusDelivered, StatusPendingApproval, o.StatusVersion+1)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		_ = s.store.AppendEvent(ctx, &Event{
			OrderID:    o.ID,
			FromStatus: StatusDelivered,
			ToStatus:   StatusPendingApproval,
			ActorType:  "system",
			CreatedAt:  time.Now(),
		})
	}
	s.invalidate(ctx, o.ID)
	s.publish(ctx, notify.EventOrderDelivered, o.ID, map[string]any{
		"order_id":         o.ID,
		"waiting_time_fee": fee.Amount,
	})
	return nil
}

// ApproveWaiting records the admin decision on a waiting-time fee. A rejected
// fee stays on the order for audit but never reaches payouts or invoices.
func (s *Service) ApproveWaiting(ctx context.Context, actor types.Actor, cmd ApproveWaitingCommand) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.Status != StatusDelivered && o.Status != StatusPendingApproval {
		return ErrStateConflict
	}
	if o.WaitingTimeFee.Amount == 0 {
		return ErrValidation
	}
	ok, err := s.store.SetWaitingApproved(ctx, o.ID, o.StatusVersion, cmd.Approved)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.invalidate(ctx, o.ID)
	return nil
}

// Complete finalizes the payout and closes the order. An undecided waiting
// fee blocks completion.
func (s *Service) Complete(ctx context.Context, actor types.Actor, cmd CompleteCommand) error {
	if !actor.IsStaff() {
		return ErrUnauthorized
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return ErrStateConflict
	}
	if o.HasUndecidedWaitingFee() {
		return ErrStateConflict
	}

	payout := ResolvePayout(o.CustomerPrice, o.PriceIncrease, o.PayableWaitingFee())
	ok, err := s.store.CompleteOrder(ctx, o.ID, o.Status, o.StatusVersion, payout.ContractorPrice)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendTransition(ctx, o.ID, o.Status, StatusCompleted, actor)
	s.invalidate(ctx, o.ID)
	return nil
}

// Cancel routes the order through the cancellation fee engine. Rejected when
// the order is terminal or already carries a cancellation.
func (s *Service) Cancel(ctx context.Context, actor types.Actor, cmd CancelCommand) error {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := s.authorizeCancel(actor, o, cmd.By); err != nil {
		return err
	}
	if Terminal(o.Status) || o.CancellationStatus != CancellationNone {
		return ErrStateConflict
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return ErrStateConflict
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	hours := o.PickupAt.Sub(now).Hours()

	price := o.CustomerPrice.Add(o.PriceIncrease)
	quote, err := s.fees.QuoteFee(cmd.By, hours, cmd.Driver, price)
	if err != nil {
		return err
	}
	if cmd.By == ByContractor {
		if err := ValidateFundedIncrease(cmd.FundedIncrease, quote.Fee); err != nil {
			return err
		}
	} else if cmd.FundedIncrease.Amount != 0 {
		return ErrValidation
	}

	ccStatus := CancelledByCustomer
	if cmd.By == ByContractor {
		ccStatus = CancelledByContractor
	}
	ccType := CancellationChargeable
	if quote.CanCancelFree {
		ccType = CancellationFree
	}

	ok, err := s.store.MarkCancelled(ctx, o.ID, o.Status, o.StatusVersion, ccStatus, ccType, quote.Fee, cmd.FundedIncrease, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendTransition(ctx, o.ID, o.Status, StatusCancelled, actor)
	s.invalidate(ctx, o.ID)
	s.publish(ctx, notify.EventCancellationCreated, o.ID, map[string]any{
		"order_id":         o.ID,
		"cancelled_by":     cmd.By,
		"fee_percent":      quote.FeePercent,
		"cancellation_fee": quote.Fee.Amount,
		"funded_increase":  cmd.FundedIncrease.Amount,
		"free":             quote.CanCancelFree,
	})

	// The funded increase is paid out of the contractor's fee, so the
	// penalty owed is the remainder.
	owed := quote.Fee.Sub(cmd.FundedIncrease)
	if cmd.By == ByContractor && owed.Amount > 0 && s.penalties != nil && o.ContractorID != nil {
		if err := s.penalties.RecordCancellation(ctx, *o.ContractorID, o.ID, owed, string(ccType)); err != nil {
			s.logger.WithError(err).WithField("order_id", o.ID).Error("record penalty")
		}
	}
	return nil
}

// IncreasePrice adds a pass-through incentive on top of the customer price.
// The new total is validated against the frozen creation-time floor.
func (s *Service) IncreasePrice(ctx context.Context, actor types.Actor, cmd IncreasePriceCommand) error {
	if cmd.Amount.Amount <= 0 {
		return ErrValidation
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && (actor.Role != types.RoleCustomer || actor.ID != o.CustomerID) {
		return ErrUnauthorized
	}
	if o.Status != StatusPending && o.Status != StatusAccepted {
		return ErrStateConflict
	}
	newIncrease := o.PriceIncrease.Add(cmd.Amount)
	if o.CustomerPrice.Add(newIncrease).Amount < o.MinimumPriceAtCreation.Amount {
		return ErrValidation
	}
	ok, err := s.store.SetPriceIncrease(ctx, o.ID, o.StatusVersion, newIncrease)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.invalidate(ctx, o.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Order, error) {
	if s.cache != nil {
		if o, err := s.cache.Get(ctx, id); err == nil && o != nil {
			if err := s.authorizeRead(actor, o); err != nil {
				return nil, err
			}
			return o, nil
		}
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(actor, o); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Put(ctx, o)
	}
	return o, nil
}

func (s *Service) ListOpen(ctx context.Context) ([]Order, error) {
	return s.store.ListByStatus(ctx, StatusPending)
}

func (s *Service) ListByCustomer(ctx context.Context, actor types.Actor, customerID types.ID) ([]Order, error) {
	if !actor.IsStaff() && actor.ID != customerID {
		return nil, ErrUnauthorized
	}
	return s.store.ListByCustomer(ctx, customerID)
}

func (s *Service) ListByContractor(ctx context.Context, actor types.Actor, contractorID types.ID) ([]Order, error) {
	if !actor.IsStaff() && actor.ID != contractorID {
		return nil, ErrUnauthorized
	}
	return s.store.ListByContractor(ctx, contractorID)
}

func (s *Service) requireAssignedContractor(actor types.Actor, o *Order, to Status) error {
	if actor.IsStaff() {
		return nil
	}
	if !RoleMayTrigger(actor.Role, to) {
		return ErrUnauthorized
	}
	if o.ContractorID == nil || *o.ContractorID != actor.ID {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) authorizeCancel(actor types.Actor, o *Order, by CancelledBy) error {
	if actor.IsStaff() {
		return nil
	}
	switch by {
	case ByCustomer:
		if actor.Role != types.RoleCustomer || actor.ID != o.CustomerID {
			return ErrUnauthorized
		}
	case ByContractor:
		if actor.Role != types.RoleContractor || o.ContractorID == nil || *o.ContractorID != actor.ID {
			return ErrUnauthorized
		}
	default:
		return ErrValidation
	}
	return nil
}

func (s *Service) authorizeRead(actor types.Actor, o *Order) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role == types.RoleCustomer && actor.ID == o.CustomerID {
		return nil
	}
	if actor.Role == types.RoleContractor && o.ContractorID != nil && *o.ContractorID == actor.ID {
		return nil
	}
	// Contractors may inspect open orders to decide on a bid.
	if actor.Role == types.RoleContractor && o.Status == StatusPending {
		return nil
	}
	return ErrUnauthorized
}

func (s *Service) appendTransition(ctx context.Context, id types.ID, from, to Status, actor types.Actor) {
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  string(actor.Role),
		ActorID:    &actor.ID,
		CreatedAt:  time.Now(),
	})
}

func (s *Service) publish(ctx context.Context, name string, orderID types.ID, payload any) {
	if s.events != nil {
		s.events.Publish(ctx, name, orderID, payload)
	}
}

func (s *Service) invalidate(ctx context.Context, id types.ID) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, id)
	}
}
