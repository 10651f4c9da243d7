// README: CMR service: consignment note lifecycle and multi-stop delivery flow.
package cmr

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"kurier/internal/modules/order"
	"kurier/internal/types"
)

var (
	ErrValidation   = errors.New("invalid cmr input")
	ErrNotFound     = errors.New("cmr record not found")
	ErrUnauthorized = errors.New("actor not allowed")
	ErrFrozen       = errors.New("stop already confirmed")
	ErrNotSigned    = errors.New("pickup signatures missing")
)

// OrderDeliverer is the slice of the order service the delivery flow needs.
type OrderDeliverer interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*order.Order, error)
	DeliverWithFee(ctx context.Context, actor types.Actor, orderID types.ID, pickupMin, deliveryMin int, fee types.Money) error
}

type Service struct {
	store   *Store
	orders  OrderDeliverer
	waiting order.WaitingParams
	logger  *logrus.Entry
}

func NewService(store *Store, orders OrderDeliverer, waiting order.WaitingParams, logger *logrus.Entry) *Service {
	return &Service{store: store, orders: orders, waiting: waiting, logger: logger}
}

type StopInfo struct {
	ConsigneeName    string
	ConsigneeAddress string
}

type InitCommand struct {
	OrderID                 types.ID
	SenderName              string
	SenderAddress           string
	CarrierName             string
	CarrierAddress          string
	GoodsDescription        string
	Stops                   []StopInfo
	CanShareSenderSignature bool
}

type SignPickupCommand struct {
	OrderID          types.ID
	SenderSigner     string
	CarrierSigner    string
	PickupWaitingMin int
}

type SubmitStopCommand struct {
	OrderID            types.ID
	Proof              StopProof
	DeliveryWaitingMin int
	// Sender/carrier signers for groups that re-sign every stop.
	SenderSigner  string
	CarrierSigner string
}

// Init creates the consignment records for an accepted order, one per stop.
// Orders with more than one stop get a group.
func (s *Service) Init(ctx context.Context, actor types.Actor, cmd InitCommand) error {
	o, err := s.orders.Get(ctx, actor, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, o); err != nil {
		return err
	}
	if len(cmd.Stops) == 0 {
		return ErrValidation
	}
	if existing, err := s.store.ListByOrder(ctx, cmd.OrderID); err != nil {
		return err
	} else if len(existing) > 0 {
		return ErrValidation
	}

	now := time.Now()
	var groupID *types.ID
	if len(cmd.Stops) > 1 {
		g := &Group{
			ID:                      types.NewID(),
			OrderID:                 cmd.OrderID,
			TotalStops:              len(cmd.Stops),
			CanShareSenderSignature: cmd.CanShareSenderSignature,
			CreatedAt:               now,
		}
		if err := s.store.CreateGroup(ctx, g); err != nil {
			return err
		}
		groupID = &g.ID
	}

	for i, stop := range cmd.Stops {
		r := &Record{
			ID:               types.NewID(),
			OrderID:          cmd.OrderID,
			GroupID:          groupID,
			StopIndex:        i + 1,
			SenderName:       cmd.SenderName,
			SenderAddress:    cmd.SenderAddress,
			CarrierName:      cmd.CarrierName,
			CarrierAddress:   cmd.CarrierAddress,
			ConsigneeName:    stop.ConsigneeName,
			ConsigneeAddress: stop.ConsigneeAddress,
			GoodsDescription: cmd.GoodsDescription,
			CreatedAt:        now,
		}
		if err := s.store.CreateRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// SignPickup records the sender/carrier signature pair collected at pickup.
// Shared groups copy the pair to every stop's record; otherwise only the
// first stop is signed and later stops re-sign on submit.
func (s *Service) SignPickup(ctx context.Context, actor types.Actor, cmd SignPickupCommand) error {
	if cmd.SenderSigner == "" || cmd.CarrierSigner == "" {
		return ErrValidation
	}
	if cmd.PickupWaitingMin < 0 {
		return ErrValidation
	}
	o, err := s.orders.Get(ctx, actor, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, o); err != nil {
		return err
	}
	group, records, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return err
	}

	seq, err := s.sequencerFor(group, records)
	if err != nil {
		return err
	}
	if err := seq.SignPickup(); err != nil {
		return err
	}

	now := time.Now()
	shareAll := group == nil || group.CanShareSenderSignature
	for i := range records {
		if i > 0 && !shareAll {
			break
		}
		if err := s.store.SetPickupSignatures(ctx, records[i].ID, cmd.SenderSigner, cmd.CarrierSigner, now); err != nil {
			return err
		}
	}
	return s.store.SetPickupWaiting(ctx, records[0].ID, cmd.PickupWaitingMin)
}

// SubmitStop confirms the current stop. When it was the last one the parent
// order is marked delivered with the waiting fee summed over all stops.
func (s *Service) SubmitStop(ctx context.Context, actor types.Actor, cmd SubmitStopCommand) error {
	if cmd.DeliveryWaitingMin < 0 {
		return ErrValidation
	}
	o, err := s.orders.Get(ctx, actor, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, o); err != nil {
		return err
	}
	group, records, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return err
	}

	seq, err := s.sequencerFor(group, records)
	if err != nil {
		return err
	}
	current := &records[seq.StopIndex-1]
	if current.Confirmed() {
		return ErrFrozen
	}

	// Non-shared groups collect a fresh sender/carrier pair at each stop.
	resign := !current.PickupSigned()
	if resign && (cmd.SenderSigner == "" || cmd.CarrierSigner == "") {
		return ErrNotSigned
	}

	// Stage and proof are checked before anything is written, so a rejected
	// submit leaves the records untouched.
	finished, err := seq.SubmitStop(cmd.Proof)
	if err != nil {
		return err
	}
	if resign {
		if err := s.store.SetPickupSignatures(ctx, current.ID, cmd.SenderSigner, cmd.CarrierSigner, time.Now()); err != nil {
			return err
		}
	}
	if err := s.store.ConfirmStop(ctx, current.ID, cmd.Proof, cmd.DeliveryWaitingMin, time.Now()); err != nil {
		return err
	}
	if !finished {
		return nil
	}

	current.DeliveryWaitingMin = cmd.DeliveryWaitingMin
	pickupMin, deliveryMin, fee, err := s.totalWaiting(records)
	if err != nil {
		return err
	}
	return s.orders.DeliverWithFee(ctx, actor, cmd.OrderID, pickupMin, deliveryMin, fee)
}

// Progress is the reconstructed position of a delivery in its stop sequence.
type Progress struct {
	Stage     Stage
	StopIndex int
	Total     int
	Records   []Record
}

func (s *Service) Get(ctx context.Context, actor types.Actor, orderID types.ID) (*Progress, error) {
	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(actor, o); err != nil {
		return nil, err
	}
	group, records, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	seq, err := s.sequencerFor(group, records)
	if err != nil {
		return nil, err
	}
	return &Progress{Stage: seq.Stage, StopIndex: seq.StopIndex, Total: seq.Total, Records: records}, nil
}

func (s *Service) load(ctx context.Context, orderID types.ID) (*Group, []Record, error) {
	records, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNotFound
	}
	var group *Group
	if records[0].GroupID != nil {
		group, err = s.store.GetGroup(ctx, *records[0].GroupID)
		if err != nil {
			return nil, nil, err
		}
	}
	return group, records, nil
}

// sequencerFor rebuilds the stop machine from what is already persisted, so
// the flow survives process restarts mid-delivery.
func (s *Service) sequencerFor(group *Group, records []Record) (*Sequencer, error) {
	seq, err := NewSequencer(len(records))
	if err != nil {
		return nil, err
	}
	if group != nil && group.TotalStops != len(records) {
		return nil, ErrValidation
	}
	if !records[0].PickupSigned() {
		return seq, nil
	}
	seq.Stage = StageDelivery
	for _, r := range records {
		if !r.Confirmed() {
			break
		}
		if seq.StopIndex == seq.Total {
			seq.Stage = StageDone
			break
		}
		seq.StopIndex++
	}
	return seq, nil
}

// totalWaiting sums the waiting fee over the shared pickup leg and each
// stop's own delivery leg.
func (s *Service) totalWaiting(records []Record) (int, int, types.Money, error) {
	pickupMin := records[0].PickupWaitingMin
	fee, err := s.waiting.Fee(pickupMin, 0)
	if err != nil {
		return 0, 0, types.Money{}, err
	}
	deliveryMin := 0
	for _, r := range records {
		deliveryMin += r.DeliveryWaitingMin
		stopFee, err := s.waiting.Fee(0, r.DeliveryWaitingMin)
		if err != nil {
			return 0, 0, types.Money{}, err
		}
		fee = fee.Add(stopFee)
	}
	return pickupMin, deliveryMin, fee, nil
}

func (s *Service) authorize(actor types.Actor, o *order.Order) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role == types.RoleContractor && o.ContractorID != nil && *o.ContractorID == actor.ID {
		return nil
	}
	return ErrUnauthorized
}

func (s *Service) authorizeRead(actor types.Actor, o *order.Order) error {
	if actor.Role == types.RoleCustomer && actor.ID == o.CustomerID {
		return nil
	}
	return s.authorize(actor, o)
}
