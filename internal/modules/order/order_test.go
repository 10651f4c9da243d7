// README: Order service tests (flow + invalid requests). DB-backed tests are
// gated on KURIER_TEST_DSN.
package order

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"kurier/internal/config"
	"kurier/internal/modules/pricing"
	"kurier/internal/types"
)

var (
	adminActor = types.Actor{ID: "admin1", Role: types.RoleAdmin}
)

func customerActor(id types.ID) types.Actor {
	return types.Actor{ID: id, Role: types.RoleCustomer}
}

func contractorActor(id types.ID) types.Actor {
	return types.Actor{ID: id, Role: types.RoleContractor}
}

type recordedPenalty struct {
	ContractorID types.ID
	OrderID      types.ID
	Amount       types.Money
}

type penaltyRecorderStub struct {
	mu       sync.Mutex
	recorded []recordedPenalty
}

func (p *penaltyRecorderStub) RecordCancellation(_ context.Context, contractorID, orderID types.ID, amount types.Money, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorded = append(p.recorded, recordedPenalty{ContractorID: contractorID, OrderID: orderID, Amount: amount})
	return nil
}

func TestOrderFlowHappyPath(t *testing.T) {
	svc, penalties := newTestService(t)
	_ = penalties
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_happy")
	assertStatus(t, svc, orderID, StatusPending)

	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	assertStatus(t, svc, orderID, StatusAccepted)

	if err := svc.Pickup(ctx, contractorActor("d1"), PickupCommand{OrderID: orderID}); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	assertStatus(t, svc, orderID, StatusPickedUp)

	if err := svc.StartTransit(ctx, contractorActor("d1"), TransitCommand{OrderID: orderID}); err != nil {
		t.Fatalf("transit: %v", err)
	}
	assertStatus(t, svc, orderID, StatusInTransit)

	if err := svc.Deliver(ctx, contractorActor("d1"), DeliverCommand{OrderID: orderID}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	// no waiting fee recorded, so no approval gate
	assertStatus(t, svc, orderID, StatusDelivered)

	if err := svc.Complete(ctx, adminActor, CompleteCommand{OrderID: orderID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertStatus(t, svc, orderID, StatusCompleted)

	o := mustGet(t, svc, orderID)
	if o.ContractorPrice == nil {
		t.Fatal("expected contractor price to be fixed")
	}
	want := o.CustomerPrice.Percent(ContractorSharePercent).Amount
	if o.ContractorPrice.Amount != want {
		t.Fatalf("contractor price = %d, want %d", o.ContractorPrice.Amount, want)
	}
	if o.CustomerPrice.Amount < o.MinimumPriceAtCreation.Amount {
		t.Fatalf("customer price %d below frozen floor %d", o.CustomerPrice.Amount, o.MinimumPriceAtCreation.Amount)
	}
}

func TestOrderWaitingFeeApprovalGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_waiting")
	mustRunToPickedUp(t, svc, orderID, "d1")

	// 40 minutes at pickup: 10 over the allowance, two increments.
	if err := svc.Deliver(ctx, contractorActor("d1"), DeliverCommand{OrderID: orderID, PickupWaitingMin: 40}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	assertStatus(t, svc, orderID, StatusPendingApproval)

	o := mustGet(t, svc, orderID)
	if o.WaitingTimeFee.Amount != 600 {
		t.Fatalf("waiting fee = %d, want 600", o.WaitingTimeFee.Amount)
	}

	// completion is blocked while the fee is undecided
	if err := svc.Complete(ctx, adminActor, CompleteCommand{OrderID: orderID}); err != ErrStateConflict {
		t.Fatalf("complete with undecided fee: expected ErrStateConflict, got %v", err)
	}

	if err := svc.ApproveWaiting(ctx, adminActor, ApproveWaitingCommand{OrderID: orderID, Approved: true}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.Complete(ctx, adminActor, CompleteCommand{OrderID: orderID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	o = mustGet(t, svc, orderID)
	want := o.CustomerPrice.Percent(ContractorSharePercent).Amount + 510 // 0.85 * 6 EUR
	if o.ContractorPrice == nil || o.ContractorPrice.Amount != want {
		t.Fatalf("contractor price = %v, want %d", o.ContractorPrice, want)
	}
}

func TestOrderWaitingFeeRejectedKeptForAudit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_waiting_rej")
	mustRunToPickedUp(t, svc, orderID, "d1")

	if err := svc.Deliver(ctx, contractorActor("d1"), DeliverCommand{OrderID: orderID, DeliveryWaitingMin: 50}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := svc.ApproveWaiting(ctx, adminActor, ApproveWaitingCommand{OrderID: orderID, Approved: false}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.Complete(ctx, adminActor, CompleteCommand{OrderID: orderID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	o := mustGet(t, svc, orderID)
	// rejected fee excluded from the payout but retained on the record
	if o.ContractorPrice.Amount != o.CustomerPrice.Percent(ContractorSharePercent).Amount {
		t.Fatalf("contractor price = %d includes rejected fee", o.ContractorPrice.Amount)
	}
	if o.WaitingTimeFee.Amount != 1200 {
		t.Fatalf("audit fee = %d, want 1200", o.WaitingTimeFee.Amount)
	}
}

func TestOrderInvalidTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_invalid")

	if err := svc.Pickup(ctx, contractorActor("d1"), PickupCommand{OrderID: orderID}); err != ErrUnauthorized {
		t.Fatalf("pickup before accept: expected ErrUnauthorized (not assigned), got %v", err)
	}
	if err := svc.Complete(ctx, adminActor, CompleteCommand{OrderID: orderID}); err != ErrStateConflict {
		t.Fatalf("complete pending order: expected ErrStateConflict, got %v", err)
	}

	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Deliver(ctx, contractorActor("d1"), DeliverCommand{OrderID: orderID}); err != ErrStateConflict {
		t.Fatalf("deliver before pickup: expected ErrStateConflict, got %v", err)
	}
	// accepting twice must fail
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d2", BidAmount: types.EUR(1700)}); err != ErrStateConflict {
		t.Fatalf("double accept: expected ErrStateConflict, got %v", err)
	}
}

func TestOrderRoleGates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_roles")

	if err := svc.Accept(ctx, contractorActor("d1"), AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != ErrUnauthorized {
		t.Fatalf("contractor accepting own bid: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Pickup(ctx, customerActor("c_roles"), PickupCommand{OrderID: orderID}); err != ErrUnauthorized {
		t.Fatalf("customer pickup: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.Pickup(ctx, contractorActor("d2"), PickupCommand{OrderID: orderID}); err != ErrUnauthorized {
		t.Fatalf("other contractor pickup: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.ApproveWaiting(ctx, contractorActor("d1"), ApproveWaitingCommand{OrderID: orderID, Approved: true}); err != ErrUnauthorized {
		t.Fatalf("contractor approving waiting fee: expected ErrUnauthorized, got %v", err)
	}
}

func TestOrderCancelFreeTier(t *testing.T) {
	svc, penalties := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_free", time.Now().Add(48*time.Hour))

	err := svc.Cancel(ctx, customerActor("c_free"), CancelCommand{
		OrderID: orderID,
		By:      ByCustomer,
		Driver:  DriverNotStarted,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	o := mustGet(t, svc, orderID)
	if o.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", o.Status)
	}
	if o.CancellationType != CancellationFree || o.CancellationFee.Amount != 0 {
		t.Fatalf("expected free cancellation, got type=%s fee=%d", o.CancellationType, o.CancellationFee.Amount)
	}
	if len(penalties.recorded) != 0 {
		t.Fatalf("customer cancellation must not create a penalty")
	}
}

func TestOrderCancelChargeable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// pickup in 10 hours, driver already en route: 75%
	orderID := mustCreateOrderAt(t, svc, "c_charge", time.Now().Add(10*time.Hour))
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err := svc.Cancel(ctx, customerActor("c_charge"), CancelCommand{
		OrderID: orderID,
		By:      ByCustomer,
		Driver:  DriverEnRoute,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	o := mustGet(t, svc, orderID)
	if o.CancellationType != CancellationChargeable {
		t.Fatalf("expected chargeable cancellation")
	}
	if want := o.CustomerPrice.Percent(75).Amount; o.CancellationFee.Amount != want {
		t.Fatalf("fee = %d, want %d", o.CancellationFee.Amount, want)
	}
	if o.CancellationStatus != CancelledByCustomer {
		t.Fatalf("cancellation status = %s", o.CancellationStatus)
	}

	// a second cancellation attempt is rejected
	if err := svc.Cancel(ctx, adminActor, CancelCommand{OrderID: orderID, By: ByCustomer, Driver: DriverEnRoute}); err != ErrStateConflict {
		t.Fatalf("double cancel: expected ErrStateConflict, got %v", err)
	}
}

func TestOrderContractorCancelCreatesPenalty(t *testing.T) {
	svc, penalties := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_penalty", time.Now().Add(8*time.Hour))
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d_cancel", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err := svc.Cancel(ctx, contractorActor("d_cancel"), CancelCommand{
		OrderID: orderID,
		By:      ByContractor,
		Driver:  DriverNotStarted,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	o := mustGet(t, svc, orderID)
	// 8 hours of notice lands in the 6h step: 75%
	if want := o.CustomerPrice.Percent(75).Amount; o.CancellationFee.Amount != want {
		t.Fatalf("fee = %d, want %d", o.CancellationFee.Amount, want)
	}
	if o.CancellationStatus != CancelledByContractor {
		t.Fatalf("cancellation status = %s", o.CancellationStatus)
	}
	if len(penalties.recorded) != 1 {
		t.Fatalf("expected 1 penalty, got %d", len(penalties.recorded))
	}
	if penalties.recorded[0].Amount.Amount != o.CancellationFee.Amount {
		t.Fatalf("penalty amount = %d, want %d", penalties.recorded[0].Amount.Amount, o.CancellationFee.Amount)
	}
}

func TestOrderContractorCancelFundedIncreaseCap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_capped", time.Now().Add(8*time.Hour))
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	o := mustGet(t, svc, orderID)
	fee := o.CustomerPrice.Percent(75)

	err := svc.Cancel(ctx, contractorActor("d1"), CancelCommand{
		OrderID:        orderID,
		By:             ByContractor,
		Driver:         DriverNotStarted,
		FundedIncrease: types.EUR(fee.Amount + 1),
	})
	if err != ErrValidation {
		t.Fatalf("increase above fee: expected ErrValidation, got %v", err)
	}
	assertStatus(t, svc, orderID, StatusAccepted)
}

func TestOrderContractorCancelFundedIncreaseNetsPenalty(t *testing.T) {
	svc, penalties := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_funded", time.Now().Add(8*time.Hour))
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d_fund", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err := svc.Cancel(ctx, contractorActor("d_fund"), CancelCommand{
		OrderID:        orderID,
		By:             ByContractor,
		Driver:         DriverNotStarted,
		FundedIncrease: types.EUR(500),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	o := mustGet(t, svc, orderID)
	if o.FundedIncrease.Amount != 500 {
		t.Fatalf("funded increase = %d, want 500", o.FundedIncrease.Amount)
	}
	// the funded part comes out of the fee, the penalty is the remainder
	if len(penalties.recorded) != 1 {
		t.Fatalf("expected 1 penalty, got %d", len(penalties.recorded))
	}
	want := o.CancellationFee.Amount - 500
	if penalties.recorded[0].Amount.Amount != want {
		t.Fatalf("penalty amount = %d, want %d", penalties.recorded[0].Amount.Amount, want)
	}
}

func TestOrderContractorCancelFullyFundedNoPenalty(t *testing.T) {
	svc, penalties := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_full", time.Now().Add(8*time.Hour))
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d_full", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	o := mustGet(t, svc, orderID)
	fee := o.CustomerPrice.Percent(75)

	err := svc.Cancel(ctx, contractorActor("d_full"), CancelCommand{
		OrderID:        orderID,
		By:             ByContractor,
		Driver:         DriverNotStarted,
		FundedIncrease: fee,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(penalties.recorded) != 0 {
		t.Fatalf("fully funded cancellation must not record a penalty, got %d", len(penalties.recorded))
	}
}

func TestOrderIncreasePrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_incr")

	if err := svc.IncreasePrice(ctx, customerActor("c_incr"), IncreasePriceCommand{OrderID: orderID, Amount: types.EUR(1000)}); err != nil {
		t.Fatalf("increase: %v", err)
	}
	o := mustGet(t, svc, orderID)
	if o.PriceIncrease.Amount != 1000 {
		t.Fatalf("price increase = %d, want 1000", o.PriceIncrease.Amount)
	}

	// the increase passes through to the contractor untouched
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: "d1", BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	o = mustGet(t, svc, orderID)
	want := o.CustomerPrice.Percent(ContractorSharePercent).Amount + 1000
	if o.ContractorPrice.Amount != want {
		t.Fatalf("contractor price = %d, want %d", o.ContractorPrice.Amount, want)
	}

	if err := svc.IncreasePrice(ctx, customerActor("c_incr"), IncreasePriceCommand{OrderID: orderID, Amount: types.EUR(0)}); err != ErrValidation {
		t.Fatalf("zero increase: expected ErrValidation, got %v", err)
	}
	if err := svc.IncreasePrice(ctx, customerActor("other"), IncreasePriceCommand{OrderID: orderID, Amount: types.EUR(100)}); err != ErrUnauthorized {
		t.Fatalf("foreign customer: expected ErrUnauthorized, got %v", err)
	}
}

func TestConcurrentAcceptSameOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_concurrent")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		contractorID := types.ID(fmt.Sprintf("d%d", i))
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			errs <- svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: did, BidAmount: types.EUR(1800)})
		}(contractorID)
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrStateConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	o := mustGet(t, svc, orderID)
	if o.Status != StatusAccepted || o.ContractorID == nil {
		t.Fatalf("unexpected final state: %s", o.Status)
	}
}

func TestConcurrentPriceIncreases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_incr_race")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.IncreasePrice(ctx, customerActor("c_incr_race"), IncreasePriceCommand{OrderID: orderID, Amount: types.EUR(1000)})
		}()
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success < 1 {
		t.Fatal("expected at least one increase to land")
	}

	// every successful write is reflected in the total; losers got ErrConflict
	// instead of silently overwriting a winner
	o := mustGet(t, svc, orderID)
	if want := int64(success) * 1000; o.PriceIncrease.Amount != want {
		t.Fatalf("price increase = %d, want %d (%d successes)", o.PriceIncrease.Amount, want, success)
	}
}

func TestOrderCreateRejectsImpossibleDistance(t *testing.T) {
	pricingCfg := config.PricingConfig{
		Rates:                  map[string]config.VehicleRate{"car": {PerKmCents: 95, PerHourCents: 2400}},
		MinimumWageHourlyCents: 1282,
		BaseFloorCents:         1500,
	}
	logger := logrus.NewEntry(logrus.New())
	svc := NewService(nil, pricing.NewService(pricingCfg, nil), testWaitingParams(), FeeSchedule{}, logger)

	// Berlin to Cologne is roughly 477 km as the crow flies; a 100 km route
	// between those coordinates cannot exist.
	_, err := svc.Create(context.Background(), customerActor("c1"), CreateCommand{
		CustomerID:    "c1",
		PickupAt:      time.Now().Add(48 * time.Hour),
		PickupPoint:   types.Point{Lat: 52.5200, Lng: 13.4050},
		DeliveryPoint: types.Point{Lat: 50.9375, Lng: 6.9603},
		DistanceKm:    100,
		DurationMin:   90,
		VehicleType:   "car",
	})
	if err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConcurrentApproveVsCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := mustCreateOrderAt(t, svc, "c_race", time.Now().Add(4*time.Hour))
	mustRunToPickedUp(t, svc, orderID, "d1")
	if err := svc.Deliver(ctx, contractorActor("d1"), DeliverCommand{OrderID: orderID, PickupWaitingMin: 45}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	assertStatus(t, svc, orderID, StatusPendingApproval)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- svc.ApproveWaiting(ctx, adminActor, ApproveWaitingCommand{OrderID: orderID, Approved: true})
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- svc.Cancel(ctx, adminActor, CancelCommand{OrderID: orderID, By: ByCustomer, Driver: DriverPastPickup})
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && err != ErrConflict && err != ErrStateConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// whatever the interleaving, the stored state is internally consistent
	o := mustGet(t, svc, orderID)
	if o.Status == StatusCancelled && o.CancellationStatus == CancellationNone {
		t.Fatal("cancelled order without cancellation status")
	}
}

func mustCreateOrder(t *testing.T, svc *Service, customerID types.ID) types.ID {
	t.Helper()
	return mustCreateOrderAt(t, svc, customerID, time.Now().Add(48*time.Hour))
}

func mustCreateOrderAt(t *testing.T, svc *Service, customerID types.ID, pickupAt time.Time) types.ID {
	t.Helper()
	id, err := svc.Create(context.Background(), customerActor(customerID), CreateCommand{
		CustomerID:      customerID,
		PickupAddress:   "Alexanderplatz 1",
		PickupCity:      "Berlin",
		PickupPostal:    "10178",
		PickupAt:        pickupAt,
		DeliveryAddress: "Domplatte 4",
		DeliveryCity:    "Köln",
		DeliveryPostal:  "50667",
		DistanceKm:      10,
		DurationMin:     30,
		VehicleType:     "car",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}

func mustRunToPickedUp(t *testing.T, svc *Service, orderID types.ID, contractorID types.ID) {
	t.Helper()
	ctx := context.Background()
	if err := svc.Accept(ctx, adminActor, AcceptCommand{OrderID: orderID, ContractorID: contractorID, BidAmount: types.EUR(1800)}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Pickup(ctx, contractorActor(contractorID), PickupCommand{OrderID: orderID}); err != nil {
		t.Fatalf("pickup: %v", err)
	}
}

func mustGet(t *testing.T, svc *Service, orderID types.ID) *Order {
	t.Helper()
	o, err := svc.Get(context.Background(), adminActor, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return o
}

func assertStatus(t *testing.T, svc *Service, orderID types.ID, want Status) {
	t.Helper()
	if got := mustGet(t, svc, orderID).Status; got != want {
		t.Fatalf("expected status %s, got %s", want, got)
	}
}

func newTestService(t *testing.T) (*Service, *penaltyRecorderStub) {
	t.Helper()

	store := setupTestStore(t)

	pricingCfg := config.PricingConfig{
		Rates:                  map[string]config.VehicleRate{"car": {PerKmCents: 95, PerHourCents: 2400}},
		MinimumWageHourlyCents: 1282,
		BaseFloorCents:         1500,
		LoadingHelpCents:       600,
		LegalDeliveryCents:     500,
	}
	fees, err := ScheduleFromConfig(config.CancellationConfig{
		CustomerFreeHours:         24,
		CustomerNotStartedPercent: 50,
		CustomerStartedPercent:    75,
		ContractorTable: []config.CancellationStep{
			{AtLeastHours: 24, Percent: 25},
			{AtLeastHours: 6, Percent: 75},
			{AtLeastHours: 0, Percent: 100},
		},
	})
	if err != nil {
		t.Fatalf("fee schedule: %v", err)
	}

	penalties := &penaltyRecorderStub{}
	logger := logrus.NewEntry(logrus.New())
	svc := NewService(store, pricing.NewService(pricingCfg, nil), testWaitingParams(), fees, logger).
		WithPenalties(penalties)
	return svc, penalties
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("KURIER_TEST_DSN")
	if dsn == "" {
		t.Skip("KURIER_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_state_events, orders, bids, penalties, cmr_records, cmr_groups"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	for _, name := range []string{"0001_init.sql", "0002_cmr.sql"} {
		path := filepath.Join(root, "migrations", name)
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cleaned := stripSQLComments(string(content))
		for _, stmt := range splitSQL(cleaned) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
