// README: Bid service tests. DB-backed, gated on KURIER_TEST_DSN.
package bid

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurier/internal/modules/order"
	"kurier/internal/types"
)

// fakeOrders stands in for the order service: a fixed set of orders and a
// record of Accept calls.
type fakeOrders struct {
	orders   map[types.ID]*order.Order
	accepted []order.AcceptCommand
}

func (f *fakeOrders) Get(_ context.Context, _ types.Actor, id types.ID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) Accept(_ context.Context, _ types.Actor, cmd order.AcceptCommand) error {
	o, ok := f.orders[cmd.OrderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != order.StatusPending {
		return order.ErrStateConflict
	}
	o.Status = order.StatusAccepted
	o.ContractorID = &cmd.ContractorID
	f.accepted = append(f.accepted, cmd)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeOrders) {
	t.Helper()

	dsn := os.Getenv("KURIER_TEST_DSN")
	if dsn == "" {
		t.Skip("KURIER_TEST_DSN not set; skipping DB-backed tests")
	}
	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(ctx, "TRUNCATE TABLE bids")
	require.NoError(t, err)

	orders := &fakeOrders{orders: map[types.ID]*order.Order{}}
	svc := NewService(NewStore(db), orders, logrus.NewEntry(logrus.New()))
	return svc, orders
}

func openOrder(f *fakeOrders, id, customerID types.ID) {
	f.orders[id] = &order.Order{
		ID:         id,
		CustomerID: customerID,
		Status:     order.StatusPending,
		PickupAt:   time.Now().Add(24 * time.Hour),
	}
}

func TestPlaceAndAcceptBid(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")

	admin := types.Actor{ID: "a1", Role: types.RoleAdmin}
	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}
	d2 := types.Actor{ID: "d2", Role: types.RoleContractor}

	b1, err := svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(8000), Message: "can do tomorrow"})
	require.NoError(t, err)
	b2, err := svc.Place(ctx, d2, PlaceCommand{OrderID: "o1", Amount: types.EUR(7500)})
	require.NoError(t, err)

	// second active bid from the same contractor is rejected
	_, err = svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(7000)})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, svc.Accept(ctx, admin, AcceptCommand{BidID: b2}))

	require.Len(t, orders.accepted, 1)
	assert.Equal(t, types.ID("d2"), orders.accepted[0].ContractorID)
	assert.Equal(t, int64(7500), orders.accepted[0].BidAmount.Amount)

	bids, err := svc.ListByOrder(ctx, admin, "o1")
	require.NoError(t, err)
	statuses := map[types.ID]Status{}
	for _, b := range bids {
		statuses[b.ID] = b.Status
	}
	assert.Equal(t, StatusAccepted, statuses[b2])
	assert.Equal(t, StatusRejected, statuses[b1])

	// a decided bid cannot be accepted again
	assert.ErrorIs(t, svc.Accept(ctx, admin, AcceptCommand{BidID: b1}), ErrDecided)
}

func TestPlaceBidValidation(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")
	orders.orders["o2"] = &order.Order{ID: "o2", CustomerID: "c1", Status: order.StatusAccepted}

	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}

	_, err := svc.Place(ctx, types.Actor{ID: "c1", Role: types.RoleCustomer}, PlaceCommand{OrderID: "o1", Amount: types.EUR(100)})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(0)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Place(ctx, d1, PlaceCommand{OrderID: "o2", Amount: types.EUR(100)})
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = svc.Place(ctx, d1, PlaceCommand{OrderID: "missing", Amount: types.EUR(100)})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestWithdrawBid(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")

	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}
	d2 := types.Actor{ID: "d2", Role: types.RoleContractor}

	id, err := svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(8000)})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Withdraw(ctx, d2, WithdrawCommand{BidID: id}), ErrUnauthorized)
	require.NoError(t, svc.Withdraw(ctx, d1, WithdrawCommand{BidID: id}))
	assert.ErrorIs(t, svc.Withdraw(ctx, d1, WithdrawCommand{BidID: id}), ErrDecided)

	// withdrawing frees the contractor to bid again
	_, err = svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(7800)})
	require.NoError(t, err)
}

func TestRejectBid(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")

	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}
	staff := types.Actor{ID: "s1", Role: types.RoleEmployee}

	id, err := svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(8000)})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Reject(ctx, d1, RejectCommand{BidID: id}), ErrUnauthorized)
	require.NoError(t, svc.Reject(ctx, staff, RejectCommand{BidID: id}))
	assert.ErrorIs(t, svc.Reject(ctx, staff, RejectCommand{BidID: id}), ErrDecided)

	// the order stays pending, rejecting a bid never touches it
	assert.Equal(t, order.StatusPending, orders.orders["o1"].Status)
	assert.Empty(t, orders.accepted)
}

func TestAcceptBidReopensOnOrderFailure(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")

	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}
	staff := types.Actor{ID: "s1", Role: types.RoleEmployee}

	id, err := svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(8000)})
	require.NoError(t, err)

	// the order moves out from under the acceptance
	orders.orders["o1"].Status = order.StatusAccepted

	err = svc.Accept(ctx, staff, AcceptCommand{BidID: id})
	assert.ErrorIs(t, err, order.ErrStateConflict)

	// the bid was rolled back to pending, so a retry is still possible
	b, err := svc.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
}

func TestListByOrderVisibility(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	openOrder(orders, "o1", "c1")

	d1 := types.Actor{ID: "d1", Role: types.RoleContractor}
	d2 := types.Actor{ID: "d2", Role: types.RoleContractor}

	_, err := svc.Place(ctx, d1, PlaceCommand{OrderID: "o1", Amount: types.EUR(8000)})
	require.NoError(t, err)
	_, err = svc.Place(ctx, d2, PlaceCommand{OrderID: "o1", Amount: types.EUR(7500)})
	require.NoError(t, err)

	all, err := svc.ListByOrder(ctx, types.Actor{ID: "c1", Role: types.RoleCustomer}, "o1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.ListByOrder(ctx, d1, "o1")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, types.ID("d1"), own[0].ContractorID)
}
