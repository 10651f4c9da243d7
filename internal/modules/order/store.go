// README: Order store backed by PostgreSQL with optimistic status locking.
package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurier/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, customer_id, contractor_id, status, status_version,
	pickup_address, pickup_city, pickup_postal, pickup_lat, pickup_lng, pickup_at,
	delivery_address, delivery_city, delivery_postal, delivery_lat, delivery_lng,
	distance_km, duration_min, vehicle_type,
	customer_price, contractor_price, minimum_price_at_creation, price_increase,
	pickup_waiting_min, delivery_waiting_min, waiting_time_fee, waiting_time_approved,
	cancellation_status, cancellation_type, cancellation_fee, funded_increase, cancelled_at,
	created_at, accepted_at, picked_up_at, delivered_at, completed_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, status, status_version,
			pickup_address, pickup_city, pickup_postal, pickup_lat, pickup_lng, pickup_at,
			delivery_address, delivery_city, delivery_postal, delivery_lat, delivery_lng,
			distance_km, duration_min, vehicle_type,
			customer_price, minimum_price_at_creation, price_increase,
			waiting_time_fee, cancellation_status, cancellation_fee, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21,
			$22, $23, $24, $25
		)`,
		string(o.ID), string(o.CustomerID), string(o.Status), o.StatusVersion,
		o.PickupAddress, o.PickupCity, o.PickupPostal, o.PickupPoint.Lat, o.PickupPoint.Lng, o.PickupAt,
		o.DeliveryAddress, o.DeliveryCity, o.DeliveryPostal, o.DeliveryPoint.Lat, o.DeliveryPoint.Lng,
		o.DistanceKm, o.DurationMin, o.VehicleType,
		o.CustomerPrice.Amount, o.MinimumPriceAtCreation.Amount, o.PriceIncrease.Amount,
		o.WaitingTimeFee.Amount, string(o.CancellationStatus), o.CancellationFee.Amount, o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus applies a plain status transition guarded by the version. A
// false return means another writer got there first.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    picked_up_at = CASE WHEN $1 = 'picked_up' THEN NOW() ELSE picked_up_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AcceptOrder(ctx context.Context, id types.ID, version int, contractorID types.ID, contractorPrice types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'accepted',
		    status_version = status_version + 1,
		    contractor_id = $1,
		    contractor_price = $2,
		    accepted_at = NOW()
		WHERE id = $3 AND status = 'pending' AND status_version = $4`,
		string(contractorID), contractorPrice.Amount, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id types.ID, from Status, version int, pickupMin, deliveryMin int, fee types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'delivered',
		    status_version = status_version + 1,
		    pickup_waiting_min = $1,
		    delivery_waiting_min = $2,
		    waiting_time_fee = $3,
		    delivered_at = NOW()
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		pickupMin, deliveryMin, fee.Amount, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetWaitingApproved(ctx context.Context, id types.ID, version int, approved bool) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET waiting_time_approved = $1,
		    status_version = status_version + 1
		WHERE id = $2 AND status_version = $3`,
		approved, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CompleteOrder(ctx context.Context, id types.ID, from Status, version int, contractorPrice types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'completed',
		    status_version = status_version + 1,
		    contractor_price = $1,
		    completed_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		contractorPrice.Amount, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkCancelled(ctx context.Context, id types.ID, from Status, version int, ccStatus CancellationStatus, ccType CancellationType, fee, funded types.Money, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'cancelled',
		    status_version = status_version + 1,
		    cancellation_status = $1,
		    cancellation_type = $2,
		    cancellation_fee = $3,
		    funded_increase = $4,
		    cancelled_at = $5
		WHERE id = $6 AND status = $7 AND status_version = $8
		  AND cancellation_status = 'none'`,
		string(ccStatus), string(ccType), fee.Amount, funded.Amount, at, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetPriceIncrease(ctx context.Context, id types.ID, version int, increase types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET price_increase = $1,
		    status_version = status_version + 1
		WHERE id = $2 AND status_version = $3`,
		increase.Amount, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idPtr(e.ActorID), e.CreatedAt,
	)
	return err
}

func (s *Store) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, string(customerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Store) ListByContractor(ctx context.Context, contractorID types.ID) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE contractor_id = $1 ORDER BY created_at DESC`, string(contractorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var contractorID sql.NullString
	var contractorPrice sql.NullInt64
	var waitingApproved sql.NullBool
	var ccType sql.NullString
	var cancelledAt, acceptedAt, pickedUpAt, deliveredAt, completedAt sql.NullTime
	var customerPrice, minimumPrice, priceIncrease, waitingFee, cancellationFee, fundedIncrease int64

	err := row.Scan(
		&o.ID, &o.CustomerID, &contractorID, &o.Status, &o.StatusVersion,
		&o.PickupAddress, &o.PickupCity, &o.PickupPostal, &o.PickupPoint.Lat, &o.PickupPoint.Lng, &o.PickupAt,
		&o.DeliveryAddress, &o.DeliveryCity, &o.DeliveryPostal, &o.DeliveryPoint.Lat, &o.DeliveryPoint.Lng,
		&o.DistanceKm, &o.DurationMin, &o.VehicleType,
		&customerPrice, &contractorPrice, &minimumPrice, &priceIncrease,
		&o.PickupWaitingMin, &o.DeliveryWaitingMin, &waitingFee, &waitingApproved,
		&o.CancellationStatus, &ccType, &cancellationFee, &fundedIncrease, &cancelledAt,
		&o.CreatedAt, &acceptedAt, &pickedUpAt, &deliveredAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	o.CustomerPrice = types.EUR(customerPrice)
	o.MinimumPriceAtCreation = types.EUR(minimumPrice)
	o.PriceIncrease = types.EUR(priceIncrease)
	o.WaitingTimeFee = types.EUR(waitingFee)
	o.CancellationFee = types.EUR(cancellationFee)
	o.FundedIncrease = types.EUR(fundedIncrease)

	if contractorID.Valid {
		id := types.ID(contractorID.String)
		o.ContractorID = &id
	}
	if contractorPrice.Valid {
		m := types.EUR(contractorPrice.Int64)
		o.ContractorPrice = &m
	}
	if waitingApproved.Valid {
		v := waitingApproved.Bool
		o.WaitingTimeApproved = &v
	}
	if ccType.Valid {
		o.CancellationType = CancellationType(ccType.String)
	}
	o.CancelledAt = timePtr(cancelledAt)
	o.AcceptedAt = timePtr(acceptedAt)
	o.PickedUpAt = timePtr(pickedUpAt)
	o.DeliveredAt = timePtr(deliveredAt)
	o.CompletedAt = timePtr(completedAt)
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
