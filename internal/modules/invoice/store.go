// README: Postgres persistence for invoices.
package invoice

import (
	"context"
	"errors"

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

func (s *Store) Create(ctx context.Context, inv *Invoice) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, customer_id, subtotal, waiting_time_fees, total, email_sent, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.CustomerID, inv.Subtotal.Amount, inv.WaitingTimeFees.Amount, inv.Total.Amount,
		inv.EmailSent, inv.PaymentStatus, inv.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, orderID := range inv.OrderIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO invoice_orders (invoice_id, order_id) VALUES ($1, $2)`, inv.ID, orderID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// BillableOrderIDs lists the customer's completed orders that no invoice has
// picked up yet.
func (s *Store) BillableOrderIDs(ctx context.Context, customerID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT o.id FROM orders o
		WHERE o.customer_id = $1 AND o.status = 'completed'
		  AND NOT EXISTS (SELECT 1 FROM invoice_orders io WHERE io.order_id = o.id)
		ORDER BY o.created_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ID
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Invoice, error) {
	var (
		inv      Invoice
		subtotal int64
		fees     int64
		total    int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, customer_id, subtotal, waiting_time_fees, total, email_sent, payment_status, created_at
		FROM invoices WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.CustomerID, &subtotal, &fees, &total, &inv.EmailSent, &inv.PaymentStatus, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	inv.Subtotal = types.EUR(subtotal)
	inv.WaitingTimeFees = types.EUR(fees)
	inv.Total = types.EUR(total)

	rows, err := s.db.Query(ctx, `SELECT order_id FROM invoice_orders WHERE invoice_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID types.ID
		if err := rows.Scan(&orderID); err != nil {
			return nil, err
		}
		inv.OrderIDs = append(inv.OrderIDs, orderID)
	}
	return &inv, rows.Err()
}

func (s *Store) MarkEmailSent(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `UPDATE invoices SET email_sent = TRUE WHERE id = $1 AND email_sent = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrSent
	}
	return nil
}

func (s *Store) SetPaymentStatus(ctx context.Context, id types.ID, to PaymentStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE invoices SET payment_status = $1 WHERE id = $2`, to, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID) ([]Invoice, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, subtotal, waiting_time_fees, total, email_sent, payment_status, created_at
		FROM invoices WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var (
			inv      Invoice
			subtotal int64
			fees     int64
			total    int64
		)
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &subtotal, &fees, &total, &inv.EmailSent, &inv.PaymentStatus, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.Subtotal = types.EUR(subtotal)
		inv.WaitingTimeFees = types.EUR(fees)
		inv.Total = types.EUR(total)
		out = append(out, inv)
	}
	return out, rows.Err()
}
