// README: Postgres persistence for bids.
package bid

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurier/internal/types"
)

const bidColumns = `id, order_id, contractor_id, bid_amount, message, status, created_at, decided_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, b *Bid) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bids (id, order_id, contractor_id, bid_amount, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.OrderID, b.ContractorID, b.Amount.Amount, b.Message, b.Status, b.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Bid, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id)
	b, err := scanBid(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ActiveByOrderAndContractor returns the contractor's pending bid on the
// order, or nil when there is none.
func (s *Store) ActiveByOrderAndContractor(ctx context.Context, orderID, contractorID types.ID) (*Bid, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE order_id = $1 AND contractor_id = $2 AND status = $3`,
		orderID, contractorID, StatusPending,
	)
	b, err := scanBid(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// Decide moves a pending bid to a final status. Rejected when the bid was
// decided in the meantime.
func (s *Store) Decide(ctx context.Context, id types.ID, to Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE bids SET status = $1, decided_at = NOW()
		WHERE id = $2 AND status = $3`,
		to, id, StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrDecided
	}
	return nil
}

// Reopen returns an accepted bid to pending; the compensation path when the
// order update that followed the acceptance failed.
func (s *Store) Reopen(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bids SET status = $1, decided_at = NULL
		WHERE id = $2 AND status = $3`,
		StatusPending, id, StatusAccepted,
	)
	return err
}

func (s *Store) RejectOthers(ctx context.Context, orderID, winnerID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bids SET status = $1, decided_at = NOW()
		WHERE order_id = $2 AND id <> $3 AND status = $4`,
		StatusRejected, orderID, winnerID, StatusPending,
	)
	return err
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID) ([]Bid, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBids(rows)
}

func (s *Store) ListByContractor(ctx context.Context, contractorID types.ID) ([]Bid, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE contractor_id = $1 ORDER BY created_at DESC`, contractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBids(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*Bid, error) {
	var (
		b         Bid
		amount    int64
		decidedAt *time.Time
	)
	err := row.Scan(&b.ID, &b.OrderID, &b.ContractorID, &amount, &b.Message, &b.Status, &b.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	b.Amount = types.EUR(amount)
	b.DecidedAt = decidedAt
	return &b, nil
}

func scanBids(rows pgx.Rows) ([]Bid, error) {
	var out []Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
