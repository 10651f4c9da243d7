// README: Postgres persistence for penalties.
package penalty

import (
	"context"
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

func (s *Store) Create(ctx context.Context, p *Penalty) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO penalties (id, contractor_id, order_id, penalty_amount, status, cancellation_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ContractorID, p.OrderID, p.Amount.Amount, p.Status, p.CancellationType, p.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Penalty, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, contractor_id, order_id, penalty_amount, status, cancellation_type, created_at, updated_at
		FROM penalties WHERE id = $1`, id)
	p, err := scanPenalty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Settle finalizes a pending penalty. Settled penalties never move again.
func (s *Store) Settle(ctx context.Context, id types.ID, to Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE penalties SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		to, id, StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrSettled
	}
	return nil
}

func (s *Store) ListByContractor(ctx context.Context, contractorID types.ID) ([]Penalty, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, contractor_id, order_id, penalty_amount, status, cancellation_type, created_at, updated_at
		FROM penalties WHERE contractor_id = $1 ORDER BY created_at DESC`, contractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) SumPending(ctx context.Context, contractorID types.ID) (types.Money, error) {
	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(penalty_amount), 0) FROM penalties
		WHERE contractor_id = $1 AND status = $2`,
		contractorID, StatusPending,
	).Scan(&total)
	if err != nil {
		return types.Money{}, err
	}
	return types.EUR(total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPenalty(row rowScanner) (*Penalty, error) {
	var (
		p         Penalty
		amount    int64
		updatedAt *time.Time
	)
	err := row.Scan(&p.ID, &p.ContractorID, &p.OrderID, &amount, &p.Status, &p.CancellationType, &p.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Amount = types.EUR(amount)
	p.UpdatedAt = updatedAt
	return &p, nil
}
