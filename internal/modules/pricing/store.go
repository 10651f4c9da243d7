// README: Admin-managed vehicle rate table backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRate(ctx context.Context, vehicleType string) (*Rate, error) {
	row := s.db.QueryRow(ctx, `
		SELECT vehicle_type, per_km_cents, per_hour_cents
		FROM vehicle_rates
		WHERE vehicle_type = $1`, vehicleType,
	)
	var r Rate
	err := row.Scan(&r.VehicleType, &r.PerKmCents, &r.PerHourCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpsertRate(ctx context.Context, r Rate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_rates (vehicle_type, per_km_cents, per_hour_cents)
		VALUES ($1, $2, $3)
		ON CONFLICT (vehicle_type) DO UPDATE
		SET per_km_cents = EXCLUDED.per_km_cents,
		    per_hour_cents = EXCLUDED.per_hour_cents`,
		r.VehicleType, r.PerKmCents, r.PerHourCents,
	)
	return err
}
