// README: Postgres persistence for CMR groups and records.
package cmr

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurier/internal/types"
)

const recordColumns = `id, order_id, group_id, stop_index,
	sender_name, sender_address, carrier_name, carrier_address,
	consignee_name, consignee_address, goods_description,
	sender_signer, sender_signed_at, carrier_signer, carrier_signed_at,
	consignee_signer, consignee_signed_at,
	not_home, photo_ref, pickup_waiting_min, delivery_waiting_min, created_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateGroup(ctx context.Context, g *Group) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cmr_groups (id, order_id, total_stops, can_share_sender_signature, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.OrderID, g.TotalStops, g.CanShareSenderSignature, g.CreatedAt,
	)
	return err
}

func (s *Store) GetGroup(ctx context.Context, id types.ID) (*Group, error) {
	var g Group
	err := s.db.QueryRow(ctx, `
		SELECT id, order_id, total_stops, can_share_sender_signature, created_at
		FROM cmr_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.OrderID, &g.TotalStops, &g.CanShareSenderSignature, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateRecord(ctx context.Context, r *Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cmr_records (
			id, order_id, group_id, stop_index,
			sender_name, sender_address, carrier_name, carrier_address,
			consignee_name, consignee_address, goods_description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.OrderID, r.GroupID, r.StopIndex,
		r.SenderName, r.SenderAddress, r.CarrierName, r.CarrierAddress,
		r.ConsigneeName, r.ConsigneeAddress, r.GoodsDescription, r.CreatedAt,
	)
	return err
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+recordColumns+` FROM cmr_records
		WHERE order_id = $1 ORDER BY stop_index`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) SetPickupSignatures(ctx context.Context, recordID types.ID, senderSigner, carrierSigner string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE cmr_records
		SET sender_signer = $1, sender_signed_at = $2,
		    carrier_signer = $3, carrier_signed_at = $2
		WHERE id = $4`,
		senderSigner, at, carrierSigner, recordID,
	)
	return err
}

func (s *Store) SetPickupWaiting(ctx context.Context, recordID types.ID, minutes int) error {
	_, err := s.db.Exec(ctx, `UPDATE cmr_records SET pickup_waiting_min = $1 WHERE id = $2`, minutes, recordID)
	return err
}

// ConfirmStop writes the delivery proof. The guard on the proof columns keeps
// a confirmed record immutable.
func (s *Store) ConfirmStop(ctx context.Context, recordID types.ID, proof StopProof, deliveryWaitingMin int, at time.Time) error {
	var (
		signer   *string
		signedAt *time.Time
		photoRef *string
	)
	if proof.NotHome {
		photoRef = &proof.PhotoRef
	} else {
		signer = &proof.ConsigneeSigner
		signedAt = &at
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE cmr_records
		SET consignee_signer = $1, consignee_signed_at = $2,
		    not_home = $3, photo_ref = $4, delivery_waiting_min = $5
		WHERE id = $6
		  AND consignee_signer IS NULL
		  AND (not_home = FALSE OR photo_ref IS NULL)`,
		signer, signedAt, proof.NotHome, photoRef, deliveryWaitingMin, recordID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrFrozen
	}
	return nil
}

func scanRecord(rows pgx.Rows) (*Record, error) {
	var (
		r        Record
		photoRef *string

		senderSigner, carrierSigner, consigneeSigner *string
	)
	err := rows.Scan(
		&r.ID, &r.OrderID, &r.GroupID, &r.StopIndex,
		&r.SenderName, &r.SenderAddress, &r.CarrierName, &r.CarrierAddress,
		&r.ConsigneeName, &r.ConsigneeAddress, &r.GoodsDescription,
		&senderSigner, &r.SenderSignature.SignedAt,
		&carrierSigner, &r.CarrierSignature.SignedAt,
		&consigneeSigner, &r.ConsigneeSignature.SignedAt,
		&r.NotHome, &photoRef, &r.PickupWaitingMin, &r.DeliveryWaitingMin, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if senderSigner != nil {
		r.SenderSignature.Signer = *senderSigner
	}
	if carrierSigner != nil {
		r.CarrierSignature.Signer = *carrierSigner
	}
	if consigneeSigner != nil {
		r.ConsigneeSignature.Signer = *consigneeSigner
	}
	if photoRef != nil {
		r.PhotoRef = *photoRef
	}
	return &r, nil
}
