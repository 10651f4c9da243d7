// README: CMR consignment records and multi-stop groups.
package cmr

import (
	"time"

	"kurier/internal/types"
)

// Signature is one signer line on the consignment note.
type Signature struct {
	Signer   string
	SignedAt *time.Time
}

func (s Signature) Present() bool {
	return s.Signer != "" && s.SignedAt != nil
}

// Record is the consignment note for one stop. Created at order acceptance,
// mutated by signature events, and frozen once its stop is confirmed.
type Record struct {
	ID        types.ID
	OrderID   types.ID
	GroupID   *types.ID
	StopIndex int

	SenderName       string
	SenderAddress    string
	CarrierName      string
	CarrierAddress   string
	ConsigneeName    string
	ConsigneeAddress string
	GoodsDescription string

	SenderSignature    Signature
	CarrierSignature   Signature
	ConsigneeSignature Signature

	NotHome  bool
	PhotoRef string

	PickupWaitingMin   int
	DeliveryWaitingMin int

	CreatedAt time.Time
}

// Confirmed reports whether the stop has its delivery proof: a consignee
// signature, or a not-home flag backed by a photo.
func (r *Record) Confirmed() bool {
	if r.NotHome {
		return r.PhotoRef != ""
	}
	return r.ConsigneeSignature.Present()
}

// PickupSigned reports whether the sender/carrier pair has signed this record.
func (r *Record) PickupSigned() bool {
	return r.SenderSignature.Present() && r.CarrierSignature.Present()
}

// Group ties the per-stop records of a multi-stop order together.
type Group struct {
	ID                      types.ID
	OrderID                 types.ID
	TotalStops              int
	CanShareSenderSignature bool
	CreatedAt               time.Time
}
