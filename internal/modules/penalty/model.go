// README: Contractor penalties from chargeable cancellations.
package penalty

import (
	"time"

	"kurier/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusWaived   Status = "waived"
	StatusDeducted Status = "deducted"
)

type Penalty struct {
	ID               types.ID
	ContractorID     types.ID
	OrderID          types.ID
	Amount           types.Money
	Status           Status
	CancellationType string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
