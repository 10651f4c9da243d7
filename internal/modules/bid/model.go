// README: Contractor bids on open orders.
package bid

import (
	"time"

	"kurier/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

type Bid struct {
	ID           types.ID
	OrderID      types.ID
	ContractorID types.ID
	Amount       types.Money
	Message      string
	Status       Status
	CreatedAt    time.Time
	DecidedAt    *time.Time
}

// Active reports whether the bid still competes for the order.
func (b *Bid) Active() bool {
	return b.Status == StatusPending
}
