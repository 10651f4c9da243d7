// README: Order aggregate, status definitions, and the transition/role tables.
package order

import (
	"time"

	"kurier/internal/types"
)

type Status string

const (
	StatusNone            Status = "none"
	StatusPending         Status = "pending"
	StatusAccepted        Status = "accepted"
	StatusPickedUp        Status = "picked_up"
	StatusInTransit       Status = "in_transit"
	StatusDelivered       Status = "delivered"
	StatusPendingApproval Status = "pending_approval"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

type CancellationStatus string

const (
	CancellationNone      CancellationStatus = "none"
	CancelledByCustomer   CancellationStatus = "cancelled_by_customer"
	CancelledByContractor CancellationStatus = "cancelled_by_contractor"
)

type CancellationType string

const (
	CancellationFree       CancellationType = "free"
	CancellationChargeable CancellationType = "chargeable"
)

type Order struct {
	ID            types.ID
	CustomerID    types.ID
	ContractorID  *types.ID
	Status        Status
	StatusVersion int

	PickupAddress   string
	PickupCity      string
	PickupPostal    string
	PickupPoint     types.Point
	PickupAt        time.Time
	DeliveryAddress string
	DeliveryCity    string
	DeliveryPostal  string
	DeliveryPoint   types.Point
	DistanceKm      float64
	DurationMin     float64
	VehicleType     string

	CustomerPrice          types.Money
	ContractorPrice        *types.Money
	MinimumPriceAtCreation types.Money
	PriceIncrease          types.Money

	PickupWaitingMin    int
	DeliveryWaitingMin  int
	WaitingTimeFee      types.Money
	WaitingTimeApproved *bool

	CancellationStatus CancellationStatus
	CancellationType   CancellationType
	CancellationFee    types.Money
	FundedIncrease     types.Money
	CancelledAt        *time.Time

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CompletedAt *time.Time
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow as code. Transitions are
// one-way: nothing returns to a prior state, and the cancellation branch is
// reachable from every non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusPending:         {StatusAccepted, StatusCancelled},
	StatusAccepted:        {StatusPickedUp, StatusCancelled},
	StatusPickedUp:        {StatusInTransit, StatusDelivered, StatusCancelled},
	StatusInTransit:       {StatusDelivered, StatusCancelled},
	StatusDelivered:       {StatusPendingApproval, StatusCompleted, StatusCancelled},
	StatusPendingApproval: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitionRoles gates who may trigger each target status. The automatic
// delivered→pending_approval hop is applied internally by the service and is
// not listed here.
var transitionRoles = map[Status][]types.Role{
	StatusAccepted:  {types.RoleAdmin, types.RoleEmployee},
	StatusPickedUp:  {types.RoleContractor},
	StatusInTransit: {types.RoleContractor},
	StatusDelivered: {types.RoleContractor},
	StatusCompleted: {types.RoleAdmin, types.RoleEmployee},
	StatusCancelled: {types.RoleCustomer, types.RoleContractor, types.RoleAdmin, types.RoleEmployee},
}

func RoleMayTrigger(role types.Role, to Status) bool {
	for _, r := range transitionRoles[to] {
		if r == role {
			return true
		}
	}
	return false
}

// PayableWaitingFee is the waiting fee portion that counts toward payouts and
// invoices: zero until an admin has approved it, zero forever if rejected.
// The recorded fee itself is retained for audit either way.
func (o *Order) PayableWaitingFee() types.Money {
	if o.WaitingTimeApproved != nil && *o.WaitingTimeApproved {
		return o.WaitingTimeFee
	}
	return types.EUR(0)
}

func (o *Order) HasUndecidedWaitingFee() bool {
	return o.WaitingTimeFee.Amount > 0 && o.WaitingTimeApproved == nil
}
