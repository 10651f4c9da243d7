// README: Cancellation fee engine (customer two-tier rule, contractor AGB step table).
package order

import (
	"fmt"

	"kurier/internal/config"
	"kurier/internal/types"
)

type DriverStatus string

const (
	DriverNotStarted DriverStatus = "not_started"
	DriverEnRoute    DriverStatus = "en_route"
	DriverPastPickup DriverStatus = "past_pickup"
)

type CancelledBy string

const (
	ByCustomer   CancelledBy = "customer"
	ByContractor CancelledBy = "contractor"
)

// FeeStep is one row of the contractor schedule: Percent applies when the
// cancellation happens at least AtLeastHours before pickup.
type FeeStep struct {
	AtLeastHours float64
	Percent      int64
}

type FeeSchedule struct {
	CustomerFreeHours         float64
	CustomerNotStartedPercent int64
	CustomerStartedPercent    int64
	Contractor                []FeeStep
}

// ScheduleFromConfig builds and validates the fee schedule. The contractor
// table is configuration data (the breakpoints come from the AGB); the
// engine only requires it to be a monotonic step table with no free tier.
func ScheduleFromConfig(cfg config.CancellationConfig) (FeeSchedule, error) {
	s := FeeSchedule{
		CustomerFreeHours:         cfg.CustomerFreeHours,
		CustomerNotStartedPercent: cfg.CustomerNotStartedPercent,
		CustomerStartedPercent:    cfg.CustomerStartedPercent,
	}
	for _, step := range cfg.ContractorTable {
		s.Contractor = append(s.Contractor, FeeStep{AtLeastHours: step.AtLeastHours, Percent: step.Percent})
	}
	if err := s.validate(); err != nil {
		return FeeSchedule{}, err
	}
	return s, nil
}

func (s FeeSchedule) validate() error {
	if len(s.Contractor) == 0 {
		return fmt.Errorf("contractor fee table is empty")
	}
	// Sort descending by AtLeastHours so lookup walks from most to least notice.
	for i := 1; i < len(s.Contractor); i++ {
		if s.Contractor[i].AtLeastHours >= s.Contractor[i-1].AtLeastHours {
			return fmt.Errorf("contractor fee table must be sorted by descending hours")
		}
		if s.Contractor[i].Percent <= s.Contractor[i-1].Percent {
			return fmt.Errorf("contractor fee table percents must increase as notice shrinks")
		}
	}
	last := s.Contractor[len(s.Contractor)-1]
	if last.AtLeastHours != 0 {
		return fmt.Errorf("contractor fee table must end with an at_least_hours=0 step")
	}
	for _, step := range s.Contractor {
		if step.Percent <= 0 || step.Percent > 100 {
			return fmt.Errorf("contractor fee percent %d out of range", step.Percent)
		}
	}
	return nil
}

type CancellationQuote struct {
	FeePercent    int64
	Fee           types.Money
	CanCancelFree bool
}

// QuoteFee computes the cancellation penalty.
//
// Customer schedule: >= free-hours notice is free; with less notice the fee
// is 50% while the driver has not started, 75% once the order is under way.
// Contractor schedule: always chargeable, percent taken from the step table.
func (s FeeSchedule) QuoteFee(by CancelledBy, hoursUntilPickup float64, driver DriverStatus, price types.Money) (CancellationQuote, error) {
	if hoursUntilPickup < 0 {
		hoursUntilPickup = 0
	}
	switch by {
	case ByCustomer:
		if hoursUntilPickup >= s.CustomerFreeHours {
			return CancellationQuote{FeePercent: 0, Fee: types.EUR(0), CanCancelFree: true}, nil
		}
		pct := s.CustomerStartedPercent
		if driver == DriverNotStarted {
			pct = s.CustomerNotStartedPercent
		}
		return CancellationQuote{FeePercent: pct, Fee: price.Percent(pct)}, nil
	case ByContractor:
		for _, step := range s.Contractor {
			if hoursUntilPickup >= step.AtLeastHours {
				return CancellationQuote{FeePercent: step.Percent, Fee: price.Percent(step.Percent)}, nil
			}
		}
		// validate() guarantees a 0-hour step, so this is unreachable.
		return CancellationQuote{}, fmt.Errorf("no contractor fee step matched %.2fh", hoursUntilPickup)
	}
	return CancellationQuote{}, ErrValidation
}

// ValidateFundedIncrease enforces the cap on a replacement-order price
// increase funded from a contractor cancellation fee.
func ValidateFundedIncrease(increase, fee types.Money) error {
	if increase.Amount < 0 || increase.Amount > fee.Amount {
		return ErrValidation
	}
	return nil
}
