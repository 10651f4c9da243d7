// README: Waiting-time fee calculation (per-leg allowance, 5-minute increments).
package order

import (
	"kurier/internal/config"
	"kurier/internal/types"
)

// WaitingParams holds the fee parameters: each leg (pickup and delivery) has
// its own free allowance, and the excess rounds UP to the next increment.
type WaitingParams struct {
	FreeMinutesPerLeg int
	IncrementMinutes  int
	IncrementCents    int64
}

func WaitingParamsFromConfig(cfg config.WaitingConfig) WaitingParams {
	return WaitingParams{
		FreeMinutesPerLeg: cfg.FreeMinutesPerLeg,
		IncrementMinutes:  cfg.IncrementMinutes,
		IncrementCents:    cfg.IncrementCents,
	}
}

// Fee computes the total waiting fee for the two legs. The legs never
// combine: 35 minutes at pickup and 10 at delivery charge only the pickup
// excess.
func (p WaitingParams) Fee(pickupMin, deliveryMin int) (types.Money, error) {
	if pickupMin < 0 || deliveryMin < 0 {
		return types.Money{}, ErrValidation
	}
	return types.EUR(p.legFee(pickupMin) + p.legFee(deliveryMin)), nil
}

func (p WaitingParams) legFee(minutes int) int64 {
	over := minutes - p.FreeMinutesPerLeg
	if over <= 0 {
		return 0
	}
	increments := (over + p.IncrementMinutes - 1) / p.IncrementMinutes
	return int64(increments) * p.IncrementCents
}
