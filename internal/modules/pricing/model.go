// README: Pricing request/quote definitions.
package pricing

import "kurier/internal/types"

type QuoteRequest struct {
	DistanceKm    float64
	DurationMin   float64
	VehicleType   string
	LoadingHelp   bool
	UnloadingHelp bool
	LegalDelivery bool
}

// Quote carries the recommended customer price and the wage-compliant floor.
// MinimumPrice is frozen into the order at creation time; later price
// increases are validated against the frozen value, never a re-derived one.
type Quote struct {
	CustomerPrice types.Money
	MinimumPrice  types.Money
	Breakdown     map[string]int64
}

type Rate struct {
	VehicleType  string
	PerKmCents   int64
	PerHourCents int64
}
