// README: Pricing calculator: distance/time fare with a minimum-wage floor.
package pricing

import (
	"context"
	"errors"
	"math"

	"kurier/internal/config"
	"kurier/internal/types"
)

var (
	ErrBadRequest     = errors.New("bad pricing request")
	ErrUnknownVehicle = errors.New("unknown vehicle type")
	// ErrBelowFloor is structurally impossible given the max() in Quote, but
	// the invariant is asserted anyway before a quote leaves the calculator.
	ErrBelowFloor = errors.New("customer price below minimum price")
)

type Service struct {
	cfg   config.PricingConfig
	store *Store
}

func NewService(cfg config.PricingConfig, store *Store) *Service {
	return &Service{cfg: cfg, store: store}
}

// Quote computes the recommended customer price and the floor price.
//
// price = max(perKm*km + perHour*hours, floor) + flat surcharges, where
// floor = max(minimumWage*hours, baseFloor).
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.DistanceKm < 0 || req.DurationMin < 0 || req.VehicleType == "" {
		return Quote{}, ErrBadRequest
	}

	rate, err := s.rateFor(ctx, req.VehicleType)
	if err != nil {
		return Quote{}, err
	}

	hours := req.DurationMin / 60.0
	distanceCents := roundCents(float64(rate.PerKmCents) * req.DistanceKm)
	timeCents := roundCents(float64(rate.PerHourCents) * hours)

	floorCents := roundCents(float64(s.cfg.MinimumWageHourlyCents) * hours)
	if floorCents < s.cfg.BaseFloorCents {
		floorCents = s.cfg.BaseFloorCents
	}

	coreCents := distanceCents + timeCents
	if coreCents < floorCents {
		coreCents = floorCents
	}

	breakdown := map[string]int64{
		"distance": distanceCents,
		"time":     timeCents,
		"floor":    floorCents,
	}

	totalCents := coreCents
	if req.LoadingHelp {
		totalCents += s.cfg.LoadingHelpCents
		breakdown["loading_help"] = s.cfg.LoadingHelpCents
	}
	if req.UnloadingHelp {
		totalCents += s.cfg.LoadingHelpCents
		breakdown["unloading_help"] = s.cfg.LoadingHelpCents
	}
	if req.LegalDelivery {
		totalCents += s.cfg.LegalDeliveryCents
		breakdown["legal_delivery"] = s.cfg.LegalDeliveryCents
	}

	if totalCents < floorCents {
		return Quote{}, ErrBelowFloor
	}

	return Quote{
		CustomerPrice: types.EUR(totalCents),
		MinimumPrice:  types.EUR(floorCents),
		Breakdown:     breakdown,
	}, nil
}

// SetRate stores an admin override for a vehicle type. Overrides win over the
// static config table on the next quote.
func (s *Service) SetRate(ctx context.Context, vehicleType string, r Rate) error {
	if vehicleType == "" || r.PerKmCents <= 0 || r.PerHourCents <= 0 {
		return ErrBadRequest
	}
	if s.store == nil {
		return ErrBadRequest
	}
	r.VehicleType = vehicleType
	return s.store.UpsertRate(ctx, r)
}

// rateFor prefers an admin-managed rate row over the static config table.
func (s *Service) rateFor(ctx context.Context, vehicleType string) (config.VehicleRate, error) {
	if s.store != nil {
		if r, err := s.store.GetRate(ctx, vehicleType); err == nil && r != nil {
			return config.VehicleRate{PerKmCents: r.PerKmCents, PerHourCents: r.PerHourCents}, nil
		}
	}
	rate, ok := s.cfg.Rates[vehicleType]
	if !ok {
		return config.VehicleRate{}, ErrUnknownVehicle
	}
	return rate, nil
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
