package pricing

import (
	"context"
	"testing"

	"kurier/internal/config"
)

func testConfig() config.PricingConfig {
	return config.PricingConfig{
		Rates: map[string]config.VehicleRate{
			"car": {PerKmCents: 95, PerHourCents: 2400},
			"van": {PerKmCents: 120, PerHourCents: 3000},
		},
		MinimumWageHourlyCents: 1282,
		BaseFloorCents:         1500,
		LoadingHelpCents:       600,
		LegalDeliveryCents:     500,
	}
}

func TestService_Quote(t *testing.T) {
	tests := []struct {
		name      string
		req       QuoteRequest
		wantTotal int64
		wantFloor int64
	}{
		{
			name:      "distance and time fare (10km, 30min, car)",
			req:       QuoteRequest{DistanceKm: 10, DurationMin: 30, VehicleType: "car"},
			wantTotal: 950 + 1200, // 95*10 + 2400*0.5
			wantFloor: 1500,
		},
		{
			name:      "short trip clamps to base floor",
			req:       QuoteRequest{DistanceKm: 2, DurationMin: 10, VehicleType: "car"},
			wantTotal: 1500, // 190 + 400 < floor
			wantFloor: 1500,
		},
		{
			name:      "loading and unloading help add 6 EUR each",
			req:       QuoteRequest{DistanceKm: 10, DurationMin: 30, VehicleType: "car", LoadingHelp: true, UnloadingHelp: true},
			wantTotal: 2150 + 600 + 600,
			wantFloor: 1500,
		},
		{
			name:      "legal delivery surcharge",
			req:       QuoteRequest{DistanceKm: 10, DurationMin: 30, VehicleType: "car", LegalDelivery: true},
			wantTotal: 2150 + 500,
			wantFloor: 1500,
		},
		{
			name:      "van rates",
			req:       QuoteRequest{DistanceKm: 20, DurationMin: 60, VehicleType: "van"},
			wantTotal: 2400 + 3000,
			wantFloor: 1500,
		},
		{
			name:      "wage floor scales with duration",
			req:       QuoteRequest{DistanceKm: 1, DurationMin: 120, VehicleType: "car"},
			wantTotal: 95 + 4800,
			wantFloor: 2564, // 1282 * 2h
		},
	}

	s := NewService(testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Quote(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if got.CustomerPrice.Amount != tt.wantTotal {
				t.Errorf("customer price = %d, want %d", got.CustomerPrice.Amount, tt.wantTotal)
			}
			if got.MinimumPrice.Amount != tt.wantFloor {
				t.Errorf("minimum price = %d, want %d", got.MinimumPrice.Amount, tt.wantFloor)
			}
			if got.CustomerPrice.Amount < got.MinimumPrice.Amount {
				t.Errorf("customer price %d below floor %d", got.CustomerPrice.Amount, got.MinimumPrice.Amount)
			}
		})
	}
}

func TestService_QuoteFloorDominatesCheapRates(t *testing.T) {
	cfg := testConfig()
	cfg.Rates["cart"] = config.VehicleRate{PerKmCents: 10, PerHourCents: 100}

	s := NewService(cfg, nil)
	got, err := s.Quote(context.Background(), QuoteRequest{DistanceKm: 3, DurationMin: 120, VehicleType: "cart"})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	// 30 + 200 is far below 2h of minimum wage.
	if got.CustomerPrice.Amount != 2564 {
		t.Errorf("customer price = %d, want 2564", got.CustomerPrice.Amount)
	}
	if got.MinimumPrice.Amount != 2564 {
		t.Errorf("minimum price = %d, want 2564", got.MinimumPrice.Amount)
	}
}

func TestService_QuoteRejectsBadInput(t *testing.T) {
	s := NewService(testConfig(), nil)

	if _, err := s.Quote(context.Background(), QuoteRequest{DistanceKm: -1, DurationMin: 10, VehicleType: "car"}); err != ErrBadRequest {
		t.Errorf("negative distance: expected ErrBadRequest, got %v", err)
	}
	if _, err := s.Quote(context.Background(), QuoteRequest{DistanceKm: 1, DurationMin: 10, VehicleType: "hoverboard"}); err != ErrUnknownVehicle {
		t.Errorf("unknown vehicle: expected ErrUnknownVehicle, got %v", err)
	}
	if _, err := s.Quote(context.Background(), QuoteRequest{DistanceKm: 1, DurationMin: 10}); err != ErrBadRequest {
		t.Errorf("missing vehicle type: expected ErrBadRequest, got %v", err)
	}
}
