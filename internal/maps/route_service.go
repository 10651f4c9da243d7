// README: Google Maps route estimates feeding the pricing calculator.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// RouteService resolves pickup/delivery addresses into the distance and
// duration the pricing calculator consumes. Address autocomplete and map
// rendering stay in the client; only the route numbers enter the engine.
type RouteService struct {
	client *maps.Client
	region string
}

func NewRouteService(apiKey, region string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, region: region}, nil
}

type RouteEstimate struct {
	DistanceKm  float64
	DurationMin float64
}

// Estimate returns driving distance and duration between two addresses.
func (s *RouteService) Estimate(ctx context.Context, origin, destination string) (RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return RouteEstimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return RouteEstimate{
		DistanceKm:  float64(leg.Distance.Meters) / 1000.0,
		DurationMin: leg.Duration.Minutes(),
	}, nil
}
