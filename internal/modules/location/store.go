// README: Location store backed by Redis GEO.
package location

import (
	"context"

	"github.com/redis/go-redis/v9"

	"kurier/internal/types"
)

const geoKey = "contractor_positions"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetPosition(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemovePosition(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, geoKey, string(id)).Err()
}

// Nearby returns contractors within radiusKm of the point, closest first.
func (s *Store) Nearby(ctx context.Context, center types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	locs, err := s.redis.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(locs))
	for _, l := range locs {
		out = append(out, Candidate{ContractorID: types.ID(l.Name), DistanceKm: l.Dist})
	}
	return out, nil
}
