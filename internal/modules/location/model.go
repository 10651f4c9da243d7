// README: Contractor live positions for dispatch.
package location

import (
	"time"

	"kurier/internal/types"
)

type Position struct {
	ContractorID types.ID
	Point        types.Point
	RecordedAt   time.Time
}

// Candidate is a contractor near a pickup point.
type Candidate struct {
	ContractorID types.ID
	DistanceKm   float64
}
