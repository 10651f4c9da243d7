// README: Shared identifiers and geo primitives.
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

type Point struct {
	Lat float64
	Lng float64
}

// IsZero reports the null island placeholder, not a real coordinate.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
