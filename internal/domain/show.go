package domain

import (
	"time"

	"github.com/google/uuid"
)

// Show is catalog data, read-only to this service. Prices are minor
// currency units per seat for each category.
type Show struct {
	ID       uuid.UUID
	Hall     string
	Type     string
	Prices   map[Category]int64
	StartsAt time.Time
}

// PriceFor returns the per-seat price for a category, or false when the
// catalog has no usable price for it.
func (s *Show) PriceFor(c Category) (int64, bool) {
	p, ok := s.Prices[c]
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}

// Snack is a catalog ancillary item.
type Snack struct {
	Name      string
	UnitPrice int64
}
