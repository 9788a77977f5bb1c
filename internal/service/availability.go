package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinepass/booking-core/internal/domain"
)

// Availability derives the occupied-seat view from the booking ledger.
// It is a pure read: a show nobody has booked yet (or an unknown show)
// yields an empty set, not an error.
type Availability struct {
	store BookingStore
}

func NewAvailability(store BookingStore) *Availability {
	return &Availability{store: store}
}

func (a *Availability) OccupiedSeats(ctx context.Context, showID uuid.UUID, category domain.Category) ([]string, error) {
	seats, err := a.store.OccupiedSeats(ctx, showID, category)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []string{}
	}
	return seats, nil
}
