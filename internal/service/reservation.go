package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
)

type ReserveRequest struct {
	UserID   string
	Email    string
	ShowID   uuid.UUID
	Category string
	Seats    []string
	Items    []domain.AncillaryItem
}

// Reservation orchestrates seat-claim validation, price computation and
// the atomic booking insert. Validation runs fail-fast in a fixed order;
// the seat-conflict check is advisory only, the store's write-time
// constraint is what actually decides races.
type Reservation struct {
	store    BookingStore
	catalog  ShowCatalog
	audit    Auditor
	logger   observability.Logger
	currency string
	retries  int
}

func NewReservation(store BookingStore, catalog ShowCatalog, audit Auditor, logger observability.Logger, currency string, retries int) *Reservation {
	if retries <= 0 {
		retries = 1
	}
	return &Reservation{
		store:    store,
		catalog:  catalog,
		audit:    audit,
		logger:   logger,
		currency: currency,
		retries:  retries,
	}
}

func (s *Reservation) Reserve(ctx context.Context, req ReserveRequest) (*domain.Booking, error) {
	seats, err := domain.NormalizeSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	// Serialization failures mean another booking for the same show
	// raced ours; prices and availability may have moved, so every
	// retry re-runs the whole validation.
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		booking, err := s.tryReserve(ctx, req, category, seats)
		if err == nil {
			observability.BookingsCreatedTotal.Inc()
			if s.audit != nil {
				if auditErr := s.audit.LogBooking(ctx, *booking); auditErr != nil {
					s.logger.WithError(auditErr).Warn("booking audit write failed")
				}
			}
			return booking, nil
		}
		if errors.Is(err, domain.ErrSerializationFailure) {
			lastErr = err
			continue
		}
		if errors.Is(err, domain.ErrConflict) {
			observability.SeatConflictsTotal.Inc()
		}
		return nil, err
	}
	return nil, errors.Wrapf(lastErr, "reservation not committed after %d attempts", s.retries)
}

func (s *Reservation) tryReserve(ctx context.Context, req ReserveRequest, category domain.Category, seats []string) (*domain.Booking, error) {
	var show *domain.Show
	items := make([]domain.AncillaryItem, len(req.Items))
	copy(items, req.Items)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.catalog.GetShow(gctx, req.ShowID)
		if errors.Is(err, domain.ErrNotFound) {
			return errors.Mark(errors.Newf("show %s not found", req.ShowID), domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		show = found
		return nil
	})
	g.Go(func() error {
		return s.validateItems(gctx, items)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seatPrice, ok := show.PriceFor(category)
	if !ok {
		return nil, errors.Mark(errors.Newf("show has no price for category %s", category), domain.ErrInvalidInput)
	}

	occupied, err := s.store.OccupiedSeats(ctx, req.ShowID, category)
	if err != nil {
		return nil, err
	}
	if taken := intersect(seats, occupied); len(taken) > 0 {
		return nil, &domain.SeatConflictError{Seats: taken}
	}

	booking := domain.NewBooking(req.ShowID, req.UserID, req.Email, category, seats, seatPrice, items, s.currency)
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// validateItems re-prices every ancillary line against the live catalog
// so a client cannot submit tampered totals.
func (s *Reservation) validateItems(ctx context.Context, items []domain.AncillaryItem) error {
	for _, it := range items {
		if it.Quantity < 0 {
			return errors.Mark(errors.Newf("negative quantity for %s", it.Name), domain.ErrInvalidInput)
		}
		snack, err := s.catalog.GetSnack(ctx, it.Name)
		if errors.Is(err, domain.ErrNotFound) {
			return errors.Mark(errors.Newf("unknown item %q", it.Name), domain.ErrInvalidInput)
		}
		if err != nil {
			return err
		}
		if snack.UnitPrice != it.UnitPrice {
			return errors.Mark(errors.Newf("price for %q does not match the catalog", it.Name), domain.ErrInvalidInput)
		}
	}
	return nil
}

func intersect(requested, occupied []string) []string {
	taken := make(map[string]struct{}, len(occupied))
	for _, seat := range occupied {
		taken[seat] = struct{}{}
	}
	var out []string
	for _, seat := range requested {
		if _, ok := taken[seat]; ok {
			out = append(out, seat)
		}
	}
	return out
}
