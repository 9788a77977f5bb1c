package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type Category string

const (
	CategoryRegular Category = "regular"
	CategoryVIP     Category = "vip"
)

func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryRegular:
		return CategoryRegular, nil
	case CategoryVIP:
		return CategoryVIP, nil
	default:
		return "", errors.Mark(errors.Newf("unknown category %q", s), ErrInvalidInput)
	}
}

// AncillaryItem is a non-seat line on a booking (snacks in the current
// catalog). Quantity may be zero; unit price is validated against the
// catalog before the booking is accepted.
type AncillaryItem struct {
	Name      string
	UnitPrice int64
	Quantity  int
}

type Booking struct {
	ID        uuid.UUID
	ShowID    uuid.UUID
	UserID    string
	Email     string
	Category  Category
	Seats     []string
	Items     []AncillaryItem
	Amount    int64
	Currency  string
	Paid      bool
	CreatedAt time.Time
}

// NormalizeSeat maps case/whitespace variants of the same seat label to
// one canonical key.
func NormalizeSeat(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeSeats canonicalizes the requested seat labels. It fails on an
// empty request and on duplicates that collapse after normalization,
// since a collapsed request means the client is out of sync with what it
// thinks it selected.
func NormalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, errors.Mark(errors.New("no seats selected"), ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(seats))
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		n := NormalizeSeat(s)
		if n == "" {
			return nil, errors.Mark(errors.New("blank seat identifier"), ErrInvalidInput)
		}
		if _, ok := seen[n]; ok {
			return nil, errors.Mark(errors.Newf("duplicate seat %s", n), ErrInvalidInput)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// NewBooking builds an unpaid booking with the amount computed from the
// per-seat price plus the ancillary subtotal. Seats must already be
// normalized.
func NewBooking(showID uuid.UUID, userID, email string, category Category, seats []string, seatPrice int64, items []AncillaryItem, currency string) Booking {
	amount := seatPrice * int64(len(seats))
	for _, it := range items {
		amount += it.UnitPrice * int64(it.Quantity)
	}
	return Booking{
		ID:        uuid.New(),
		ShowID:    showID,
		UserID:    userID,
		Email:     email,
		Category:  category,
		Seats:     seats,
		Items:     items,
		Amount:    amount,
		Currency:  currency,
		Paid:      false,
		CreatedAt: time.Now().UTC(),
	}
}
