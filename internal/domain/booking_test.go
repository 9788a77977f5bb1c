package domain_test

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/google/uuid"
)

func TestNormalizeSeats(t *testing.T) {
	seats, err := domain.NormalizeSeats([]string{" a1 ", "b2", "C3"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"A1", "B2", "C3"}
	for i, s := range want {
		if seats[i] != s {
			t.Errorf("seat %d: expected %s, got %s", i, s, seats[i])
		}
	}
}

func TestNormalizeSeats_Empty(t *testing.T) {
	_, err := domain.NormalizeSeats(nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestNormalizeSeats_DuplicatesCollapse(t *testing.T) {
	// "a1" and " A1 " are the same seat once normalized.
	_, err := domain.NormalizeSeats([]string{"a1", " A1 "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestNormalizeSeats_Blank(t *testing.T) {
	_, err := domain.NormalizeSeats([]string{"A1", "   "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := domain.ParseCategory(" VIP ")
	if err != nil || c != domain.CategoryVIP {
		t.Errorf("expected vip, got %v %v", c, err)
	}
	if _, err := domain.ParseCategory("balcony"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestNewBooking_Amount(t *testing.T) {
	items := []domain.AncillaryItem{
		{Name: "popcorn", UnitPrice: 5000, Quantity: 2},
		{Name: "soda", UnitPrice: 3000, Quantity: 0},
	}
	b := domain.NewBooking(uuid.New(), "u1", "u1@example.com", domain.CategoryRegular, []string{"A1", "A2"}, 10000, items, "ETB")
	if b.Amount != 2*10000+2*5000 {
		t.Errorf("expected amount 30000, got %d", b.Amount)
	}
	if b.Paid {
		t.Error("new booking must be unpaid")
	}
	if b.ID == uuid.Nil {
		t.Error("expected a booking id")
	}
}

func TestSeatConflictError_IsConflict(t *testing.T) {
	err := &domain.SeatConflictError{Seats: []string{"A2"}}
	if !errors.Is(err, domain.ErrConflict) {
		t.Error("SeatConflictError should match ErrConflict")
	}
}
