package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment is one gateway checkout attempt for a booking. A booking may
// accumulate several attempts over time; the most recent one is
// authoritative for display, and only a SUCCESS transition ever marks
// the booking paid.
type Payment struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	TxRef       string
	Status      PaymentStatus
	Amount      int64
	Currency    string
	CheckoutURL string
	GatewayRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTxRef derives a transaction reference for a checkout attempt.
// Globally unique is the contract; the booking id prefix just makes the
// reference traceable in gateway dashboards.
func NewTxRef(bookingID uuid.UUID) string {
	return fmt.Sprintf("booking-%s-%s", bookingID, uuid.NewString())
}

func NewPayment(bookingID uuid.UUID, txRef string, amount int64, currency, checkoutURL string) Payment {
	now := time.Now().UTC()
	return Payment{
		ID:          uuid.New(),
		BookingID:   bookingID,
		TxRef:       txRef,
		Status:      PaymentPending,
		Amount:      amount,
		Currency:    currency,
		CheckoutURL: checkoutURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
