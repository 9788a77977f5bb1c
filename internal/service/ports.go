package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinepass/booking-core/internal/domain"
)

// BookingStore is the durable booking ledger. CreateBooking must enforce
// seat uniqueness per (show, category, seat) at write time; a check made
// before the write is never enough on its own.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking domain.Booking) error
	OccupiedSeats(ctx context.Context, showID uuid.UUID, category domain.Category) ([]string, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

// PaymentStore owns payment attempts. SettlePayment must flip the
// booking to paid in the same transaction as the SUCCESS transition and
// be a no-op for an already settled reference.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p domain.Payment) error
	GetPaymentByTxRef(ctx context.Context, txRef string) (*domain.Payment, error)
	SettlePayment(ctx context.Context, txRef, gatewayRef string) (*domain.Payment, error)
	FailPayment(ctx context.Context, txRef string) (*domain.Payment, error)
}

// ShowCatalog is the read-only catalog collaborator.
type ShowCatalog interface {
	GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error)
	GetSnack(ctx context.Context, name string) (*domain.Snack, error)
}

type GatewayStatus string

const (
	GatewaySuccess GatewayStatus = "success"
	GatewayFailed  GatewayStatus = "failed"
	GatewayPending GatewayStatus = "pending"
)

type GatewayInit struct {
	Amount      int64
	Currency    string
	Email       string
	TxRef       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

type GatewayCheckout struct {
	CheckoutURL string
}

type GatewayVerification struct {
	Status    GatewayStatus
	Reference string
	Amount    int64
	Currency  string
}

// PaymentGateway is the external checkout provider. Implementations mark
// unreachability with domain.ErrGatewayUnavailable and terminal refusals
// with domain.ErrGatewayRejected.
type PaymentGateway interface {
	Initialize(ctx context.Context, req GatewayInit) (*GatewayCheckout, error)
	Verify(ctx context.Context, txRef string) (*GatewayVerification, error)
}

// Auditor records an audit trail; failures are logged, never fatal.
type Auditor interface {
	LogBooking(ctx context.Context, booking domain.Booking) error
	LogSettlement(ctx context.Context, payment domain.Payment) error
}
