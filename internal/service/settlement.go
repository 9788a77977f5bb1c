package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
)

// Settlement reconciles gateway-verified payment results into booking
// state. Both the client-poll path and the gateway webhook land on
// Verify, which is idempotent per transaction reference.
type Settlement struct {
	bookings       BookingStore
	payments       PaymentStore
	gateway        PaymentGateway
	audit          Auditor
	logger         observability.Logger
	callbackURL    string
	returnURL      string
	gatewayTimeout time.Duration
	gatewayRetries int
}

func NewSettlement(bookings BookingStore, payments PaymentStore, gateway PaymentGateway, audit Auditor, logger observability.Logger, callbackURL, returnURL string, gatewayTimeout time.Duration, gatewayRetries int) *Settlement {
	if gatewayRetries <= 0 {
		gatewayRetries = 1
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Settlement{
		bookings:       bookings,
		payments:       payments,
		gateway:        gateway,
		audit:          audit,
		logger:         logger,
		callbackURL:    strings.TrimRight(callbackURL, "/"),
		returnURL:      returnURL,
		gatewayTimeout: gatewayTimeout,
		gatewayRetries: gatewayRetries,
	}
}

type InitializeResult struct {
	AlreadyPaid bool
	CheckoutURL string
	TxRef       string
}

// Initialize opens a new checkout attempt for a booking. An already paid
// booking short-circuits to a success indicator so retry-happy clients
// never re-open checkout. Nothing is persisted until the gateway has
// accepted the attempt, so a gateway failure leaves nothing to roll
// back.
func (s *Settlement) Initialize(ctx context.Context, bookingID uuid.UUID) (*InitializeResult, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Paid {
		return &InitializeResult{AlreadyPaid: true}, nil
	}

	txRef := domain.NewTxRef(booking.ID)
	init := GatewayInit{
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		Email:       booking.Email,
		TxRef:       txRef,
		CallbackURL: s.callbackURL + "/" + txRef + "/verify",
		ReturnURL:   s.returnURL,
		Title:       "Cinema Ticket Booking",
		Description: fmt.Sprintf("Booking for %d seat(s)", len(booking.Seats)),
	}

	var checkout *GatewayCheckout
	err = s.withGatewayRetry(ctx, func(callCtx context.Context) error {
		out, gerr := s.gateway.Initialize(callCtx, init)
		if gerr != nil {
			return gerr
		}
		checkout = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment := domain.NewPayment(booking.ID, txRef, booking.Amount, booking.Currency, checkout.CheckoutURL)
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	return &InitializeResult{CheckoutURL: checkout.CheckoutURL, TxRef: txRef}, nil
}

// Verify fetches the authoritative status for a transaction reference
// and applies it. Calling it again after SUCCESS returns the same state
// without touching the gateway; an unreachable gateway surfaces as a
// retryable error and never fails the payment.
func (s *Settlement) Verify(ctx context.Context, txRef string) (*domain.Payment, error) {
	payment, err := s.payments.GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentSuccess {
		return payment, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	verification, err := s.gateway.Verify(callCtx, txRef)
	if err != nil {
		return nil, err
	}

	switch verification.Status {
	case GatewaySuccess:
		if verification.Amount > 0 && verification.Amount != payment.Amount {
			return nil, errors.Mark(
				errors.Newf("gateway amount %d does not match payment %d for %s", verification.Amount, payment.Amount, txRef),
				domain.ErrGatewayRejected)
		}
		settled, err := s.settleWithRetry(ctx, txRef, verification.Reference)
		if err != nil {
			return nil, err
		}
		observability.PaymentsSettledTotal.WithLabelValues(string(domain.PaymentSuccess)).Inc()
		s.auditSettlement(ctx, settled)
		return settled, nil
	case GatewayFailed:
		failed, err := s.payments.FailPayment(ctx, txRef)
		if err != nil {
			return nil, err
		}
		observability.PaymentsSettledTotal.WithLabelValues(string(domain.PaymentFailed)).Inc()
		s.auditSettlement(ctx, failed)
		return failed, nil
	default:
		// Still pending at the gateway; nothing moves.
		return payment, nil
	}
}

func (s *Settlement) settleWithRetry(ctx context.Context, txRef, gatewayRef string) (*domain.Payment, error) {
	var lastErr error
	for attempt := 0; attempt < s.gatewayRetries; attempt++ {
		settled, err := s.payments.SettlePayment(ctx, txRef, gatewayRef)
		if err == nil {
			return settled, nil
		}
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.Wrap(lastErr, "settlement not committed")
}

func (s *Settlement) withGatewayRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < s.gatewayRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (s *Settlement) auditSettlement(ctx context.Context, payment *domain.Payment) {
	if s.audit == nil || payment == nil {
		return
	}
	if err := s.audit.LogSettlement(ctx, *payment); err != nil {
		s.logger.WithError(err).Warn("settlement audit write failed")
	}
}
