package crdb

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/cinepass/booking-core/internal/domain"
)

func (r *Repository) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, booking_id, tx_ref, status, amount, currency, checkout_url, gateway_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`, p.ID, p.BookingID, p.TxRef, p.Status, p.Amount, p.Currency, p.CheckoutURL, p.GatewayRef, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) GetPaymentByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT id, booking_id, tx_ref, status, amount, currency, checkout_url, COALESCE(gateway_ref, ''), created_at, updated_at
		FROM payments WHERE tx_ref = $1
	`, txRef))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SettlePayment applies the SUCCESS transition for a transaction
// reference and flips the booking to paid in the same transaction. The
// row lock on the payment makes concurrent verifies single-writer per
// tx_ref: the second caller sees SUCCESS and returns it unchanged.
func (r *Repository) SettlePayment(ctx context.Context, txRef, gatewayRef string) (*domain.Payment, error) {
	var settled *domain.Payment
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPayment(ctx, tx, txRef)
		if err != nil {
			return err
		}
		switch p.Status {
		case domain.PaymentSuccess:
			settled = p
			return nil
		case domain.PaymentFailed:
			return errors.Mark(errors.Newf("payment %s already failed", txRef), domain.ErrConflict)
		}

		result, err := tx.Exec(ctx, `
			UPDATE payments SET status = $2, gateway_ref = $3, updated_at = now()
			WHERE tx_ref = $1 AND status = 'PENDING'
		`, txRef, domain.PaymentSuccess, gatewayRef)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return errors.Mark(errors.Newf("payment %s changed state concurrently", txRef), domain.ErrConflict)
		}

		_, err = tx.Exec(ctx, `
			UPDATE bookings SET is_paid = true WHERE id = $1
		`, p.BookingID)
		if err != nil {
			return err
		}

		p.Status = domain.PaymentSuccess
		p.GatewayRef = gatewayRef
		settled = p

		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": p.BookingID,
			"tx_ref":     p.TxRef,
			"amount":     p.Amount,
			"currency":   p.Currency,
		})
		return r.InsertOutbox(ctx, tx, NewOutboxRecord("payment", p.ID, "payment.succeeded", payload))
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// FailPayment applies the FAILED transition. A payment that already
// reached SUCCESS is returned untouched: a confirmed payment is never
// downgraded on a later failure report.
func (r *Repository) FailPayment(ctx context.Context, txRef string) (*domain.Payment, error) {
	var failed *domain.Payment
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := lockPayment(ctx, tx, txRef)
		if err != nil {
			return err
		}
		if p.Status != domain.PaymentPending {
			failed = p
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE payments SET status = $2, updated_at = now()
			WHERE tx_ref = $1 AND status = 'PENDING'
		`, txRef, domain.PaymentFailed)
		if err != nil {
			return err
		}

		p.Status = domain.PaymentFailed
		failed = p

		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": p.BookingID,
			"tx_ref":     p.TxRef,
		})
		return r.InsertOutbox(ctx, tx, NewOutboxRecord("payment", p.ID, "payment.failed", payload))
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

func lockPayment(ctx context.Context, tx pgx.Tx, txRef string) (*domain.Payment, error) {
	p, err := scanPayment(tx.QueryRow(ctx, `
		SELECT id, booking_id, tx_ref, status, amount, currency, checkout_url, COALESCE(gateway_ref, ''), created_at, updated_at
		FROM payments WHERE tx_ref = $1 FOR UPDATE
	`, txRef))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.TxRef, &p.Status, &p.Amount, &p.Currency, &p.CheckoutURL, &p.GatewayRef, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
