package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// CreateBooking commits a booking and its seat claims as one serializable
// transaction. Seat uniqueness per (show, category, seat) is enforced by
// the booking_seats unique constraint: an insert that affects zero rows
// means someone else holds that seat, and the whole transaction rolls
// back with a SeatConflictError naming every contested seat.
func (r *Repository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (id, show_id, user_id, email, category, amount, currency, is_paid, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		`, booking.ID, booking.ShowID, booking.UserID, booking.Email, booking.Category, booking.Amount, booking.Currency, booking.CreatedAt)
		if err != nil {
			return err
		}

		var conflicts []string
		for _, seat := range booking.Seats {
			result, err := tx.Exec(ctx, `
				INSERT INTO booking_seats (booking_id, show_id, category, seat_no)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (show_id, category, seat_no) DO NOTHING
			`, booking.ID, booking.ShowID, booking.Category, seat)
			if err != nil {
				return err
			}
			if result.RowsAffected() == 0 {
				conflicts = append(conflicts, seat)
			}
		}
		if len(conflicts) > 0 {
			return &domain.SeatConflictError{Seats: conflicts}
		}

		for _, item := range booking.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO booking_items (booking_id, name, unit_price, quantity)
				VALUES ($1, $2, $3, $4)
			`, booking.ID, item.Name, item.UnitPrice, item.Quantity)
			if err != nil {
				return err
			}
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": booking.ID,
			"show_id":    booking.ShowID,
			"category":   booking.Category,
			"seats":      booking.Seats,
			"amount":     booking.Amount,
		})
		return r.InsertOutbox(ctx, tx, NewOutboxRecord("booking", booking.ID, "booking.created", payload))
	})
}

// OccupiedSeats returns every seat claimed by a committed booking for the
// show and category. An unknown show simply has no claims.
func (r *Repository) OccupiedSeats(ctx context.Context, showID uuid.UUID, category domain.Category) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seat_no FROM booking_seats
		WHERE show_id = $1 AND category = $2
		ORDER BY seat_no
	`, showID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []string
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.pool.QueryRow(ctx, `
		SELECT id, show_id, user_id, email, category, amount, currency, is_paid, created_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.ShowID, &b.UserID, &b.Email, &b.Category, &b.Amount, &b.Currency, &b.Paid, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadBookingLines(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, show_id, user_id, email, category, amount, currency, is_paid, created_at
		FROM bookings WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ShowID, &b.UserID, &b.Email, &b.Category, &b.Amount, &b.Currency, &b.Paid, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		if err := r.loadBookingLines(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *Repository) loadBookingLines(ctx context.Context, b *domain.Booking) error {
	rows, err := r.pool.Query(ctx, `
		SELECT seat_no FROM booking_seats WHERE booking_id = $1 ORDER BY seat_no
	`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.Seats = b.Seats[:0]
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return err
		}
		b.Seats = append(b.Seats, seat)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT name, unit_price, quantity FROM booking_items WHERE booking_id = $1
	`, b.ID)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it domain.AncillaryItem
		if err := itemRows.Scan(&it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return err
		}
		b.Items = append(b.Items, it)
	}
	return itemRows.Err()
}
