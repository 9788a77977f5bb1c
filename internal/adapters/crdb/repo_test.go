package crdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cinepass/booking-core/internal/adapters/crdb"
	"github.com/cinepass/booking-core/internal/domain"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS cinema;
	CREATE TABLE IF NOT EXISTS cinema.bookings (
		id UUID PRIMARY KEY,
		show_id UUID,
		user_id TEXT,
		email TEXT,
		category TEXT CHECK (category IN ('regular', 'vip')),
		amount BIGINT,
		currency TEXT,
		is_paid BOOL DEFAULT false,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS cinema.booking_seats (
		booking_id UUID,
		show_id UUID,
		category TEXT,
		seat_no TEXT,
		PRIMARY KEY (booking_id, seat_no),
		UNIQUE (show_id, category, seat_no)
	);
	CREATE TABLE IF NOT EXISTS cinema.booking_items (
		booking_id UUID,
		name TEXT,
		unit_price BIGINT,
		quantity INT
	);
	CREATE TABLE IF NOT EXISTS cinema.payments (
		id UUID PRIMARY KEY,
		booking_id UUID,
		tx_ref TEXT UNIQUE,
		status TEXT CHECK (status IN ('PENDING', 'SUCCESS', 'FAILED')),
		amount BIGINT,
		currency TEXT,
		checkout_url TEXT,
		gateway_ref TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS cinema.outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT,
		aggregate_id UUID,
		event_type TEXT,
		payload_json BYTES,
		created_at TIMESTAMPTZ DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT DEFAULT 'NEW',
		dedupe_key TEXT
	);
`

func setupRepo(t *testing.T) (*crdb.Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	host, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgresql://root@"+host+":"+port.Port()+"/cinema?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	return crdb.NewRepository(pool), pool
}

func testBooking(showID uuid.UUID, category domain.Category, seats []string) domain.Booking {
	return domain.NewBooking(showID, "user-1", "user-1@example.com", category, seats, 10000, nil, "ETB")
}

func TestRepository_CreateBooking_SeatConflict(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	showID := uuid.New()

	first := testBooking(showID, domain.CategoryRegular, []string{"A1", "A2"})
	if err := repo.CreateBooking(ctx, first); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second := testBooking(showID, domain.CategoryRegular, []string{"A2", "A3"})
	err := repo.CreateBooking(ctx, second)
	var conflict *domain.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SeatConflictError, got %v", err)
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != "A2" {
		t.Errorf("expected conflict on A2, got %v", conflict.Seats)
	}

	// The losing transaction must leave nothing behind, A3 included.
	occupied, err := repo.OccupiedSeats(ctx, showID, domain.CategoryRegular)
	if err != nil {
		t.Fatal(err)
	}
	if len(occupied) != 2 || occupied[0] != "A1" || occupied[1] != "A2" {
		t.Errorf("expected [A1 A2], got %v", occupied)
	}
}

func TestRepository_CreateBooking_CategoriesAreIndependent(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	showID := uuid.New()

	if err := repo.CreateBooking(ctx, testBooking(showID, domain.CategoryRegular, []string{"A1"})); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBooking(ctx, testBooking(showID, domain.CategoryVIP, []string{"A1"})); err != nil {
		t.Errorf("same identifier in the other category must be free, got %v", err)
	}
}

func TestRepository_GetBooking_RoundTrip(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	booking := domain.NewBooking(uuid.New(), "user-2", "user-2@example.com", domain.CategoryVIP,
		[]string{"V1", "V2"}, 25000,
		[]domain.AncillaryItem{{Name: "popcorn", UnitPrice: 5000, Quantity: 2}}, "ETB")
	if err := repo.CreateBooking(ctx, booking); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount != booking.Amount || got.Paid || got.Category != domain.CategoryVIP {
		t.Errorf("unexpected booking: %+v", got)
	}
	if len(got.Seats) != 2 || len(got.Items) != 1 {
		t.Errorf("seats/items not loaded: %+v", got)
	}

	if _, err := repo.GetBooking(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_SettlePayment_Idempotent(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	booking := testBooking(uuid.New(), domain.CategoryRegular, []string{"B1"})
	if err := repo.CreateBooking(ctx, booking); err != nil {
		t.Fatal(err)
	}

	txRef := domain.NewTxRef(booking.ID)
	payment := domain.NewPayment(booking.ID, txRef, booking.Amount, "ETB", "https://checkout.example/x")
	if err := repo.CreatePayment(ctx, payment); err != nil {
		t.Fatal(err)
	}

	settled, err := repo.SettlePayment(ctx, txRef, "gw-ref-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if settled.Status != domain.PaymentSuccess || settled.GatewayRef != "gw-ref-1" {
		t.Errorf("unexpected payment: %+v", settled)
	}

	got, err := repo.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Paid {
		t.Error("booking must be paid after settlement")
	}

	again, err := repo.SettlePayment(ctx, txRef, "gw-ref-other")
	if err != nil {
		t.Fatalf("second settle must be a no-op, got %v", err)
	}
	if again.GatewayRef != "gw-ref-1" {
		t.Errorf("settled payment must not change, got %+v", again)
	}

	// A late failure report cannot downgrade a settled payment.
	failed, err := repo.FailPayment(ctx, txRef)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != domain.PaymentSuccess {
		t.Errorf("expected SUCCESS preserved, got %s", failed.Status)
	}
}

func TestRepository_FailPayment(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	booking := testBooking(uuid.New(), domain.CategoryRegular, []string{"C1"})
	if err := repo.CreateBooking(ctx, booking); err != nil {
		t.Fatal(err)
	}
	txRef := domain.NewTxRef(booking.ID)
	if err := repo.CreatePayment(ctx, domain.NewPayment(booking.ID, txRef, booking.Amount, "ETB", "")); err != nil {
		t.Fatal(err)
	}

	failed, err := repo.FailPayment(ctx, txRef)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != domain.PaymentFailed {
		t.Errorf("expected FAILED, got %s", failed.Status)
	}

	// A failed attempt cannot be settled afterwards.
	if _, err := repo.SettlePayment(ctx, txRef, "gw"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	got, _ := repo.GetBooking(ctx, booking.ID)
	if got.Paid {
		t.Error("failed payment must not mark booking paid")
	}

	if _, err := repo.GetPaymentByTxRef(ctx, "booking-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
