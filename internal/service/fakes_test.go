package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/service"
)

// fakeStore is an in-memory ledger enforcing the same write-time seat
// uniqueness rule as the real repository does with its unique
// constraint.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]domain.Booking
	seats    map[string]uuid.UUID // showID|category|seat -> booking
	payments map[string]domain.Payment

	createErrs []error // consumed per CreateBooking call before the real insert
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: make(map[uuid.UUID]domain.Booking),
		seats:    make(map[string]uuid.UUID),
		payments: make(map[string]domain.Payment),
	}
}

func seatKey(showID uuid.UUID, category domain.Category, seat string) string {
	return showID.String() + "|" + string(category) + "|" + seat
}

func (f *fakeStore) CreateBooking(ctx context.Context, booking domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}

	var conflicts []string
	for _, seat := range booking.Seats {
		if _, taken := f.seats[seatKey(booking.ShowID, booking.Category, seat)]; taken {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		return &domain.SeatConflictError{Seats: conflicts}
	}
	for _, seat := range booking.Seats {
		f.seats[seatKey(booking.ShowID, booking.Category, seat)] = booking.ID
	}
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeStore) OccupiedSeats(ctx context.Context, showID uuid.UUID, category domain.Category) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.bookings {
		if b.ShowID == showID && b.Category == category {
			out = append(out, b.Seats...)
		}
	}
	return out, nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, p domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.TxRef] = p
	return nil
}

func (f *fakeStore) GetPaymentByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[txRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) SettlePayment(ctx context.Context, txRef, gatewayRef string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[txRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status == domain.PaymentSuccess {
		return &p, nil
	}
	if p.Status == domain.PaymentFailed {
		return nil, domain.ErrConflict
	}
	p.Status = domain.PaymentSuccess
	p.GatewayRef = gatewayRef
	f.payments[txRef] = p

	b := f.bookings[p.BookingID]
	b.Paid = true
	f.bookings[p.BookingID] = b
	return &p, nil
}

func (f *fakeStore) FailPayment(ctx context.Context, txRef string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[txRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentPending {
		return &p, nil
	}
	p.Status = domain.PaymentFailed
	f.payments[txRef] = p
	return &p, nil
}

type fakeCatalog struct {
	shows  map[uuid.UUID]domain.Show
	snacks map[string]domain.Snack
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		shows:  make(map[uuid.UUID]domain.Show),
		snacks: make(map[string]domain.Snack),
	}
}

func (f *fakeCatalog) GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error) {
	s, ok := f.shows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeCatalog) GetSnack(ctx context.Context, name string) (*domain.Snack, error) {
	s, ok := f.snacks[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	initErrs    []error // consumed per call before initErr
	checkoutURL string
	verifyErr   error
	status      service.GatewayStatus
	reference   string
	amount      int64
	initCalls   int
	verifyCalls int
}

func (f *fakeGateway) Initialize(ctx context.Context, req service.GatewayInit) (*service.GatewayCheckout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if len(f.initErrs) > 0 {
		err := f.initErrs[0]
		f.initErrs = f.initErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if f.initErr != nil {
		return nil, f.initErr
	}
	url := f.checkoutURL
	if url == "" {
		url = "https://checkout.example/" + req.TxRef
	}
	return &service.GatewayCheckout{CheckoutURL: url}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, txRef string) (*service.GatewayVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &service.GatewayVerification{
		Status:    f.status,
		Reference: f.reference,
		Amount:    f.amount,
	}, nil
}

type nopAudit struct{}

func (nopAudit) LogBooking(ctx context.Context, booking domain.Booking) error    { return nil }
func (nopAudit) LogSettlement(ctx context.Context, payment domain.Payment) error { return nil }
