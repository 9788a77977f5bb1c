package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cinepass/booking-core/internal/config"
	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/idempotency"
	"github.com/cinepass/booking-core/internal/observability"
	"github.com/cinepass/booking-core/internal/service"
)

type Handlers struct {
	cfg          *config.Config
	reservations *service.Reservation
	settlement   *service.Settlement
	availability *service.Availability
	bookings     service.BookingStore
	idemp        *idempotency.Idempotency
	logger       observability.Logger
}

func NewHandlers(cfg *config.Config, reservations *service.Reservation, settlement *service.Settlement, availability *service.Availability, bookings service.BookingStore, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:          cfg,
		reservations: reservations,
		settlement:   settlement,
		availability: availability,
		bookings:     bookings,
		idemp:        idemp,
		logger:       logger,
	}
}

type errorBody struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Seats   []string `json:"seats,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Message: err.Error()}
	status := http.StatusInternalServerError
	body.Kind = "storage"

	var conflict *domain.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		status = http.StatusConflict
		body.Kind = "seat_conflict"
		body.Seats = conflict.Seats
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Kind = "validation"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		body.Kind = "not_found"
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		body.Kind = "conflict"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusServiceUnavailable
		body.Kind = "gateway_unavailable"
	case errors.Is(err, domain.ErrGatewayRejected):
		status = http.StatusBadGateway
		body.Kind = "gateway_rejected"
	case errors.Is(err, domain.ErrSerializationFailure):
		status = http.StatusConflict
		body.Kind = "conflict"
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

type itemJSON struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type bookingJSON struct {
	ID        uuid.UUID  `json:"id"`
	ShowID    uuid.UUID  `json:"show_id"`
	Category  string     `json:"category"`
	Seats     []string   `json:"seats"`
	Items     []itemJSON `json:"items,omitempty"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Paid      bool       `json:"paid"`
	CreatedAt time.Time  `json:"created_at"`
}

func toBookingJSON(b *domain.Booking) bookingJSON {
	items := make([]itemJSON, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, itemJSON{Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return bookingJSON{
		ID:        b.ID,
		ShowID:    b.ShowID,
		Category:  string(b.Category),
		Seats:     b.Seats,
		Items:     items,
		Amount:    b.Amount,
		Currency:  b.Currency,
		Paid:      b.Paid,
		CreatedAt: b.CreatedAt,
	}
}

func (h *Handlers) OccupiedSeats(w http.ResponseWriter, r *http.Request) {
	showID, err := uuid.Parse(chi.URLParam(r, "showID"))
	if err != nil {
		writeError(w, errors.Mark(errors.New("invalid show id"), domain.ErrInvalidInput))
		return
	}
	category, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, err)
		return
	}

	seats, err := h.availability.OccupiedSeats(r.Context(), showID, category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"seats": seats})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		ShowID   uuid.UUID  `json:"show_id"`
		Category string     `json:"category"`
		Seats    []string   `json:"seats"`
		Items    []itemJSON `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Mark(err, domain.ErrInvalidInput))
		return
	}

	identity := IdentityFrom(r.Context())
	items := make([]domain.AncillaryItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.AncillaryItem{Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}

	booking, err := h.reservations.Reserve(r.Context(), service.ReserveRequest{
		UserID:   identity.UserID,
		Email:    identity.Email,
		ShowID:   req.ShowID,
		Category: req.Category,
		Seats:    req.Seats,
		Items:    items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, toBookingJSON(booking))
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
		h.logger.WithError(err).Warn("idempotency cache write failed")
	}
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Mark(errors.New("invalid booking id"), domain.ErrInvalidInput))
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if booking.UserID != IdentityFrom(r.Context()).UserID {
		// Bookings are not discoverable across users.
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toBookingJSON(booking))
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListBookingsByUser(r.Context(), IdentityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]bookingJSON, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingJSON(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
}

func (h *Handlers) InitializePayment(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, errors.Mark(errors.New("invalid booking id"), domain.ErrInvalidInput))
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	if booking.UserID != IdentityFrom(r.Context()).UserID {
		writeError(w, domain.ErrNotFound)
		return
	}

	res, err := h.settlement.Initialize(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}

	var data []byte
	if res.AlreadyPaid {
		data = writeJSON(w, http.StatusOK, map[string]interface{}{"already_paid": true})
	} else {
		data = writeJSON(w, http.StatusOK, map[string]interface{}{
			"checkout_url": res.CheckoutURL,
			"tx_ref":       res.TxRef,
		})
	}
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data}); err != nil {
		h.logger.WithError(err).Warn("idempotency cache write failed")
	}
}

// VerifyPayment serves both client polling and the gateway callback;
// the transaction reference is the capability.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	txRef := chi.URLParam(r, "txRef")
	if txRef == "" {
		writeError(w, errors.Mark(errors.New("missing tx ref"), domain.ErrInvalidInput))
		return
	}

	payment, err := h.settlement.Verify(r.Context(), txRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    payment.Status,
		"amount":    payment.Amount,
		"currency":  payment.Currency,
		"reference": payment.GatewayRef,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
