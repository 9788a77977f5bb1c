package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    string    `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action, userID string, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) LogBooking(ctx context.Context, booking domain.Booking) error {
	data := map[string]interface{}{
		"booking_id": booking.ID,
		"show_id":    booking.ShowID,
		"category":   booking.Category,
		"seats":      booking.Seats,
		"amount":     booking.Amount,
	}
	return a.LogEvent(ctx, "booking.created", booking.UserID, data)
}

func (a *AuditLogger) LogSettlement(ctx context.Context, payment domain.Payment) error {
	data := map[string]interface{}{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"tx_ref":     payment.TxRef,
		"status":     payment.Status,
		"amount":     payment.Amount,
	}
	return a.LogEvent(ctx, "payment."+string(payment.Status), "", data)
}
