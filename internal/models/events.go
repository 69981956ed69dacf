package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypePaymentRecorded  = "payment.recorded"
	EventTypeBookingConfirmed = "booking.confirmed"
)

// BaseEvent carries the fields shared by all domain events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentRecordedEvent is published after a standalone property payment is
// persisted.
type PaymentRecordedEvent struct {
	BaseEvent
	PaymentID  int64           `json:"payment_id"`
	UserID     int64           `json:"user_id"`
	PropertyID int64           `json:"property_id"`
	Amount     decimal.Decimal `json:"amount"`
	Kind       string          `json:"kind"`
}

// BookingConfirmedEvent is published after a booking transaction commits.
type BookingConfirmedEvent struct {
	BaseEvent
	BookingID     int64           `json:"booking_id"`
	PaymentID     int64           `json:"payment_id"`
	UserID        int64           `json:"user_id"`
	ApartmentID   int64           `json:"apartment_id"`
	UnitID        int64           `json:"unit_id"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceNumber string          `json:"invoice_number"`
	Fallback      bool            `json:"fallback"`
}
