package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment kinds (decided at write time)
const (
	PaymentKindProperty  = "property"
	PaymentKindApartment = "apartment"
)

// Payment methods
const (
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodUPI        = "upi"
)

// Payment statuses treated as settled money
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPaid      = "paid"
)

// Unit statuses
const (
	UnitStatusAvailable = "available"
	UnitStatusBooked    = "booked"
)

// BookingStatusConfirmed is the only booking status in scope; cancellation
// is not modeled.
const BookingStatusConfirmed = "confirmed"

// FallbackUnitPrefix marks demo units that are not backed by real
// inventory rows. Bookings against them skip the availability check.
const FallbackUnitPrefix = "fallback-"

// NormalizePaymentMethod maps the legacy "card" alias to credit_card.
func NormalizePaymentMethod(method string) string {
	if method == "card" {
		return PaymentMethodCreditCard
	}
	return method
}

// IsSettledStatus reports whether a payment status counts toward paid totals.
func IsSettledStatus(status string) bool {
	return status == PaymentStatusCompleted || status == PaymentStatusPaid
}

// CreditCardDetails holds card data as recorded intent; nothing is ever
// charged against a processor.
type CreditCardDetails struct {
	CardHolder string `json:"card_holder"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
}

// UPIDetails holds a UPI handle of the form name@bank.
type UPIDetails struct {
	UpiID string `json:"upi_id"`
}

// PaymentDetails is a tagged union: exactly one variant is set and it must
// match the payment method.
type PaymentDetails struct {
	CreditCard *CreditCardDetails `json:"credit_card,omitempty"`
	UPI        *UPIDetails        `json:"upi,omitempty"`
}

// Value implements driver.Valuer so details are stored as JSONB.
func (d PaymentDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *PaymentDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = PaymentDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported payment details type %T", src)
	}
}

// Validate checks the details against the (already normalized) method.
// Format-only checks, no Luhn or issuer validation.
func (d *PaymentDetails) Validate(method string) error {
	switch method {
	case PaymentMethodCreditCard:
		cc := d.CreditCard
		if cc == nil || cc.CardHolder == "" || cc.CardNumber == "" || cc.ExpiryDate == "" || cc.CVV == "" {
			return &ValidationError{Reason: "all credit card details are required"}
		}
		if len(cc.CardNumber) < 16 {
			return &ValidationError{Reason: "card number must be at least 16 digits"}
		}
		if len(cc.CVV) < 3 {
			return &ValidationError{Reason: "CVV must be at least 3 digits"}
		}
		if d.UPI != nil {
			return &ValidationError{Reason: "UPI details are not allowed for credit card payments"}
		}
	case PaymentMethodUPI:
		if d.UPI == nil || d.UPI.UpiID == "" {
			return &ValidationError{Reason: "UPI ID is required for UPI payments"}
		}
		if !strings.Contains(d.UPI.UpiID, "@") {
			return &ValidationError{Reason: "UPI ID must contain an @ separator"}
		}
		if d.CreditCard != nil {
			return &ValidationError{Reason: "card details are not allowed for UPI payments"}
		}
	default:
		return &ValidationError{Reason: "only credit card and UPI payments are accepted"}
	}
	return nil
}

// Payment is a single payment attempt. Kind tags the family the payment
// belongs to: standalone property payments vs apartment-booking payments.
// InvoiceNumber is the only field mutated after insert.
type Payment struct {
	ID             int64               `db:"id" json:"id"`
	Kind           string              `db:"kind" json:"kind"`
	UserID         int64               `db:"user_id" json:"user_id"`
	PropertyID     int64               `db:"property_id" json:"property_id"`
	TotalPrice     decimal.NullDecimal `db:"total_price" json:"total_price,omitempty"`
	AmountPaid     decimal.Decimal     `db:"amount_paid" json:"amount_paid"`
	PaymentMethod  string              `db:"payment_method" json:"payment_method"`
	PaymentDetails PaymentDetails      `db:"payment_details" json:"payment_details"`
	Status         string              `db:"status" json:"status"`
	PaymentDate    time.Time           `db:"payment_date" json:"payment_date"`
	InvoiceNumber  sql.NullString      `db:"invoice_number" json:"invoice_number,omitempty"`
}

// Validate re-checks required fields and detail completeness independently
// of the request-level checks; both layers enforce the same rules.
func (p *Payment) Validate() error {
	if p.UserID == 0 || p.PropertyID == 0 || p.PaymentMethod == "" || p.Status == "" {
		return &ValidationError{Reason: "all payment fields are required"}
	}
	if !p.AmountPaid.IsPositive() {
		return &ValidationError{Reason: "amount paid must be positive"}
	}
	if p.Kind != PaymentKindProperty && p.Kind != PaymentKindApartment {
		return &ValidationError{Reason: "payment kind must be property or apartment"}
	}
	return p.PaymentDetails.Validate(p.PaymentMethod)
}

// Property is a standalone listed property.
type Property struct {
	ID       int64           `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Location string          `db:"location" json:"location"`
	Price    decimal.Decimal `db:"price" json:"price"`
}

// Apartment is a multi-unit building.
type Apartment struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
}

// ApartmentUnit is a bookable unit inside an apartment.
type ApartmentUnit struct {
	ID          int64           `db:"id" json:"id"`
	ApartmentID int64           `db:"apartment_id" json:"apartment_id"`
	UnitNumber  string          `db:"unit_number" json:"unit_number"`
	FloorNumber int             `db:"floor_number" json:"floor_number"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Bedrooms    int             `db:"bedrooms" json:"bedrooms"`
	Bathrooms   int             `db:"bathrooms" json:"bathrooms"`
	Area        decimal.Decimal `db:"area" json:"area"`
	Status      string          `db:"status" json:"status"`
}

// ApartmentBooking links a unit to the payment that booked it, one-to-one.
type ApartmentBooking struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	ApartmentID int64           `db:"apartment_id" json:"apartment_id"`
	UnitID      int64           `db:"unit_id" json:"unit_id"`
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	BookingDate time.Time       `db:"booking_date" json:"booking_date"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      string          `db:"status" json:"status"`
	Notes       sql.NullString  `db:"notes" json:"notes,omitempty"`
}

// User is a read-only reference used by invoice joins.
type User struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// PaymentSummary is derived, never persisted. Deposit policy is 10% of the
// listed property price. Figures are not clamped against overpayment.
type PaymentSummary struct {
	FullPropertyPrice decimal.Decimal `json:"full_property_price"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	PendingAmount     decimal.Decimal `json:"pending_amount"`
	PercentagePaid    int64           `json:"percentage_paid"`
}

// PaymentHistoryEntry is a payment enriched with the joined listing context
// used by the history endpoints.
type PaymentHistoryEntry struct {
	Payment
	PaymentType   string              `db:"payment_type" json:"payment_type"`
	PropertyName  sql.NullString      `db:"property_name" json:"property_name,omitempty"`
	Location      sql.NullString      `db:"location" json:"location,omitempty"`
	PropertyPrice decimal.NullDecimal `db:"price" json:"price,omitempty"`
	BookingID     sql.NullInt64       `db:"booking_id" json:"booking_id,omitempty"`
	UnitNumber    sql.NullString      `db:"unit_number" json:"unit_number,omitempty"`
}

// UnitDetails is the unit sub-object embedded in apartment invoices.
type UnitDetails struct {
	UnitNumber  string          `json:"unit_number"`
	FloorNumber int             `json:"floor_number"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	Area        decimal.Decimal `json:"area"`
}

// InvoiceView is the normalized read-only projection of a payment, its
// owning listing and derived summary figures.
type InvoiceView struct {
	Payment
	PaymentType  string `json:"payment_type"`
	PropertyName string `json:"property_name"`
	Location     string `json:"location"`
	UserName     string `json:"user_name"`
	Email        string `json:"email"`
	PaymentSummary
	BookingID   sql.NullInt64 `json:"booking_id,omitempty"`
	UnitDetails *UnitDetails  `json:"unit_details,omitempty"`
}

// PropertyInvoiceRow is the property-family invoice join
// (payment - property - user).
type PropertyInvoiceRow struct {
	Payment
	PropertyName  sql.NullString      `db:"property_name"`
	Location      sql.NullString      `db:"location"`
	PropertyPrice decimal.NullDecimal `db:"price"`
	UserName      string              `db:"user_name"`
	Email         string              `db:"email"`
}

// ApartmentInvoiceRow is the apartment-family invoice join
// (payment - booking - apartment - unit - user). Unit fields are nullable
// because fallback bookings reference units without inventory rows.
type ApartmentInvoiceRow struct {
	Payment
	PropertyName sql.NullString      `db:"property_name"`
	Location     sql.NullString      `db:"location"`
	UserName     string              `db:"user_name"`
	Email        string              `db:"email"`
	BookingID    int64               `db:"booking_id"`
	UnitNumber   sql.NullString      `db:"unit_number"`
	FloorNumber  sql.NullInt64       `db:"floor_number"`
	Bedrooms     sql.NullInt64       `db:"bedrooms"`
	Bathrooms    sql.NullInt64       `db:"bathrooms"`
	Area         decimal.NullDecimal `db:"area"`
}

// BookedApartment is the joined view returned by the user bookings listing.
type BookedApartment struct {
	BookingID     int64               `db:"booking_id" json:"booking_id"`
	ApartmentID   int64               `db:"apartment_id" json:"apartment_id"`
	UnitID        int64               `db:"unit_id" json:"unit_id"`
	PaymentID     int64               `db:"payment_id" json:"payment_id"`
	BookingDate   time.Time           `db:"booking_date" json:"booking_date"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	BookingStatus string              `db:"booking_status" json:"booking_status"`
	Notes         sql.NullString      `db:"notes" json:"notes,omitempty"`
	Name          sql.NullString      `db:"name" json:"name,omitempty"`
	Location      sql.NullString      `db:"location" json:"location,omitempty"`
	UnitNumber    sql.NullString      `db:"unit_number" json:"unit_number,omitempty"`
	FloorNumber   sql.NullInt64       `db:"floor_number" json:"floor_number,omitempty"`
	UnitPrice     decimal.NullDecimal `db:"price" json:"price,omitempty"`
	InvoiceNumber sql.NullString      `db:"invoice_number" json:"invoice_number,omitempty"`
	PaymentMethod sql.NullString      `db:"payment_method" json:"payment_method,omitempty"`
	PaymentStatus sql.NullString      `db:"payment_status" json:"payment_status,omitempty"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
