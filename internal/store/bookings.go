package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"estate-service/internal/models"
)

// BookUnitTx runs the whole booking as one transaction: insert payment,
// re-check and lock the unit, insert the booking, flip the unit to booked,
// stamp the invoice number, commit. Any failure rolls back every write so
// no partial payment record survives a failed booking.
//
// For fallback units the availability check and the unit mutation are
// skipped entirely; only payment and booking rows are written.
//
// On success payment.ID, payment.InvoiceNumber, payment.PaymentDate,
// booking.ID and booking.BookingDate are populated.
func (s *Store) BookUnitTx(ctx context.Context, payment *models.Payment, booking *models.ApartmentBooking, fallback bool, invoiceNumber string) error {
	if err := payment.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowxContext(ctx,
		`INSERT INTO payments (kind, user_id, property_id, total_price, amount_paid,
			payment_method, payment_details, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, payment_date`,
		payment.Kind, payment.UserID, payment.PropertyID, payment.TotalPrice,
		payment.AmountPaid, payment.PaymentMethod, payment.PaymentDetails,
		payment.Status)
	if err := row.Scan(&payment.ID, &payment.PaymentDate); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	booking.PaymentID = payment.ID

	if !fallback {
		// Re-read under the row lock so a concurrent booking of the same
		// unit cannot also pass the availability check.
		var unit models.ApartmentUnit
		err = tx.GetContext(ctx, &unit,
			"SELECT * FROM apartment_units WHERE id = $1 AND status = $2 FOR UPDATE",
			booking.UnitID, models.UnitStatusAvailable)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrUnitUnavailable
		}
		if err != nil {
			return fmt.Errorf("failed to lock unit %d: %w", booking.UnitID, err)
		}
	}

	bookingRow := tx.QueryRowxContext(ctx,
		`INSERT INTO apartment_bookings (user_id, apartment_id, unit_id, payment_id,
			amount, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, booking_date`,
		booking.UserID, booking.ApartmentID, booking.UnitID, booking.PaymentID,
		booking.Amount, booking.Status, booking.Notes)
	if err := bookingRow.Scan(&booking.ID, &booking.BookingDate); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if !fallback {
		_, err = tx.ExecContext(ctx,
			"UPDATE apartment_units SET status = $1 WHERE id = $2",
			models.UnitStatusBooked, booking.UnitID)
		if err != nil {
			return fmt.Errorf("failed to mark unit booked: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE payments SET invoice_number = $1 WHERE id = $2",
		invoiceNumber, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to stamp invoice number: %w", err)
	}
	payment.InvoiceNumber = sql.NullString{String: invoiceNumber, Valid: true}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking transaction: %w", err)
	}
	return nil
}

// GetBookingsByUser retrieves all bookings for a user with apartment, unit
// and payment context, most recent first. An empty result is success.
func (s *Store) GetBookingsByUser(ctx context.Context, userID int64) ([]models.BookedApartment, error) {
	var bookings []models.BookedApartment
	err := s.db.SelectContext(ctx, &bookings,
		`SELECT ab.id AS booking_id, ab.apartment_id, ab.unit_id, ab.payment_id,
			ab.booking_date, ab.amount, ab.status AS booking_status, ab.notes,
			a.name, a.location,
			au.unit_number, au.floor_number, au.price,
			p.invoice_number, p.payment_method, p.status AS payment_status
		 FROM apartment_bookings ab
		 LEFT JOIN apartments a ON ab.apartment_id = a.id
		 LEFT JOIN apartment_units au ON ab.unit_id = au.id
		 LEFT JOIN payments p ON ab.payment_id = p.id
		 WHERE ab.user_id = $1
		 ORDER BY ab.booking_date DESC`,
		userID)
	return bookings, err
}
