package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"estate-service/internal/models"
)

// CreatePayment inserts a standalone payment record. The model is
// re-validated here so the store never accepts a record the coordinator
// layer would reject.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (kind, user_id, property_id, total_price, amount_paid,
			payment_method, payment_details, status, invoice_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, payment_date`

	row := s.db.QueryRowxContext(ctx, query,
		payment.Kind, payment.UserID, payment.PropertyID, payment.TotalPrice,
		payment.AmountPaid, payment.PaymentMethod, payment.PaymentDetails,
		payment.Status, payment.InvoiceNumber)
	return row.Scan(&payment.ID, &payment.PaymentDate)
}

// StampInvoiceNumber sets the invoice number on an existing payment.
// Invoice number is the only post-insert mutation a payment record sees.
func (s *Store) StampInvoiceNumber(ctx context.Context, paymentID int64, invoiceNumber string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET invoice_number = $1 WHERE id = $2",
		invoiceNumber, paymentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, models.ErrNotFound)
	}
	return nil
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByUserAndProperty retrieves all property-family payments for a
// user+property pair, oldest first
func (s *Store) GetPaymentsByUserAndProperty(ctx context.Context, userID, propertyID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		`SELECT * FROM payments
		 WHERE kind = $1 AND user_id = $2 AND property_id = $3
		 ORDER BY payment_date`,
		models.PaymentKindProperty, userID, propertyID)
	return payments, err
}

// GetAllPayments retrieves every payment row, most recent first
func (s *Store) GetAllPayments(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments ORDER BY payment_date DESC")
	return payments, err
}

// GetPropertyPaymentsByUser retrieves a user's property-family payments with
// the owning listing joined in
func (s *Store) GetPropertyPaymentsByUser(ctx context.Context, userID int64) ([]models.PaymentHistoryEntry, error) {
	var entries []models.PaymentHistoryEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT p.*, p.kind AS payment_type,
			pr.name AS property_name, pr.location, pr.price,
			NULL::bigint AS booking_id, NULL::text AS unit_number
		 FROM payments p
		 LEFT JOIN properties pr ON p.property_id = pr.id
		 WHERE p.kind = $1 AND p.user_id = $2`,
		models.PaymentKindProperty, userID)
	return entries, err
}

// GetApartmentPaymentsByUser retrieves a user's apartment-family payments
// with booking, apartment and unit context joined in
func (s *Store) GetApartmentPaymentsByUser(ctx context.Context, userID int64) ([]models.PaymentHistoryEntry, error) {
	var entries []models.PaymentHistoryEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT p.*, p.kind AS payment_type,
			apt.name AS property_name, apt.location, au.price,
			ab.id AS booking_id, au.unit_number
		 FROM payments p
		 JOIN apartment_bookings ab ON p.id = ab.payment_id
		 JOIN apartments apt ON ab.apartment_id = apt.id
		 LEFT JOIN apartment_units au ON ab.unit_id = au.id
		 WHERE p.kind = $1 AND p.user_id = $2`,
		models.PaymentKindApartment, userID)
	return entries, err
}

// GetPropertyInvoiceRow retrieves the property-family invoice join for a
// payment
func (s *Store) GetPropertyInvoiceRow(ctx context.Context, paymentID int64) (*models.PropertyInvoiceRow, error) {
	var row models.PropertyInvoiceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT p.*,
			pr.name AS property_name, pr.location, pr.price,
			u.first_name || ' ' || u.last_name AS user_name, u.email
		 FROM payments p
		 LEFT JOIN properties pr ON p.property_id = pr.id
		 JOIN users u ON p.user_id = u.id
		 WHERE p.id = $1 AND p.kind = $2`,
		paymentID, models.PaymentKindProperty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property invoice for payment %d: %w", paymentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetApartmentInvoiceRow retrieves the apartment-family invoice join for a
// payment. The unit join is LEFT so fallback bookings still produce a row.
func (s *Store) GetApartmentInvoiceRow(ctx context.Context, paymentID int64) (*models.ApartmentInvoiceRow, error) {
	var row models.ApartmentInvoiceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT p.*,
			apt.name AS property_name, apt.location,
			u.first_name || ' ' || u.last_name AS user_name, u.email,
			ab.id AS booking_id,
			au.unit_number, au.floor_number, au.bedrooms, au.bathrooms, au.area
		 FROM payments p
		 JOIN apartment_bookings ab ON p.id = ab.payment_id
		 JOIN apartments apt ON ab.apartment_id = apt.id
		 LEFT JOIN apartment_units au ON ab.unit_id = au.id
		 JOIN users u ON p.user_id = u.id
		 WHERE p.id = $1 AND p.kind = $2`,
		paymentID, models.PaymentKindApartment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("apartment invoice for payment %d: %w", paymentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
