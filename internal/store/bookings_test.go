package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"estate-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func validBookingPayment() *models.Payment {
	return &models.Payment{
		Kind:       models.PaymentKindApartment,
		UserID:     1,
		PropertyID: 9,
		TotalPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(1000), Valid: true},
		AmountPaid: decimal.NewFromInt(1000),
		PaymentMethod: models.PaymentMethodUPI,
		PaymentDetails: models.PaymentDetails{
			UPI: &models.UPIDetails{UpiID: "name@bank"},
		},
		Status: models.PaymentStatusCompleted,
	}
}

func unitColumns() []string {
	return []string{"id", "apartment_id", "unit_number", "floor_number", "price",
		"bedrooms", "bathrooms", "area", "status"}
}

func TestBookUnitTxSuccess(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	payment := validBookingPayment()
	booking := &models.ApartmentBooking{
		UserID:      1,
		ApartmentID: 9,
		UnitID:      42,
		Amount:      decimal.NewFromInt(1000),
		Status:      models.BookingStatusConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_date"}).AddRow(7, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM apartment_units WHERE id = \$1 AND status = \$2 FOR UPDATE`).
		WithArgs(int64(42), models.UnitStatusAvailable).
		WillReturnRows(sqlmock.NewRows(unitColumns()).
			AddRow(42, 9, "4B", 4, "1000", 2, 1, "75.5", models.UnitStatusAvailable))
	mock.ExpectQuery("INSERT INTO apartment_bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_date"}).AddRow(3, time.Now()))
	mock.ExpectExec("UPDATE apartment_units SET status").
		WithArgs(models.UnitStatusBooked, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET invoice_number").
		WithArgs("APT-9-1700000000", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.BookUnitTx(ctx, payment, booking, false, "APT-9-1700000000")
	require.NoError(t, err)

	assert.Equal(t, int64(7), payment.ID)
	assert.Equal(t, int64(3), booking.ID)
	assert.Equal(t, int64(7), booking.PaymentID)
	assert.True(t, payment.InvoiceNumber.Valid)
	assert.Equal(t, "APT-9-1700000000", payment.InvoiceNumber.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnitTxUnitUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	payment := validBookingPayment()
	booking := &models.ApartmentBooking{
		UserID:      1,
		ApartmentID: 9,
		UnitID:      42,
		Amount:      decimal.NewFromInt(1000),
		Status:      models.BookingStatusConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_date"}).AddRow(7, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM apartment_units WHERE id = \$1 AND status = \$2 FOR UPDATE`).
		WithArgs(int64(42), models.UnitStatusAvailable).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.BookUnitTx(ctx, payment, booking, false, "APT-9-1700000000")
	assert.ErrorIs(t, err, models.ErrUnitUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnitTxRollsBackOnBookingFailure(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	payment := validBookingPayment()
	booking := &models.ApartmentBooking{
		UserID:      1,
		ApartmentID: 9,
		UnitID:      42,
		Amount:      decimal.NewFromInt(1000),
		Status:      models.BookingStatusConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_date"}).AddRow(7, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM apartment_units WHERE id = \$1 AND status = \$2 FOR UPDATE`).
		WithArgs(int64(42), models.UnitStatusAvailable).
		WillReturnRows(sqlmock.NewRows(unitColumns()).
			AddRow(42, 9, "4B", 4, "1000", 2, 1, "75.5", models.UnitStatusAvailable))
	mock.ExpectQuery("INSERT INTO apartment_bookings").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.BookUnitTx(ctx, payment, booking, false, "APT-9-1700000000")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUnitUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnitTxFallbackSkipsInventory(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	payment := validBookingPayment()
	booking := &models.ApartmentBooking{
		UserID:      1,
		ApartmentID: 9,
		UnitID:      7,
		Amount:      decimal.NewFromInt(500),
		Status:      models.BookingStatusConfirmed,
		Notes:       sql.NullString{String: "Demo booking - Unit is a fallback demo unit", Valid: true},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_date"}).AddRow(8, time.Now()))
	mock.ExpectQuery("INSERT INTO apartment_bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_date"}).AddRow(4, time.Now()))
	mock.ExpectExec("UPDATE payments SET invoice_number").
		WithArgs("APT-9-1700000001", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.BookUnitTx(ctx, payment, booking, true, "APT-9-1700000001")
	require.NoError(t, err)
	assert.Equal(t, int64(4), booking.ID)
	// No unit SELECT FOR UPDATE and no status flip were expected above.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnitTxRejectsInvalidPaymentBeforeSQL(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	payment := validBookingPayment()
	payment.PaymentDetails = models.PaymentDetails{UPI: &models.UPIDetails{UpiID: "nameBank"}}
	booking := &models.ApartmentBooking{UnitID: 42}

	err := s.BookUnitTx(ctx, payment, booking, false, "APT-9-1700000002")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
