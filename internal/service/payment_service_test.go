package service

import (
	"context"
	"testing"
	"time"

	"estate-service/internal/models"
	"estate-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := store.NewStoreFromDB(sqlx.NewDb(db, "sqlmock"))
	return NewPaymentService(s, nil, nil, time.Minute), mock
}

func paymentColumns() []string {
	return []string{"id", "kind", "user_id", "property_id", "total_price",
		"amount_paid", "payment_method", "payment_details", "status",
		"payment_date", "invoice_number"}
}

func TestPercentagePaid(t *testing.T) {
	assert.Equal(t, int64(10),
		percentagePaid(decimal.NewFromInt(500), decimal.NewFromInt(5000)))
	assert.Equal(t, int64(33),
		percentagePaid(decimal.RequireFromString("333.33"), decimal.NewFromInt(1000)))
	assert.Equal(t, int64(100),
		percentagePaid(decimal.NewFromInt(1000), decimal.NewFromInt(1000)))
	// Overpayment is not clamped.
	assert.Equal(t, int64(150),
		percentagePaid(decimal.NewFromInt(1500), decimal.NewFromInt(1000)))
	// A non-positive price yields zero rather than dividing by zero.
	assert.Equal(t, int64(0),
		percentagePaid(decimal.NewFromInt(500), decimal.Zero))
}

func TestSortPaymentsByDateDesc(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []models.PaymentHistoryEntry{
		{Payment: models.Payment{ID: 1, PaymentDate: base}},
		{Payment: models.Payment{ID: 2, PaymentDate: base.Add(2 * time.Hour)}},
		{Payment: models.Payment{ID: 3, PaymentDate: base.Add(time.Hour)}},
	}

	sortPaymentsByDateDesc(entries)

	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, int64(3), entries[1].ID)
	assert.Equal(t, int64(1), entries[2].ID)
}

func TestGetPaymentSummary(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name, location, price FROM properties").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "price"}).
			AddRow(9, "Sunrise Villa", "Pune", "5000"))
	mock.ExpectQuery("SELECT (.+) FROM payments").
		WithArgs(models.PaymentKindProperty, int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows(paymentColumns()).
			AddRow(1, "property", 1, 9, "5000", "250", "upi",
				[]byte(`{"upi":{"upi_id":"name@bank"}}`), "completed", time.Now(), nil).
			AddRow(2, "property", 1, 9, "5000", "250", "upi",
				[]byte(`{"upi":{"upi_id":"name@bank"}}`), "completed", time.Now(), nil).
			AddRow(3, "property", 1, 9, "5000", "100", "upi",
				[]byte(`{"upi":{"upi_id":"name@bank"}}`), "pending", time.Now(), nil))

	summary, err := svc.GetPaymentSummary(ctx, 1, 9)
	require.NoError(t, err)

	// Deposit is 10% of the listed price; the pending row does not count.
	assert.True(t, summary.FullPropertyPrice.Equal(decimal.NewFromInt(5000)))
	assert.True(t, summary.DepositAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(500)))
	assert.True(t, summary.PendingAmount.IsZero())
	assert.Equal(t, int64(10), summary.PercentagePaid)
}

func TestGetPaymentSummaryNotFound(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name, location, price FROM properties").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "price"}).
			AddRow(9, "Sunrise Villa", "Pune", "5000"))
	mock.ExpectQuery("SELECT (.+) FROM payments").
		WithArgs(models.PaymentKindProperty, int64(2), int64(9)).
		WillReturnRows(sqlmock.NewRows(paymentColumns()))

	_, err := svc.GetPaymentSummary(ctx, 2, 9)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreatePaymentValidationFailsFast(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	req := &CreatePaymentRequest{
		UserID:        1,
		PropertyID:    9,
		AmountPaid:    decimal.NewFromInt(500),
		PaymentMethod: "upi",
		PaymentDetails: models.PaymentDetails{
			UPI: &models.UPIDetails{UpiID: "nameBank"},
		},
		Status: "completed",
	}

	_, err := svc.CreatePayment(ctx, req)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	// No write was attempted.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentNormalizesCardAlias(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_date"}).AddRow(5, time.Now()))

	req := &CreatePaymentRequest{
		UserID:        1,
		PropertyID:    9,
		AmountPaid:    decimal.NewFromInt(500),
		PaymentMethod: "card",
		PaymentDetails: models.PaymentDetails{
			CreditCard: &models.CreditCardDetails{
				CardHolder: "Jane Roe",
				CardNumber: "4111111111111111",
				ExpiryDate: "12/30",
				CVV:        "123",
			},
		},
		Status: "completed",
	}

	payment, err := svc.CreatePayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodCreditCard, payment.PaymentMethod)
	assert.Equal(t, models.PaymentKindProperty, payment.Kind)
}

func TestGetMergedPaymentHistorySortsDescending(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	historyColumns := append(paymentColumns(),
		"payment_type", "property_name", "location", "price", "booking_id", "unit_number")

	mock.ExpectQuery("SELECT (.+) FROM payments p").
		WithArgs(models.PaymentKindProperty, int64(1)).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow(1, "property", 1, 9, "5000", "250", "upi",
				[]byte(`{"upi":{"upi_id":"name@bank"}}`), "completed", base, nil,
				"property", "Sunrise Villa", "Pune", "5000", nil, nil).
			AddRow(2, "property", 1, 9, "5000", "250", "upi",
				[]byte(`{"upi":{"upi_id":"name@bank"}}`), "completed", base.Add(2*time.Hour), nil,
				"property", "Sunrise Villa", "Pune", "5000", nil, nil))
	mock.ExpectQuery("SELECT (.+) FROM payments p").
		WithArgs(models.PaymentKindApartment, int64(1)).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow(3, "apartment", 1, 4, "1000", "1000", "credit_card",
				[]byte(`{"credit_card":{"card_holder":"Jane Roe","card_number":"4111111111111111","expiry_date":"12/30","cvv":"123"}}`),
				"completed", base.Add(time.Hour), "APT-4-1700000000",
				"apartment", "Lakeview Towers", "Pune", "1000", 3, "4B"))

	merged, err := svc.GetMergedPaymentHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, int64(2), merged[0].ID)
	assert.Equal(t, int64(3), merged[1].ID)
	assert.Equal(t, int64(1), merged[2].ID)
	assert.Equal(t, models.PaymentKindApartment, merged[1].PaymentType)
}
