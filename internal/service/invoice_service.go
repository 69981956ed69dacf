package service

import (
	"context"
	"fmt"

	"estate-service/internal/models"
	"estate-service/internal/store"
	"estate-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService composes normalized invoice views. The payment's stored
// kind selects the join path; there is no probing across tables.
type InvoiceService struct {
	store    *store.Store
	payments *PaymentService
	logger   *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(store *store.Store, payments *PaymentService) *InvoiceService {
	return &InvoiceService{
		store:    store,
		payments: payments,
		logger:   util.GetLogger(),
	}
}

// ComposeInvoice builds the invoice view for a payment.
func (s *InvoiceService) ComposeInvoice(ctx context.Context, paymentID int64) (*models.InvoiceView, error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.ComposeInvoice")
	defer span.End()

	payment, err := s.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var invoice *models.InvoiceView
	switch payment.Kind {
	case models.PaymentKindProperty:
		invoice, err = s.composePropertyInvoice(ctx, paymentID)
	case models.PaymentKindApartment:
		invoice, err = s.composeApartmentInvoice(ctx, paymentID)
	default:
		err = fmt.Errorf("payment %d has unknown kind %q", paymentID, payment.Kind)
	}
	if err != nil {
		return nil, err
	}

	util.InvoicesGeneratedTotal.Inc()
	return invoice, nil
}

func (s *InvoiceService) composePropertyInvoice(ctx context.Context, paymentID int64) (*models.InvoiceView, error) {
	row, err := s.store.GetPropertyInvoiceRow(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	summary, err := s.payments.GetPaymentSummary(ctx, row.UserID, row.PropertyID)
	if err != nil {
		// Invoice generation outranks summary precision: fall back to
		// approximate figures from the payment row itself.
		s.logger.Warn("Summary unavailable, degrading to payment-row figures",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
		summary = approximateSummary(row)
	}

	return &models.InvoiceView{
		Payment:        row.Payment,
		PaymentType:    models.PaymentKindProperty,
		PropertyName:   row.PropertyName.String,
		Location:       row.Location.String,
		UserName:       row.UserName,
		Email:          row.Email,
		PaymentSummary: *summary,
	}, nil
}

// approximateSummary derives rough figures from a single payment row when
// the aggregator cannot answer.
func approximateSummary(row *models.PropertyInvoiceRow) *models.PaymentSummary {
	price := decimal.Zero
	if row.PropertyPrice.Valid {
		price = row.PropertyPrice.Decimal
	}
	deposit := decimal.Zero
	if row.TotalPrice.Valid {
		deposit = row.TotalPrice.Decimal
	}
	return &models.PaymentSummary{
		FullPropertyPrice: price,
		DepositAmount:     deposit,
		TotalPaid:         row.AmountPaid,
		PendingAmount:     price.Sub(row.AmountPaid),
		PercentagePaid:    percentagePaid(row.AmountPaid, price),
	}
}

func (s *InvoiceService) composeApartmentInvoice(ctx context.Context, paymentID int64) (*models.InvoiceView, error) {
	row, err := s.store.GetApartmentInvoiceRow(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	fullPrice := row.AmountPaid
	if row.TotalPrice.Valid {
		fullPrice = row.TotalPrice.Decimal
	}

	// Apartment bookings are always fully paid; no deposit semantics.
	summary := models.PaymentSummary{
		FullPropertyPrice: fullPrice,
		DepositAmount:     row.AmountPaid,
		TotalPaid:         row.AmountPaid,
		PendingAmount:     decimal.Zero,
		PercentagePaid:    100,
	}

	// Fallback bookings have no inventory row; unit fields stay at their
	// zero-value placeholders.
	unit := &models.UnitDetails{
		UnitNumber:  row.UnitNumber.String,
		FloorNumber: int(row.FloorNumber.Int64),
		Bedrooms:    int(row.Bedrooms.Int64),
		Bathrooms:   int(row.Bathrooms.Int64),
	}
	if row.Area.Valid {
		unit.Area = row.Area.Decimal
	}

	invoice := &models.InvoiceView{
		Payment:        row.Payment,
		PaymentType:    models.PaymentKindApartment,
		PropertyName:   row.PropertyName.String,
		Location:       row.Location.String,
		UserName:       row.UserName,
		Email:          row.Email,
		PaymentSummary: summary,
		UnitDetails:    unit,
	}
	invoice.BookingID.Int64 = row.BookingID
	invoice.BookingID.Valid = true
	return invoice, nil
}
