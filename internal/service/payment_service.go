package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"estate-service/internal/broker"
	"estate-service/internal/models"
	"estate-service/internal/redisclient"
	"estate-service/internal/store"
	"estate-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// depositDivisor implements the deposit policy: 10% of the listed price.
var depositDivisor = decimal.NewFromInt(10)

// PaymentService records standalone property payments and computes payment
// summaries and histories.
type PaymentService struct {
	store           *store.Store
	redis           *redisclient.Client
	eventPublisher  *broker.EventPublisher
	summaryCacheTTL time.Duration
	logger          *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	summaryCacheTTL time.Duration,
) *PaymentService {
	return &PaymentService{
		store:           store,
		redis:           redis,
		eventPublisher:  eventPublisher,
		summaryCacheTTL: summaryCacheTTL,
		logger:          util.GetLogger(),
	}
}

// CreatePaymentRequest represents a request to record a standalone property
// payment
type CreatePaymentRequest struct {
	UserID         int64                 `json:"user_id" binding:"required"`
	PropertyID     int64                 `json:"property_id" binding:"required"`
	TotalPrice     *decimal.Decimal      `json:"total_price,omitempty"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
	PaymentMethod  string                `json:"payment_method" binding:"required"`
	PaymentDetails models.PaymentDetails `json:"payment_details"`
	Status         string                `json:"status" binding:"required"`
	InvoiceNumber  string                `json:"invoice_number,omitempty"`
}

// CreatePayment validates and persists a property payment record.
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayment")
	defer span.End()

	if req.UserID == 0 || req.PropertyID == 0 || req.PaymentMethod == "" || req.Status == "" {
		util.PaymentsFailedTotal.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Reason: "all payment fields are required"}
	}
	if !req.AmountPaid.IsPositive() {
		util.PaymentsFailedTotal.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Reason: "amount paid must be positive"}
	}

	method := models.NormalizePaymentMethod(req.PaymentMethod)
	if err := req.PaymentDetails.Validate(method); err != nil {
		util.PaymentsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	payment := &models.Payment{
		Kind:           models.PaymentKindProperty,
		UserID:         req.UserID,
		PropertyID:     req.PropertyID,
		AmountPaid:     req.AmountPaid,
		PaymentMethod:  method,
		PaymentDetails: req.PaymentDetails,
		Status:         req.Status,
	}
	if req.TotalPrice != nil {
		payment.TotalPrice = decimal.NullDecimal{Decimal: *req.TotalPrice, Valid: true}
	}
	if req.InvoiceNumber != "" {
		payment.InvoiceNumber = sql.NullString{String: req.InvoiceNumber, Valid: true}
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			util.PaymentsFailedTotal.WithLabelValues("validation").Inc()
			return nil, err
		}
		util.PaymentsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	util.PaymentsRecordedTotal.Inc()
	s.logger.Info("Payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("user_id", payment.UserID),
		zap.Int64("property_id", payment.PropertyID))

	if s.redis != nil {
		if err := s.redis.InvalidatePaymentSummary(ctx, payment.UserID, payment.PropertyID); err != nil {
			s.logger.Warn("Failed to invalidate summary cache", zap.Error(err))
		}
	}

	if s.eventPublisher != nil {
		event := &models.PaymentRecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentRecorded,
				Timestamp: time.Now(),
			},
			PaymentID:  payment.ID,
			UserID:     payment.UserID,
			PropertyID: payment.PropertyID,
			Amount:     payment.AmountPaid,
			Kind:       payment.Kind,
		}
		if err := s.eventPublisher.PublishPaymentRecorded(ctx, event); err != nil {
			s.logger.Error("Failed to publish PaymentRecorded event", zap.Error(err))
		}
	}

	return payment, nil
}

// GetPaymentSummary computes deposit requirement, total paid, pending amount
// and percentage paid for a user+property pair. Returns ErrNotFound when no
// payment row exists for the pair; that is a different outcome than a
// summary with zero paid.
func (s *PaymentService) GetPaymentSummary(ctx context.Context, userID, propertyID int64) (*models.PaymentSummary, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetPaymentSummary")
	defer span.End()

	if s.redis != nil {
		cached, err := s.redis.GetCachedPaymentSummary(ctx, userID, propertyID)
		if err != nil {
			s.logger.Warn("Summary cache read failed", zap.Error(err))
		} else if cached != nil {
			util.SummaryCacheHitsTotal.Inc()
			return cached, nil
		}
		util.SummaryCacheMissesTotal.Inc()
	}

	summary, err := s.computeSummary(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.CachePaymentSummary(ctx, userID, propertyID, summary, s.summaryCacheTTL); err != nil {
			s.logger.Warn("Failed to cache payment summary", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *PaymentService) computeSummary(ctx context.Context, userID, propertyID int64) (*models.PaymentSummary, error) {
	property, err := s.store.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	payments, err := s.store.GetPaymentsByUserAndProperty(ctx, userID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for user %d property %d: %w", userID, propertyID, err)
	}
	if len(payments) == 0 {
		return nil, fmt.Errorf("no payment for user %d property %d: %w", userID, propertyID, models.ErrNotFound)
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		if models.IsSettledStatus(p.Status) {
			totalPaid = totalPaid.Add(p.AmountPaid)
		}
	}

	deposit := property.Price.Div(depositDivisor)
	summary := &models.PaymentSummary{
		FullPropertyPrice: property.Price,
		DepositAmount:     deposit,
		TotalPaid:         totalPaid,
		PendingAmount:     deposit.Sub(totalPaid),
		PercentagePaid:    percentagePaid(totalPaid, property.Price),
	}
	return summary, nil
}

// percentagePaid is round(paid/price*100); zero when the price is not
// positive. Overpayment is not clamped.
func percentagePaid(totalPaid, price decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}
	return totalPaid.Div(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// RefreshSummaryCache recomputes and re-caches the summary for a pair.
// Used by the event worker after a payment lands.
func (s *PaymentService) RefreshSummaryCache(ctx context.Context, userID, propertyID int64) error {
	summary, err := s.computeSummary(ctx, userID, propertyID)
	if err != nil {
		return err
	}
	if s.redis == nil {
		return nil
	}
	return s.redis.CachePaymentSummary(ctx, userID, propertyID, summary, s.summaryCacheTTL)
}

// GetUserPaymentHistory retrieves the property-family payments of a user.
// An empty list is success, not an error.
func (s *PaymentService) GetUserPaymentHistory(ctx context.Context, userID int64) ([]models.PaymentHistoryEntry, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetUserPaymentHistory")
	defer span.End()

	entries, err := s.store.GetPropertyPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history for user %d: %w", userID, err)
	}
	return entries, nil
}

// GetMergedPaymentHistory retrieves both payment families for a user,
// merged and sorted by payment date, most recent first.
func (s *PaymentService) GetMergedPaymentHistory(ctx context.Context, userID int64) ([]models.PaymentHistoryEntry, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetMergedPaymentHistory")
	defer span.End()

	propertyPayments, err := s.store.GetPropertyPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property payments for user %d: %w", userID, err)
	}

	apartmentPayments, err := s.store.GetApartmentPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load apartment payments for user %d: %w", userID, err)
	}

	merged := make([]models.PaymentHistoryEntry, 0, len(propertyPayments)+len(apartmentPayments))
	merged = append(merged, propertyPayments...)
	merged = append(merged, apartmentPayments...)
	sortPaymentsByDateDesc(merged)

	s.logger.Info("Merged payment history",
		zap.Int64("user_id", userID),
		zap.Int("property", len(propertyPayments)),
		zap.Int("apartment", len(apartmentPayments)))

	return merged, nil
}

// sortPaymentsByDateDesc orders entries most recent first. Dates are
// expected distinct at second granularity; ties are harmless.
func sortPaymentsByDateDesc(entries []models.PaymentHistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PaymentDate.After(entries[j].PaymentDate)
	})
}

// GetAllPayments retrieves every payment row
func (s *PaymentService) GetAllPayments(ctx context.Context) ([]models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetAllPayments")
	defer span.End()

	return s.store.GetAllPayments(ctx)
}
