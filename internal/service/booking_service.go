package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
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

// BookingService coordinates the booking transaction: payment record, unit
// availability check, booking record and invoice stamp, all-or-nothing.
type BookingService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	unitHoldTTL    time.Duration
	logger         *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	unitHoldTTL time.Duration,
) *BookingService {
	return &BookingService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		unitHoldTTL:    unitHoldTTL,
		logger:         util.GetLogger(),
	}
}

// BookApartmentRequest represents a request to book an apartment unit.
// UnitID is a string because fallback demo units carry a prefix.
type BookApartmentRequest struct {
	UserID         int64                 `json:"user_id" binding:"required"`
	PropertyID     int64                 `json:"property_id" binding:"required"`
	UnitID         string                `json:"unit_id" binding:"required"`
	TotalPrice     *decimal.Decimal      `json:"total_price,omitempty"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
	PaymentMethod  string                `json:"payment_method" binding:"required"`
	PaymentDetails models.PaymentDetails `json:"payment_details"`
	PropertyName   string                `json:"property_name,omitempty"`
}

// BookApartmentResponse represents the response after a successful booking
type BookApartmentResponse struct {
	PaymentID     int64  `json:"payment_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// validate fails fast before any write is attempted.
func (req *BookApartmentRequest) validate() (method string, err error) {
	if req.UserID == 0 || req.PropertyID == 0 || req.UnitID == "" || req.PaymentMethod == "" {
		return "", &models.ValidationError{Reason: "all booking fields are required"}
	}
	if !req.AmountPaid.IsPositive() {
		return "", &models.ValidationError{Reason: "amount paid must be positive"}
	}
	method = models.NormalizePaymentMethod(req.PaymentMethod)
	if err := req.PaymentDetails.Validate(method); err != nil {
		return "", err
	}
	return method, nil
}

// BookApartment validates the request, runs the booking transaction and
// publishes a BookingConfirmed event after commit.
func (s *BookingService) BookApartment(ctx context.Context, req *BookApartmentRequest) (*BookApartmentResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.BookApartment")
	defer span.End()

	method, err := req.validate()
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	fallback := strings.HasPrefix(req.UnitID, models.FallbackUnitPrefix)
	rawUnitID := strings.TrimPrefix(req.UnitID, models.FallbackUnitPrefix)
	unitID, err := strconv.ParseInt(rawUnitID, 10, 64)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Reason: "unit id must be numeric"}
	}

	if !fallback && s.redis != nil {
		held, err := s.redis.AcquireUnitHold(ctx, unitID, s.unitHoldTTL)
		if err != nil {
			s.logger.Warn("Unit hold unavailable, relying on row lock",
				zap.Int64("unit_id", unitID),
				zap.Error(err))
		} else if !held {
			util.BookingsFailedTotal.WithLabelValues("unit_unavailable").Inc()
			return nil, models.ErrUnitUnavailable
		} else {
			defer func() {
				if err := s.redis.ReleaseUnitHold(context.Background(), unitID); err != nil {
					s.logger.Warn("Failed to release unit hold",
						zap.Int64("unit_id", unitID),
						zap.Error(err))
				}
			}()
		}
	}

	totalPrice := req.AmountPaid
	if req.TotalPrice != nil {
		totalPrice = *req.TotalPrice
	}

	payment := &models.Payment{
		Kind:           models.PaymentKindApartment,
		UserID:         req.UserID,
		PropertyID:     req.PropertyID,
		TotalPrice:     decimal.NullDecimal{Decimal: totalPrice, Valid: true},
		AmountPaid:     req.AmountPaid,
		PaymentMethod:  method,
		PaymentDetails: req.PaymentDetails,
		Status:         models.PaymentStatusCompleted,
	}

	booking := &models.ApartmentBooking{
		UserID:      req.UserID,
		ApartmentID: req.PropertyID,
		UnitID:      unitID,
		Amount:      req.AmountPaid,
		Status:      models.BookingStatusConfirmed,
	}
	if fallback {
		booking.Notes = sql.NullString{
			String: "Demo booking - Unit is a fallback demo unit",
			Valid:  true,
		}
	}

	// Uniqueness is best-effort: property id plus second-granularity
	// timestamp. The business write volume makes collisions acceptable.
	invoiceNumber := fmt.Sprintf("APT-%d-%d", req.PropertyID, time.Now().Unix())

	start := time.Now()
	err = s.store.BookUnitTx(ctx, payment, booking, fallback, invoiceNumber)
	util.BookingTxLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, models.ErrUnitUnavailable) {
			util.BookingsFailedTotal.WithLabelValues("unit_unavailable").Inc()
			s.logger.Info("Unit already booked",
				zap.Int64("unit_id", unitID),
				zap.Int64("user_id", req.UserID))
			return nil, err
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			util.BookingsFailedTotal.WithLabelValues("validation").Inc()
			return nil, err
		}
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to process booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Apartment booked",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("unit_id", unitID),
		zap.Bool("fallback", fallback),
		zap.String("invoice_number", invoiceNumber))

	if !fallback && s.redis != nil {
		if err := s.redis.MarkUnitBooked(ctx, unitID, 24*time.Hour); err != nil {
			s.logger.Warn("Failed to cache unit status", zap.Error(err))
		}
	}

	event := &models.BookingConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingConfirmed,
			Timestamp: time.Now(),
		},
		BookingID:     booking.ID,
		PaymentID:     payment.ID,
		UserID:        req.UserID,
		ApartmentID:   req.PropertyID,
		UnitID:        unitID,
		Amount:        req.AmountPaid,
		InvoiceNumber: invoiceNumber,
		Fallback:      fallback,
	}
	if s.eventPublisher != nil {
		if err := s.eventPublisher.PublishBookingConfirmed(ctx, event); err != nil {
			s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
		}
	}

	return &BookApartmentResponse{
		PaymentID:     payment.ID,
		InvoiceNumber: invoiceNumber,
	}, nil
}

// GetUserBookings retrieves all bookings for a user
func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]models.BookedApartment, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.GetUserBookings")
	defer span.End()

	bookings, err := s.store.GetBookingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for user %d: %w", userID, err)
	}
	return bookings, nil
}

// GetApartmentUnits lists the units of an apartment
func (s *BookingService) GetApartmentUnits(ctx context.Context, apartmentID int64) ([]models.ApartmentUnit, error) {
	return s.store.GetApartmentUnits(ctx, apartmentID)
}
